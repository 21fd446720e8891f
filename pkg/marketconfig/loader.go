package marketconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrUnavailable is returned when neither the database row nor the fallback
// files could provide a configuration.
var ErrUnavailable = errors.New("marketplace configuration unavailable")

// InvalidError reports every schema violation found in a configuration
// document. Validation never stops at the first problem.
type InvalidError struct {
	Violations []string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid marketplace configuration: %s", strings.Join(e.Violations, "; "))
}

// Loader loads the marketplace configuration set, preferring the durable
// database row and falling back to a file pair when both paths are supplied.
type Loader struct {
	db                 *sqlx.DB
	confFilePath       string
	requiredFieldsPath string
	logger             *zap.Logger
}

func NewLoader(db *sqlx.DB, confFilePath, requiredFieldsPath string, logger *zap.Logger) *Loader {
	return &Loader{
		db:                 db,
		confFilePath:       confFilePath,
		requiredFieldsPath: requiredFieldsPath,
		logger:             logger,
	}
}

// Load produces a validated configuration Snapshot. Any database failure
// falls back to the configured file pair; with no file pair configured the
// failure propagates wrapped in ErrUnavailable.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	snapshot, dbErr := l.loadFromDB(ctx)
	if dbErr == nil {
		return snapshot, nil
	}

	if l.confFilePath == "" || l.requiredFieldsPath == "" {
		return nil, fmt.Errorf("%w: database load failed and no fallback files provided: %v", ErrUnavailable, dbErr)
	}

	l.logger.Warn("Loading configuration from database failed, falling back to files",
		zap.Error(dbErr),
		zap.String("config_file", l.confFilePath),
		zap.String("required_fields_file", l.requiredFieldsPath))

	return l.loadFromFiles()
}

type configRow struct {
	ConfigJSON         []byte `db:"config_json"`
	RequiredFieldsJSON []byte `db:"required_fields_json"`
}

func (l *Loader) loadFromDB(ctx context.Context) (*Snapshot, error) {
	if l.db == nil {
		return nil, errors.New("no database connection configured")
	}

	var row configRow
	err := l.db.GetContext(ctx, &row,
		`SELECT config_json, required_fields_json FROM marketplace_configurations ORDER BY id LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration row: %w", err)
	}

	return buildSnapshot(row.ConfigJSON, row.RequiredFieldsJSON)
}

func (l *Loader) loadFromFiles() (*Snapshot, error) {
	configJSON, err := readNonEmptyFile(l.confFilePath)
	if err != nil {
		return nil, fmt.Errorf("%w: configuration file: %v", ErrUnavailable, err)
	}
	requiredJSON, err := readNonEmptyFile(l.requiredFieldsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: required fields file: %v", ErrUnavailable, err)
	}
	return buildSnapshot(configJSON, requiredJSON)
}

func readNonEmptyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file %s has no content", path)
	}
	return data, nil
}

// buildSnapshot parses both documents, validates every entry against the
// required-fields schema and restructures the result into a name-keyed
// Snapshot. The entry name becomes the key and is dropped from the value.
func buildSnapshot(configJSON, requiredFieldsJSON []byte) (*Snapshot, error) {
	var configDoc configDocument
	if err := json.Unmarshal(configJSON, &configDoc); err != nil {
		return nil, fmt.Errorf("%w: configuration document is not valid JSON: %v", ErrUnavailable, err)
	}
	var requiredDoc requiredFieldsDocument
	if err := json.Unmarshal(requiredFieldsJSON, &requiredDoc); err != nil {
		return nil, fmt.Errorf("%w: required fields document is not valid JSON: %v", ErrUnavailable, err)
	}

	var violations []string
	for _, entry := range configDoc.MarketplaceConfigurations {
		violations = append(violations, validateEntry(entry, requiredDoc.RequiredFields)...)
	}
	if len(violations) > 0 {
		return nil, &InvalidError{Violations: violations}
	}

	configs := make(map[string]MarketplaceConfig, len(configDoc.MarketplaceConfigurations))
	for _, entry := range configDoc.MarketplaceConfigurations {
		fields := make(map[string]FieldRule, len(entry.Fields))
		for _, raw := range entry.Fields {
			field, err := splitField(raw)
			if err != nil {
				return nil, fmt.Errorf("config %q: %w", entry.Name, err)
			}
			rule, err := ruleFromParams(field.Params)
			if err != nil {
				return nil, fmt.Errorf("config %q, field %q: %w", entry.Name, field.Name, err)
			}
			fields[field.Name] = rule
		}
		configs[entry.Name] = MarketplaceConfig{
			MarketplaceURLs: entry.MarketplaceURL,
			Fields:          fields,
		}
	}

	return newSnapshot(configs), nil
}
