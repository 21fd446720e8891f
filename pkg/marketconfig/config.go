package marketconfig

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FieldRule describes how to locate one field's value inside a product page:
// the enclosing container element by class, the element tag to search within
// it, and an ordered list of candidate classes for that tag. An empty
// candidate list matches the tag unconditionally.
type FieldRule struct {
	ContainerClass string
	TargetTag      string
	TargetClasses  []string
}

// MarketplaceConfig is the loaded extraction configuration of one
// marketplace. Immutable once loaded; a reload produces a whole new Snapshot.
type MarketplaceConfig struct {
	MarketplaceURLs []string
	Fields          map[string]FieldRule
}

// Snapshot is one loaded configuration set, keyed by marketplace name. URL
// resolution iterates configurations in ascending name order so that
// first-match-wins is deterministic across reloads.
type Snapshot struct {
	configs map[string]MarketplaceConfig
	names   []string
}

// NewSnapshot builds a snapshot from already-validated configurations.
func NewSnapshot(configs map[string]MarketplaceConfig) *Snapshot {
	return newSnapshot(configs)
}

func newSnapshot(configs map[string]MarketplaceConfig) *Snapshot {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return &Snapshot{configs: configs, names: names}
}

// Names returns the configured marketplace names in ascending order.
func (s *Snapshot) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Get returns the configuration registered under the given name.
func (s *Snapshot) Get(name string) (MarketplaceConfig, bool) {
	cfg, ok := s.configs[name]
	return cfg, ok
}

// Resolve finds the configuration responsible for a URL: the first
// configuration, in name order, whose any marketplace URL is a substring of
// the given URL.
func (s *Snapshot) Resolve(url string) (MarketplaceConfig, string, bool) {
	for _, name := range s.names {
		cfg := s.configs[name]
		for _, marketplaceURL := range cfg.MarketplaceURLs {
			if strings.Contains(url, marketplaceURL) {
				return cfg, name, true
			}
		}
	}
	return MarketplaceConfig{}, "", false
}

// Len returns the number of loaded configurations.
func (s *Snapshot) Len() int {
	return len(s.configs)
}

// Wire document shapes, as stored in the marketplace_configurations row and
// in the fallback files.

type configDocument struct {
	MarketplaceConfigurations []configEntry `json:"marketplace_configurations"`
}

type requiredFieldsDocument struct {
	RequiredFields []requiredField `json:"required_fields"`
}

type requiredField struct {
	FieldName   string   `json:"field_name"`
	FieldParams []string `json:"field_params"`
}

type configEntry struct {
	Name           string            `json:"name"`
	Fields         []json.RawMessage `json:"fields"`
	MarketplaceURL urlList           `json:"marketplace_url"`
}

// urlList accepts either a JSON array of strings or a single string, as both
// occur in stored configurations.
type urlList []string

func (u *urlList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*u = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return fmt.Errorf("marketplace_url must be a string or an array of strings: %w", err)
	}
	*u = urlList{one}
	return nil
}

// configField is one field entry split into its name and remaining
// parameters, preserving unknown keys so validation can report extras.
type configField struct {
	Name   string
	Params map[string]json.RawMessage
}

func splitField(raw json.RawMessage) (configField, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return configField{}, fmt.Errorf("field entry is not an object: %w", err)
	}
	field := configField{Params: make(map[string]json.RawMessage, len(all))}
	for key, value := range all {
		if key == "name" {
			if err := json.Unmarshal(value, &field.Name); err != nil {
				return configField{}, fmt.Errorf("field name is not a string: %w", err)
			}
			continue
		}
		field.Params[key] = value
	}
	return field, nil
}

// Parameter names every field rule is built from.
const (
	paramContainerClass = "html_div_class"
	paramTargetTag      = "html_element_in_div_type"
	paramTargetClasses  = "html_element_in_div_class"
)

// ruleFromParams builds a FieldRule from validated parameters.
func ruleFromParams(params map[string]json.RawMessage) (FieldRule, error) {
	var rule FieldRule
	if raw, ok := params[paramContainerClass]; ok {
		if err := json.Unmarshal(raw, &rule.ContainerClass); err != nil {
			return rule, fmt.Errorf("%s: %w", paramContainerClass, err)
		}
	}
	if raw, ok := params[paramTargetTag]; ok {
		if err := json.Unmarshal(raw, &rule.TargetTag); err != nil {
			return rule, fmt.Errorf("%s: %w", paramTargetTag, err)
		}
	}
	if raw, ok := params[paramTargetClasses]; ok {
		var classes urlList
		if err := json.Unmarshal(raw, &classes); err != nil {
			return rule, fmt.Errorf("%s: %w", paramTargetClasses, err)
		}
		rule.TargetClasses = classes
	}
	return rule, nil
}
