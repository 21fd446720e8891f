package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pricewatch/pricewatch/pkg/marketconfig"
)

// extractFieldValue locates one field's raw text in a parsed document: the
// first div carrying the rule's container class, then the first element of
// the target tag matching a candidate class (candidates tried in order, blank
// entries skipped). With no usable candidates any element of the target tag
// within the container matches. The result is the first match's trimmed text.
func extractFieldValue(doc *goquery.Document, rule marketconfig.FieldRule, field string) (string, error) {
	container := doc.Find(fmt.Sprintf("div.%s", rule.ContainerClass)).First()
	if container.Length() == 0 {
		return "", &fieldError{
			Field:  field,
			Detail: fmt.Sprintf("div class %q couldn't be found, please check it", rule.ContainerClass),
		}
	}

	var candidates []string
	for _, class := range rule.TargetClasses {
		if strings.TrimSpace(class) != "" {
			candidates = append(candidates, class)
		}
	}

	var matches *goquery.Selection
	if len(candidates) > 0 {
		for _, class := range candidates {
			found := container.Find(fmt.Sprintf("%s.%s", rule.TargetTag, class))
			if found.Length() > 0 {
				matches = found
				break
			}
		}
	} else {
		matches = container.Find(rule.TargetTag)
	}

	if matches == nil || matches.Length() == 0 {
		return "", &fieldError{
			Field: field,
			Detail: fmt.Sprintf("element %q inside %q div couldn't be found, please check it",
				rule.TargetTag, rule.ContainerClass),
		}
	}

	return strings.TrimSpace(matches.First().Text()), nil
}
