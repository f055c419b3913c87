package services

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/unlistedhub/unlisted-backend/models"
)

// Extractor turns one source's raw document into a listing draft.
//
// Implementations return (nil, nil) when the document is not a listing page
// at all, and an error only when a required field (the company name) cannot
// be identified. Missing optional fields are omitted from the draft, never
// fatal. Price text that fails numeric parsing drops only the price field;
// this field-scoped policy is applied uniformly across all sources.
type Extractor interface {
	// SourceName identifies the source this extractor understands; it is
	// also the key used in the source task table.
	SourceName() string

	// Extract parses document, fetched from originURL, into a draft.
	Extract(document []byte, originURL string) (*models.ListingDraft, error)
}

// ExtractorRegistry maps source names from the task table to extractor
// implementations, so adding a source means registering one more entry
// instead of branching on source name.
type ExtractorRegistry struct {
	extractors map[string]Extractor
}

// NewExtractorRegistry creates a registry holding the given extractors.
func NewExtractorRegistry(extractors ...Extractor) *ExtractorRegistry {
	registry := &ExtractorRegistry{extractors: make(map[string]Extractor, len(extractors))}
	for _, extractor := range extractors {
		registry.extractors[extractor.SourceName()] = extractor
	}
	return registry
}

// Lookup returns the extractor registered under name.
func (r *ExtractorRegistry) Lookup(name string) (Extractor, bool) {
	extractor, ok := r.extractors[name]
	return extractor, ok
}

// Names returns the registered source names.
func (r *ExtractorRegistry) Names() []string {
	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	return names
}

// siblingText returns the first non-empty text node following the
// selection's element, the way label/value pairs are laid out as
// "<strong>Label</strong> value" on some sources.
func siblingText(selection *goquery.Selection) string {
	if selection.Length() == 0 {
		return ""
	}
	for node := selection.Get(0).NextSibling; node != nil; node = node.NextSibling {
		if node.Type != html.TextNode {
			continue
		}
		if text := strings.TrimSpace(node.Data); text != "" {
			return text
		}
	}
	return ""
}
