package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceEntry describes one configured scraping source. Rendered sources
// need a headless browser fetch because their listing data is filled in by
// client-side scripts. IndexURL and LinkPattern are optional; when both are
// set, link discovery expands the entry into additional listing URLs.
type SourceEntry struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	Extractor   string `yaml:"extractor"`
	Rendered    bool   `yaml:"rendered"`
	IndexURL    string `yaml:"index_url"`
	LinkPattern string `yaml:"link_pattern"`
}

type SourcesFile struct {
	Sources []SourceEntry `yaml:"sources"`
}

// LoadSources reads and validates the source task table.
func LoadSources(path string) ([]SourceEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file SourcesFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	for i, entry := range file.Sources {
		if entry.Name == "" {
			return nil, fmt.Errorf("source entry %d: name is required", i)
		}
		if entry.URL == "" {
			return nil, fmt.Errorf("source entry %d (%s): url is required", i, entry.Name)
		}
		if entry.Extractor == "" {
			return nil, fmt.Errorf("source entry %d (%s): extractor is required", i, entry.Name)
		}
	}

	return file.Sources, nil
}
