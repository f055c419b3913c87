package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempSources(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSources(t *testing.T) {
	path := writeTempSources(t, `
sources:
  - name: UnlistedZone
    url: https://unlistedzone.com/shares/hdb
    extractor: UnlistedZone
    index_url: https://unlistedzone.com/shares
    link_pattern: "unlistedzone\\.com/shares/[a-z0-9-]+"
  - name: UnlistedArena
    url: https://www.unlistedarena.com/unlisted-shares/tata-capital
    extractor: UnlistedArena
    rendered: true
`)

	sources, err := LoadSources(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	assert.Equal(t, "UnlistedZone", sources[0].Name)
	assert.False(t, sources[0].Rendered)
	assert.Equal(t, "https://unlistedzone.com/shares", sources[0].IndexURL)
	assert.NotEmpty(t, sources[0].LinkPattern)

	assert.Equal(t, "UnlistedArena", sources[1].Name)
	assert.True(t, sources[1].Rendered)
	assert.Empty(t, sources[1].IndexURL)
}

func TestLoadSourcesRejectsIncompleteEntries(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing name", "sources:\n  - url: https://example.com\n    extractor: X\n"},
		{"missing url", "sources:\n  - name: X\n    extractor: X\n"},
		{"missing extractor", "sources:\n  - name: X\n    url: https://example.com\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSources(writeTempSources(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadSourcesMissingFile(t *testing.T) {
	_, err := LoadSources(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadSourcesInvalidYAML(t *testing.T) {
	_, err := LoadSources(writeTempSources(t, "sources: [unclosed"))
	assert.Error(t, err)
}
