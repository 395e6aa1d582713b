package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cognicore/sealmeta/pkg/sealmeta/extract"
	"github.com/cognicore/sealmeta/pkg/sealmeta/internalerr"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "db.sqlite", cfg.OutputFile)
	assert.Equal(t, ".xml", cfg.Extension)
	assert.False(t, cfg.ContinueOnError)
}

func TestDefaultVocabularyMatchesExtractor(t *testing.T) {
	vocab, err := Default().Vocabulary()
	require.NoError(t, err)

	def := extract.DefaultVocabulary()
	assert.Equal(t, def.Namespace, vocab.Namespace)
	assert.Equal(t, def.LangNamespace, vocab.LangNamespace)
	assert.Equal(t, def.TypeLanguage, vocab.TypeLanguage)
	assert.Equal(t, def.FamilySuffix, vocab.FamilySuffix)
	assert.Equal(t, def.TagAnnotation.String(), vocab.TagAnnotation.String())
	assert.Equal(t, def.UnitPolicy, vocab.UnitPolicy)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeFile(t, "sealmeta.yaml", `
output_file: out/seals.sqlite
continue_on_error: true
unit_policy: fallback
extract:
  family_suffix: Sigillum
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "out/seals.sqlite", cfg.OutputFile)
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, "fallback", cfg.UnitPolicy)
	assert.Equal(t, "Sigillum", cfg.Extract.FamilySuffix)
	assert.Equal(t, "en", cfg.Extract.TypeLanguage, "unset keys keep defaults")
	assert.Equal(t, ".xml", cfg.Extension)
	assert.Equal(t, extract.LIDONamespace, cfg.Namespaces["lido"])
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad policy", "unit_policy: height\n"},
		{"bad extension", "extension: xml\n"},
		{"bad pattern", "extract:\n  tag_annotation_pattern: \"(\"\n"},
		{"empty namespace", "namespaces:\n  lido: \"\"\n"},
		{"empty language", "extract:\n  type_language: \"\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "c.yaml", tt.content))
			assert.ErrorIs(t, err, internalerr.ErrInvalidConfig)
		})
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeFile(t, "c.yaml", "output_file: [unterminated\n"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, internalerr.ErrInvalidConfig)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVocabularyCustomNamespace(t *testing.T) {
	cfg := Default()
	cfg.Namespaces = map[string]string{"lido": "urn:test"}

	vocab, err := cfg.Vocabulary()
	require.NoError(t, err)
	assert.Equal(t, "urn:test", vocab.Namespace)
	assert.NotEmpty(t, vocab.LangNamespace)
}

func TestLoadBootstrapScript(t *testing.T) {
	cfg := Default()
	script, err := cfg.LoadBootstrapScript()
	require.NoError(t, err)
	assert.Empty(t, script)

	cfg.BootstrapScript = writeFile(t, "init.sql", "CREATE TABLE x (id INTEGER);")
	script, err = cfg.LoadBootstrapScript()
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE x (id INTEGER);", script)

	cfg.BootstrapScript = filepath.Join(t.TempDir(), "missing.sql")
	_, err = cfg.LoadBootstrapScript()
	assert.ErrorIs(t, err, os.ErrNotExist)
}
