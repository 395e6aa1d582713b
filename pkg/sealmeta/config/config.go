package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/sealmeta/pkg/sealmeta/extract"
	"github.com/cognicore/sealmeta/pkg/sealmeta/internalerr"
	"github.com/cognicore/sealmeta/pkg/sealmeta/xmldoc"
)

// DefaultOutputFile is the store written when no output path is given.
const DefaultOutputFile = "db.sqlite"

// Config holds the run configuration
type Config struct {
	OutputFile      string            `yaml:"output_file"`
	Extension       string            `yaml:"extension"`
	BootstrapScript string            `yaml:"bootstrap_script"`
	ContinueOnError bool              `yaml:"continue_on_error"`
	UnitPolicy      string            `yaml:"unit_policy"`
	Namespaces      map[string]string `yaml:"namespaces"`
	Extract         Extract           `yaml:"extract"`
}

// Extract holds the vocabulary settings for the field extractor
type Extract struct {
	TypeLanguage         string `yaml:"type_language"`
	FamilySuffix         string `yaml:"family_suffix"`
	TagAnnotationPattern string `yaml:"tag_annotation_pattern"`
}

// Default returns the configuration for LIDO seal records
func Default() Config {
	return Config{
		OutputFile: DefaultOutputFile,
		Extension:  ".xml",
		UnitPolicy: string(extract.UnitFromWidth),
		Namespaces: map[string]string{
			"xml":  xmldoc.XMLNamespace,
			"lido": extract.LIDONamespace,
		},
		Extract: Extract{
			TypeLanguage:         "en",
			FamilySuffix:         "Siegel",
			TagAnnotationPattern: ` <.*>`,
		},
	}
}

// Load reads a YAML file on top of the defaults
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every setting can be used
func (c Config) Validate() error {
	if c.OutputFile == "" {
		return fmt.Errorf("%w: output_file is empty", internalerr.ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.Extension, ".") {
		return fmt.Errorf("%w: extension %q must start with a dot", internalerr.ErrInvalidConfig, c.Extension)
	}
	if !extract.UnitPolicy(c.UnitPolicy).Valid() {
		return fmt.Errorf("%w: unit_policy %q (want %q or %q)", internalerr.ErrInvalidConfig,
			c.UnitPolicy, extract.UnitFromWidth, extract.UnitFallback)
	}
	if c.Namespaces["lido"] == "" {
		return fmt.Errorf("%w: namespaces.lido is empty", internalerr.ErrInvalidConfig)
	}
	if c.Extract.TypeLanguage == "" {
		return fmt.Errorf("%w: extract.type_language is empty", internalerr.ErrInvalidConfig)
	}
	if _, err := regexp.Compile(c.Extract.TagAnnotationPattern); err != nil {
		return fmt.Errorf("%w: extract.tag_annotation_pattern: %v", internalerr.ErrInvalidConfig, err)
	}
	return nil
}

// Vocabulary builds the extractor configuration
func (c Config) Vocabulary() (extract.Vocabulary, error) {
	if err := c.Validate(); err != nil {
		return extract.Vocabulary{}, err
	}

	langNS := c.Namespaces["xml"]
	if langNS == "" {
		langNS = xmldoc.XMLNamespace
	}

	return extract.Vocabulary{
		Namespace:     c.Namespaces["lido"],
		LangNamespace: langNS,
		TypeLanguage:  c.Extract.TypeLanguage,
		FamilySuffix:  c.Extract.FamilySuffix,
		TagAnnotation: regexp.MustCompile(c.Extract.TagAnnotationPattern),
		UnitPolicy:    extract.UnitPolicy(c.UnitPolicy),
	}, nil
}

// LoadBootstrapScript returns the contents of BootstrapScript, or "" when
// the embedded script should be used
func (c Config) LoadBootstrapScript() (string, error) {
	if c.BootstrapScript == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.BootstrapScript)
	if err != nil {
		return "", fmt.Errorf("read bootstrap script: %w", err)
	}
	return string(data), nil
}
