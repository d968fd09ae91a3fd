package polyglot

import (
	"fmt"

	"github.com/pkg/errors"
)

// CombinedName is the name of the configuration holding every language.
const CombinedName = "combined"

// Config selects the languages a Builder reads. A Config is not modified after
// it is created.
type Config struct {
	Name        string
	Description string
	languages   []Language
}

// NewConfig returns a Config for langs, which must all be known languages.
func NewConfig(name, description string, langs ...Language) (*Config, error) {
	if len(langs) == 0 {
		return nil, errors.Errorf("config '%s' has no languages", name)
	}
	for _, l := range langs {
		if !l.Valid() {
			return nil, errors.Errorf("config '%s': unknown language '%s'", name, string(l))
		}
	}
	return &Config{
		Name:        name,
		Description: description,
		languages:   append([]Language(nil), langs...),
	}, nil
}

// Languages returns the selected languages in order.
func (c *Config) Languages() []Language {
	return append([]Language(nil), c.languages...)
}

// FilePaths returns the relative path of each selected language's file, in
// the same order as Languages.
func (c *Config) FilePaths() []string {
	paths := make([]string, len(c.languages))
	for i, l := range c.languages {
		paths[i] = filePaths[l]
	}
	return paths
}

// BuilderConfigs returns the predefined configurations: one per language,
// named by its code, followed by the combined configuration.
func BuilderConfigs() []*Config {
	configs := make([]*Config, 0, len(Languages)+1)
	for _, l := range Languages {
		configs = append(configs, &Config{
			Name:        string(l),
			Description: fmt.Sprintf("Polyglot-NER examples in %s.", string(l)),
			languages:   []Language{l},
		})
	}
	configs = append(configs, &Config{
		Name:        CombinedName,
		Description: "Complete Polyglot-NER dataset with all languages.",
		languages:   append([]Language(nil), Languages...),
	})
	return configs
}

// ConfigByName returns the predefined configuration called name.
func ConfigByName(name string) (*Config, error) {
	for _, c := range BuilderConfigs() {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, errors.Errorf("no config named '%s'", name)
}
