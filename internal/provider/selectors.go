package provider

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/reviewlens/reviews-cli/pkg/browser"
)

// The selector list is configuration, not control flow: review sites change
// markup often, so the prioritized list ships as YAML and can be replaced
// without a rebuild.

//go:embed selectors.yaml
var defaultSelectorsYAML []byte

type selectorFile struct {
	Selectors []browser.Selector `yaml:"selectors"`
}

// DefaultSelectors returns the built-in prioritized selector list.
func DefaultSelectors() []browser.Selector {
	sels, err := parseSelectors(defaultSelectorsYAML)
	if err != nil {
		// The embedded file is validated by tests; a parse failure here is a
		// build defect.
		panic(err)
	}
	return sels
}

// LoadSelectors reads a selector list from a YAML file, falling back to the
// embedded defaults when path is empty.
func LoadSelectors(path string) ([]browser.Selector, error) {
	if path == "" {
		return DefaultSelectors(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "selectors: read %s", path)
	}
	return parseSelectors(data)
}

func parseSelectors(data []byte) ([]browser.Selector, error) {
	var f selectorFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "selectors: parse yaml")
	}
	if len(f.Selectors) == 0 {
		return nil, eris.New("selectors: empty selector list")
	}
	for i, s := range f.Selectors {
		if s.Container == "" {
			return nil, eris.Errorf("selectors: entry %d has no container selector", i)
		}
	}
	return f.Selectors, nil
}
