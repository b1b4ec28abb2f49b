package criticalcss

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supplement is a hand written stylesheet appended to the generated CSS.
// "$name" placeholders are replaced with values from Variables and
// VariablesFile; inline Variables win over the file.
type Supplement struct {
	Path          string
	Variables     map[string]string
	VariablesFile string
}

// Render reads the stylesheet and substitutes its placeholders. An empty Path
// renders nothing.
func (s *Supplement) Render() (string, error) {
	if s.Path == "" {
		return "", nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("read supplementary stylesheet: %w", err)
	}
	vars, err := s.variables()
	if err != nil {
		return "", err
	}
	return Substitute(string(data), vars), nil
}

func (s *Supplement) variables() (map[string]string, error) {
	vars := map[string]string{}
	if s.VariablesFile != "" {
		data, err := os.ReadFile(s.VariablesFile)
		if err != nil {
			return nil, fmt.Errorf("read stylesheet variables: %w", err)
		}
		if err := yaml.Unmarshal(data, &vars); err != nil {
			return nil, fmt.Errorf("parse stylesheet variables %s: %w", s.VariablesFile, err)
		}
	}
	maps.Copy(vars, s.Variables)
	return vars, nil
}

// Substitute replaces every "$key" in css with its value. Longer keys are
// applied first so "$accent-dark" is not clobbered by "$accent".
func Substitute(css string, vars map[string]string) string {
	keys := slices.Collect(maps.Keys(vars))
	slices.SortFunc(keys, func(a, b string) int {
		if len(a) != len(b) {
			return len(b) - len(a)
		}
		return strings.Compare(a, b)
	})
	for _, k := range keys {
		css = strings.ReplaceAll(css, "$"+k, vars[k])
	}
	return css
}
