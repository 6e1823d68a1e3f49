package toolchain

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CatalogText renders the catalog as one "- name: description" line per tool, followed
// by the parameter schema in YAML for tools that publish one.
func CatalogText(entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "(none)", nil
	}

	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "- %s: %s", e.Name, e.Description)
		if e.Parameters == nil {
			continue
		}
		params, err := yaml.Marshal(e.Parameters)
		if err != nil {
			return "", fmt.Errorf("toolchain: encode parameters of %s: %w", e.Name, err)
		}
		sb.WriteString("\n  Parameters:")
		for _, line := range strings.Split(string(params), "\n") {
			if line != "" {
				sb.WriteString("\n    ")
				sb.WriteString(line)
			}
		}
	}
	return sb.String(), nil
}

// CatalogYAML renders the full catalog entries as a YAML sequence.
func CatalogYAML(entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "[]", nil
	}
	b, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("toolchain: encode catalog: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}
