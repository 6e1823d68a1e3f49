// Package duration parses configuration durations written either as bare seconds
// ("30", "1.5") or as Go duration strings ("30s", "2m").
package duration

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Parse converts s into a duration. A bare number is read as seconds.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.ParseDuration(s)
	}
	ns := f * float64(time.Second)
	if math.IsNaN(ns) || math.Abs(ns) > math.MaxInt64 {
		return 0, fmt.Errorf("duration %q out of range", s)
	}
	return time.Duration(ns), nil
}

// DecodeYAML decodes a mapping node into out. Keys listed in fields are parsed with
// Parse into their target instead of being decoded into out. Null values leave the
// target untouched.
func DecodeYAML(node *yaml.Node, out any, fields map[string]*time.Duration) error {
	if node.Kind != yaml.MappingNode {
		return node.Decode(out)
	}

	rest := *node
	rest.Content = make([]*yaml.Node, 0, len(node.Content))
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		dst, ok := fields[key.Value]
		if !ok {
			rest.Content = append(rest.Content, key, value)
			continue
		}
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: %s must be a number of seconds or a duration", value.Line, key.Value)
		}
		if value.Tag == "!!null" {
			continue
		}
		d, err := Parse(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", value.Line, key.Value, err)
		}
		*dst = d
	}
	return rest.Decode(out)
}
