// ABOUTME: Infers an example invocation for a tool from its declared parameters.
// ABOUTME: Used in the decision prompt so actors see one concrete call per tool.

package toolset

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ExampleCall renders name({...}) with one value per parameter, taken from
// the default, else the first enum value, else a type placeholder.
func ExampleCall(d Descriptor) string {
	var b strings.Builder
	b.WriteString(d.Name)
	b.WriteString("({")
	for i, p := range d.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		key, _ := json.Marshal(p.Name)
		b.Write(key)
		b.WriteString(": ")
		b.WriteString(exampleValue(p))
	}
	b.WriteString("})")
	return b.String()
}

func exampleValue(p Param) string {
	raw := p.Default
	if raw == "" && len(p.Enum) > 0 {
		raw = p.Enum[0]
	}

	switch p.Type {
	case "number", "integer":
		if raw != "" {
			if _, err := strconv.ParseFloat(raw, 64); err == nil {
				return raw
			}
		}
		return "0"
	case "boolean":
		if raw == "true" || raw == "false" {
			return raw
		}
		return "false"
	case "object":
		if raw != "" && json.Valid([]byte(raw)) {
			return raw
		}
		return "{}"
	}

	if raw == "" {
		raw = "<" + p.Name + ">"
	}
	quoted, _ := json.Marshal(raw)
	return string(quoted)
}
