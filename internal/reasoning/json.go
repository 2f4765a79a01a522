// ABOUTME: Extracts and decodes the JSON object embedded in a model response.
// ABOUTME: Tolerates code fences and prose around the object.

package reasoning

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON returns the first balanced top-level JSON object in text.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON object found", ErrInvalidResponse)
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unterminated JSON object", ErrInvalidResponse)
}

// Decode extracts the JSON object from text and decodes it into v.
// Numbers decode as json.Number.
func Decode(text string, v any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// ContractText renders a contract for providers without native schema support.
func ContractText(c *Contract) string {
	if c == nil {
		return ""
	}
	schema, err := json.MarshalIndent(c.Schema, "", "  ")
	if err != nil {
		schema = []byte("{}")
	}
	var b strings.Builder
	b.WriteString("Respond with a single JSON object")
	if c.Description != "" {
		b.WriteString(" (")
		b.WriteString(c.Description)
		b.WriteString(")")
	}
	b.WriteString(" matching this JSON schema, and nothing else:\n")
	b.Write(schema)
	return b.String()
}
