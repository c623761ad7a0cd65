package generate

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xeipuuv/gojsonschema"
)

// ErrNoJSON is returned when a response contains no balanced JSON object.
var ErrNoJSON = eris.New("generate: no JSON object in response")

// StripCodeFence removes a surrounding markdown code fence, with or without
// a language tag. Text without a leading fence is returned trimmed.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		tag := text[:idx]
		if len(tag) < 20 && !strings.ContainsAny(tag, " {") {
			text = text[idx+1:]
		}
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// ExtractJSONObject returns the first balanced {...} span in text. Braces
// inside JSON strings, including escaped quotes, are ignored.
func ExtractJSONObject(text string) (string, error) {
	text = StripCodeFence(text)

	start := strings.IndexByte(text, '{')
	for start >= 0 {
		if end := matchBrace(text, start); end > 0 {
			return text[start : end+1], nil
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", ErrNoJSON
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Schema is a compiled JSON schema for a generated object.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// MustSchema compiles src or panics. Intended for package-level schemas.
func MustSchema(name, src string) *Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic("generate: compile schema " + name + ": " + err.Error())
	}
	return &Schema{name: name, schema: s}
}

// ShapeError lists the schema violations of a generated object.
type ShapeError struct {
	Schema   string
	Problems []string
}

func (e *ShapeError) Error() string {
	return "generate: " + e.Schema + " response shape: " + strings.Join(e.Problems, "; ")
}

// DecodeObject extracts the first JSON object from a raw model response,
// validates it against schema, and decodes it into out.
func DecodeObject(raw string, schema *Schema, out any) error {
	span, err := ExtractJSONObject(raw)
	if err != nil {
		return err
	}

	result, err := schema.schema.Validate(gojsonschema.NewStringLoader(span))
	if err != nil {
		return eris.Wrapf(err, "generate: parse %s response", schema.name)
	}
	if !result.Valid() {
		se := &ShapeError{Schema: schema.name}
		for _, d := range result.Errors() {
			field := d.Field()
			if field == "" {
				field = "(root)"
			}
			se.Problems = append(se.Problems, field+": "+d.Description())
		}
		return se
	}

	if err := json.Unmarshal([]byte(span), out); err != nil {
		return eris.Wrapf(err, "generate: decode %s response", schema.name)
	}
	return nil
}
