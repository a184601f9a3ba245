package jutsu

import (
	"fmt"
	"strings"
)

// Template is a compiled prompt template. Slots are written {name}; {{ and
// }} stand for literal braces.
type Template struct {
	segments []segment
	params   []string
}

type segment struct {
	text  string
	param string // empty for literal text
}

// ParseTemplate compiles a template and records its placeholders in order
// of first appearance.
func ParseTemplate(src string) (*Template, error) {
	t := &Template{}
	seen := make(map[string]bool)
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			if i+1 < len(src) && src[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(src[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed placeholder at offset %d", i)
			}
			name := src[i+1 : i+1+end]
			if !isIdentifier(name) {
				return nil, fmt.Errorf("invalid placeholder %q at offset %d", name, i)
			}
			flush()
			t.segments = append(t.segments, segment{param: name})
			if !seen[name] {
				seen[name] = true
				t.params = append(t.params, name)
			}
			i += end + 1
		case '}':
			if i+1 < len(src) && src[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("unmatched '}' at offset %d", i)
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	return t, nil
}

// Params returns the placeholder names.
func (t *Template) Params() []string {
	params := make([]string, len(t.params))
	copy(params, t.params)
	return params
}

// Execute fills every slot from values. A missing value is an error.
func (t *Template) Execute(values map[string]string) (string, error) {
	var out strings.Builder
	for _, seg := range t.segments {
		if seg.param == "" {
			out.WriteString(seg.text)
			continue
		}
		v, ok := values[seg.param]
		if !ok {
			return "", fmt.Errorf("missing value for {%s}", seg.param)
		}
		out.WriteString(v)
	}
	return out.String(), nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}
