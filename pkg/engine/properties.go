package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUndefinedProperty is returned when expansion hits a ${name} reference
// that has no value.
var ErrUndefinedProperty = errors.New("undefined property")

// Property is a single named value made available to ruleset property
// expansion.
type Property struct {
	Name  string
	Value string
}

// Properties holds the values substituted into ${name} references in ruleset
// attribute values. Definition order is preserved; later definitions of the
// same name win.
type Properties struct {
	index map[string]int
	props []Property
}

// NewProperties creates a [Properties] set from the given values.
func NewProperties(props ...Property) *Properties {
	p := &Properties{
		index: make(map[string]int, len(props)),
	}
	for _, prop := range props {
		p.Set(prop.Name, prop.Value)
	}

	return p
}

// Set adds or replaces the named property.
func (p *Properties) Set(name, value string) {
	if i, ok := p.index[name]; ok {
		p.props[i].Value = value

		return
	}

	p.index[name] = len(p.props)
	p.props = append(p.props, Property{Name: name, Value: value})
}

// Resolve returns the value for name.
func (p *Properties) Resolve(name string) (string, bool) {
	if p == nil {
		return "", false
	}

	i, ok := p.index[name]
	if !ok {
		return "", false
	}

	return p.props[i].Value, true
}

// Names returns property names in definition order.
func (p *Properties) Names() []string {
	if p == nil {
		return nil
	}

	names := make([]string, len(p.props))
	for i, prop := range p.props {
		names[i] = prop.Name
	}

	return names
}

// Expand replaces every ${name} reference in s with its resolved value.
// A literal dollar sign can be written as $$. Expansion fails if any
// reference is undefined or unterminated.
func (p *Properties) Expand(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var sb strings.Builder

	for i := 0; i < len(s); {
		if s[i] != '$' {
			sb.WriteByte(s[i])
			i++

			continue
		}

		// Escaped dollar sign.
		if i+1 < len(s) && s[i+1] == '$' {
			sb.WriteByte('$')
			i += 2

			continue
		}

		if i+1 < len(s) && s[i+1] == '{' {
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return "", fmt.Errorf("unterminated property reference in %q", s)
			}

			name := s[i+2 : i+2+end]

			value, ok := p.Resolve(name)
			if !ok {
				return "", fmt.Errorf("%w: ${%s}", ErrUndefinedProperty, name)
			}

			sb.WriteString(value)
			i += end + 3

			continue
		}

		sb.WriteByte('$')
		i++
	}

	return sb.String(), nil
}
