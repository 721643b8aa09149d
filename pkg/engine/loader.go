package engine

import (
	"encoding/xml"
	"fmt"
	"io"
)

type xmlModule struct {
	XMLName    xml.Name      `xml:"module"`
	Name       string        `xml:"name,attr"`
	Properties []xmlProperty `xml:"property"`
	Messages   []xmlMessage  `xml:"message"`
	Modules    []xmlModule   `xml:"module"`
}

type xmlProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlMessage struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

// LoadConfig parses a ruleset document into a [Config] tree. Property values
// have ${name} references expanded against props. All parse and expansion
// failures are reported as a [*ConfigError].
func LoadConfig(r io.Reader, props *Properties) (*Node, error) {
	var root xmlModule

	err := xml.NewDecoder(r).Decode(&root)
	if err != nil {
		return nil, configErrorf("parse ruleset: %w", err)
	}

	return buildNode(&root, props)
}

func buildNode(m *xmlModule, props *Properties) (*Node, error) {
	if m.Name == "" {
		return nil, configErrorf("module is missing a name attribute")
	}

	n := &Node{name: m.Name}

	for _, p := range m.Properties {
		if p.Name == "" {
			return nil, configErrorf("module %s: property is missing a name attribute", m.Name)
		}

		value, err := props.Expand(p.Value)
		if err != nil {
			return nil, configErrorf("module %s: property %s: %w", m.Name, p.Name, err)
		}

		n.setAttr(p.Name, value)
	}

	for _, msg := range m.Messages {
		if msg.Key == "" {
			return nil, configErrorf("module %s: message is missing a key attribute", m.Name)
		}

		if n.messages == nil {
			n.messages = make(map[string]string)
		}

		n.messages[msg.Key] = msg.Value
	}

	for i := range m.Modules {
		child, err := buildNode(&m.Modules[i], props)
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", m.Name, err)
		}

		n.children = append(n.children, child)
	}

	return n, nil
}

// setAttr replaces an existing attribute of the same name, so the last
// definition in a document wins.
func (n *Node) setAttr(name, value string) {
	for i, attr := range n.attrs {
		if attr.name == name {
			n.attrs[i].value = value

			return
		}
	}

	n.attrs = append(n.attrs, attribute{name: name, value: value})
}
