package engine

import "maps"

// Config is one module of a ruleset tree.
//
// Implementations must be safe for concurrent reads. [LoadConfig] produces
// immutable [*Node] trees.
type Config interface {
	// Name returns the module name.
	Name() string
	// Attribute returns the named attribute value.
	Attribute(name string) (string, bool)
	// AttributeNames returns attribute names in definition order.
	AttributeNames() []string
	// Messages returns the module's message overrides, keyed by message key.
	Messages() map[string]string
	// Children returns the module's child modules.
	Children() []Config
}

// Rewritable is implemented by configurations whose modules can be replaced
// without mutating the original tree.
type Rewritable interface {
	Config

	// WithAttribute returns a copy of the module with the attribute set.
	// An existing attribute of the same name is replaced; the updated
	// attribute always moves to the end of the definition order.
	WithAttribute(name, value string) Config
	// WithChildReplaced returns a copy of the module with child i replaced.
	// It panics if i is out of range.
	WithChildReplaced(i int, child Config) Config
}

type attribute struct {
	name  string
	value string
}

// Node is the immutable [Config] implementation produced by [LoadConfig].
type Node struct {
	messages map[string]string
	name     string
	attrs    []attribute
	children []Config
}

var (
	_ Config     = &Node{}
	_ Rewritable = &Node{}
)

// NodeOpt configures a [Node] during construction.
type NodeOpt func(n *Node)

// NewNode creates a ruleset module with the given name.
func NewNode(name string, opts ...NodeOpt) *Node {
	n := &Node{name: name}
	for _, opt := range opts {
		opt(n)
	}

	return n
}

// WithAttr adds an attribute to the module.
func WithAttr(name, value string) NodeOpt {
	return func(n *Node) {
		n.attrs = append(n.attrs, attribute{name: name, value: value})
	}
}

// WithMessage adds a message override to the module.
func WithMessage(key, value string) NodeOpt {
	return func(n *Node) {
		if n.messages == nil {
			n.messages = make(map[string]string)
		}

		n.messages[key] = value
	}
}

// WithChildNodes adds child modules to the module.
func WithChildNodes(children ...Config) NodeOpt {
	return func(n *Node) {
		n.children = append(n.children, children...)
	}
}

func (n *Node) Name() string {
	return n.name
}

func (n *Node) Attribute(name string) (string, bool) {
	for _, attr := range n.attrs {
		if attr.name == name {
			return attr.value, true
		}
	}

	return "", false
}

func (n *Node) AttributeNames() []string {
	names := make([]string, len(n.attrs))
	for i, attr := range n.attrs {
		names[i] = attr.name
	}

	return names
}

func (n *Node) Messages() map[string]string {
	return n.messages
}

func (n *Node) Children() []Config {
	return n.children
}

// WithAttribute returns a copy of the module with the attribute set. Other
// attributes, messages, and children are shared with the receiver.
func (n *Node) WithAttribute(name, value string) Config {
	attrs := make([]attribute, 0, len(n.attrs)+1)
	for _, attr := range n.attrs {
		if attr.name != name {
			attrs = append(attrs, attr)
		}
	}

	attrs = append(attrs, attribute{name: name, value: value})

	return &Node{
		name:     n.name,
		attrs:    attrs,
		messages: maps.Clone(n.messages),
		children: n.children,
	}
}

// WithChildReplaced returns a copy of the module with child i replaced.
func (n *Node) WithChildReplaced(i int, child Config) Config {
	if i < 0 || i >= len(n.children) {
		panic("engine: child index out of range")
	}

	children := make([]Config, len(n.children))
	copy(children, n.children)
	children[i] = child

	return &Node{
		name:     n.name,
		attrs:    n.attrs,
		messages: n.messages,
		children: children,
	}
}
