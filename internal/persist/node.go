// Package persist stores instrument state as a tree of named nodes, the
// shape save files use on the host side, and encodes that tree with
// protobuf for durable storage.
package persist

// Value is a single key/value pair on a Node. Keys may repeat.
type Value struct {
	Key   string
	Value string
}

// Node is a named container of values and child nodes.
type Node struct {
	Name     string
	values   []Value
	children []*Node
}

// NewNode returns an empty node.
func NewNode(name string) *Node {
	return &Node{Name: name}
}

// AddValue appends a value, keeping any existing values with the same key.
func (n *Node) AddValue(key, value string) {
	n.values = append(n.values, Value{Key: key, Value: value})
}

// SetValue replaces the first value stored under key, or appends one.
func (n *Node) SetValue(key, value string) {
	for i := range n.values {
		if n.values[i].Key == key {
			n.values[i].Value = value
			return
		}
	}
	n.AddValue(key, value)
}

// GetValue returns the first value stored under key.
func (n *Node) GetValue(key string) (string, bool) {
	for _, v := range n.values {
		if v.Key == key {
			return v.Value, true
		}
	}
	return "", false
}

// Values returns a copy of all values in insertion order.
func (n *Node) Values() []Value {
	return append([]Value(nil), n.values...)
}

// AddNode appends and returns a new child.
func (n *Node) AddNode(name string) *Node {
	child := NewNode(name)
	n.children = append(n.children, child)
	return child
}

// AppendNode appends an existing child.
func (n *Node) AppendNode(child *Node) {
	if child != nil {
		n.children = append(n.children, child)
	}
}

// HasNode reports whether a child with name exists.
func (n *Node) HasNode(name string) bool {
	for _, c := range n.children {
		if c.Name == name {
			return true
		}
	}
	return false
}

// GetNodes returns the children named name in order.
func (n *Node) GetNodes(name string) []*Node {
	var out []*Node
	for _, c := range n.children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Nodes returns all children in order.
func (n *Node) Nodes() []*Node {
	return append([]*Node(nil), n.children...)
}

// RemoveNodes deletes every child named name.
func (n *Node) RemoveNodes(name string) {
	kept := n.children[:0]
	for _, c := range n.children {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	for i := len(kept); i < len(n.children); i++ {
		n.children[i] = nil
	}
	n.children = kept
}
