package datasmith

import (
	"fmt"
	"io"
	"strings"
)

// Child is either a *Node or a Text leaf.
type Child interface {
	render(b *strings.Builder, depth int)
}

// Text is a raw text leaf. A node should hold either a single Text or only
// structural children.
type Text string

func (t Text) render(b *strings.Builder, depth int) {
	b.WriteString(escaper.Replace(string(t)))
}

type Attr struct {
	Key   string
	Value string
}

// Node is a tagged element of the scene document.
type Node struct {
	Name     string
	Attrs    []Attr
	Children []Child
}

func NewNode(name string, attrs ...Attr) *Node {
	n := &Node{Name: name}
	for _, a := range attrs {
		n.Set(a.Key, a.Value)
	}
	return n
}

// TextNode returns <name>text</name>.
func TextNode(name, text string) *Node {
	n := NewNode(name)
	n.Push(Text(text))
	return n
}

// NodeValue returns <name value="x"/> with x in the fixed float form.
func NodeValue(name string, v float64) *Node {
	return NewNode(name, Attr{"value", formatFloat(v)})
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%6f", v)
}

// Set assigns an attribute; a new key renders after the existing ones.
func (n *Node) Set(key, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Key == key {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{key, value})
}

func (n *Node) Get(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Push appends c and returns its index.
func (n *Node) Push(c Child) int {
	n.Children = append(n.Children, c)
	return len(n.Children) - 1
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

// Render returns the markup of n and its subtree with n at the given
// indentation depth. The opening tag itself is not indented.
func (n *Node) Render(depth int) string {
	var b strings.Builder
	n.render(&b, depth)
	return b.String()
}

func (n *Node) String() string {
	return n.Render(0)
}

func (n *Node) WriteTo(w io.Writer) (int64, error) {
	c, err := io.WriteString(w, n.Render(0))
	return int64(c), err
}

func (n *Node) render(b *strings.Builder, depth int) {
	b.WriteByte('<')
	b.WriteString(n.Name)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(escaper.Replace(a.Value))
		b.WriteByte('"')
	}
	if len(n.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	if t, ok := n.Children[0].(Text); ok && len(n.Children) == 1 {
		t.render(b, depth+1)
	} else {
		for _, c := range n.Children {
			b.WriteByte('\n')
			indent(b, depth+1)
			c.render(b, depth+1)
		}
		b.WriteByte('\n')
		indent(b, depth)
	}
	b.WriteString("</")
	b.WriteString(n.Name)
	b.WriteByte('>')
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteByte('\t')
	}
}
