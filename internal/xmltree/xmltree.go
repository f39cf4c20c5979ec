// Package xmltree parses XML documents into a generic element tree whose
// attributes carry inferred types.
//
// Parsing never panics and never yields a partial tree: a broken document
// comes back as a Document with Valid unset and a Message describing the
// failure.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"sort"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/text/encoding/ianaindex"
)

// Keys used by ToMap for element text and grouped children.
const (
	TextKey     = "_text"
	ChildrenKey = "_children"
)

// Node is an XML element. A node exclusively owns its children.
// Text is the first non-blank character-data run directly under the
// element, trimmed; runs after a child element or comment are dropped.
// Attribute keys keep their namespace prefix ("xml:lang", "xmlns:x").
type Node struct {
	Name       string
	Text       string
	Attributes map[string]Attribute
	Children   []*Node
}

// Document is the result of a parse. Root is nil unless Valid.
type Document struct {
	Root    *Node
	Valid   bool
	Message string
}

func invalid(format string, args ...any) Document {
	return Document{Message: fmt.Sprintf(format, args...)}
}

// Attr returns the named attribute; missing attributes read as an empty string.
func (n *Node) Attr(name string) (Attribute, bool) {
	if n == nil {
		return Attribute{}, false
	}
	a, ok := n.Attributes[name]
	return a, ok
}

// Child returns the first child element with the given name.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every child element with the given name, in document order.
func (n *Node) ChildrenNamed(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// ToMap converts the subtree into nested maps. Attributes map 1:1 with
// their typed values, text goes under TextKey and children are grouped by
// name under ChildrenKey: a single child is a map, the first duplicate
// promotes it to a two-element []any and later duplicates append.
func (n *Node) ToMap() map[string]any {
	out := make(map[string]any)
	if n == nil {
		return out
	}

	for key, attr := range n.Attributes {
		out[key] = attr.Value()
	}
	if n.Text != "" {
		out[TextKey] = n.Text
	}

	if len(n.Children) > 0 {
		grouped := make(map[string]any, len(n.Children))
		for _, child := range n.Children {
			m := child.ToMap()
			switch existing := grouped[child.Name].(type) {
			case nil:
				grouped[child.Name] = m
			case []any:
				grouped[child.Name] = append(existing, m)
			default:
				grouped[child.Name] = []any{existing, m}
			}
		}
		out[ChildrenKey] = grouped
	}
	return out
}

// frame is an element under construction.
type frame struct {
	node     *Node
	text     strings.Builder
	textDone bool
	prefixes map[string]string // namespace URI -> prefix in scope
}

// closeText ends the first text run once something other than text follows it.
func (f *frame) closeText() {
	if f.text.Len() > 0 {
		f.textDone = true
	}
}

// Parse reads a whole document from r.
func Parse(r io.Reader) Document {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = charsetReader

	var (
		stack []*frame
		root  *Node
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return invalid("failed to parse XML: %v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) == 0 && root != nil {
				return invalid("failed to parse XML: multiple root elements (%s after %s)", t.Name.Local, root.Name)
			}
			node := &Node{
				Name:       t.Name.Local,
				Attributes: make(map[string]Attribute, len(t.Attr)),
			}
			var prefixes map[string]string
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.closeText()
				prefixes = parent.prefixes
			}
			prefixes = declare(prefixes, t.Attr)
			for _, a := range t.Attr {
				node.Attributes[attrKey(a.Name, prefixes)] = Infer(a.Value)
			}
			stack = append(stack, &frame{node: node, prefixes: prefixes})

		case xml.EndElement:
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top.node.Text = strings.TrimSpace(top.text.String())
			if len(stack) == 0 {
				root = top.node
			} else {
				parent := stack[len(stack)-1].node
				parent.Children = append(parent.Children, top.node)
			}

		case xml.CharData:
			if strings.TrimSpace(string(t)) == "" {
				continue
			}
			if len(stack) == 0 {
				return invalid("failed to parse XML: text outside the root element")
			}
			if top := stack[len(stack)-1]; !top.textDone {
				top.text.Write(t)
			}

		case xml.Comment:
			if len(stack) > 0 {
				stack[len(stack)-1].closeText()
			}
		}
	}

	if root == nil {
		return invalid("failed to parse XML: no root element")
	}
	return Document{Root: root, Valid: true}
}

// ParseString parses an in-memory document.
func ParseString(content string) Document {
	return Parse(strings.NewReader(content))
}

// ParseFile parses the file at path on fs.
func ParseFile(fs billy.Filesystem, path string) Document {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return invalid("file does not exist: %s", path)
		}
		return invalid("failed to read %s: %v", path, err)
	}
	doc := Parse(bytes.NewReader(data))
	if !doc.Valid {
		doc.Message = path + ": " + doc.Message
	}
	return doc
}

// ListFiles returns every file below dir whose name ends in ext, sorted.
func ListFiles(fs billy.Filesystem, dir, ext string) ([]string, error) {
	if _, err := fs.Stat(dir); err != nil {
		return nil, fmt.Errorf("xmltree: list %s: %w", dir, err)
	}
	var out []string
	if err := collect(fs, dir, ext, &out); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func collect(fs billy.Filesystem, dir, ext string, out *[]string) error {
	entries, err := fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("xmltree: read dir %s: %w", dir, err)
	}
	for _, e := range entries {
		p := fs.Join(dir, e.Name())
		if e.IsDir() {
			if err := collect(fs, p, ext, out); err != nil {
				return err
			}
			continue
		}
		if strings.HasSuffix(e.Name(), ext) {
			*out = append(*out, p)
		}
	}
	return nil
}

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// declare returns the prefix scope of an element: its parent's scope plus
// any xmlns:prefix declarations among attrs. The parent map is not modified.
func declare(parent map[string]string, attrs []xml.Attr) map[string]string {
	scope, copied := parent, false
	for _, a := range attrs {
		if a.Name.Space != "xmlns" {
			continue
		}
		if !copied {
			scope = make(map[string]string, len(parent)+1)
			maps.Copy(scope, parent)
			copied = true
		}
		scope[a.Value] = a.Name.Local
	}
	return scope
}

// attrKey rebuilds the qualified attribute name the decoder resolved to a
// namespace URI.
func attrKey(name xml.Name, prefixes map[string]string) string {
	switch name.Space {
	case "":
		return name.Local
	case "xmlns":
		return "xmlns:" + name.Local
	case xmlNamespace:
		return "xml:" + name.Local
	}
	if p, ok := prefixes[name.Space]; ok {
		return p + ":" + name.Local
	}
	// undeclared prefixes are left unresolved by the decoder
	return name.Space + ":" + name.Local
}

// charsetReader decodes documents that declare a non UTF-8 encoding.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(input), nil
}
