// Package frontmatter parses and serializes the YAML metadata block at the
// top of a markdown note. Only flat key→scalar and key→list-of-scalar
// mappings are accepted; key order is preserved so round-trips are stable.
package frontmatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tbrandt/othala/internal/apperr"
)

const delim = "---"

// Parse splits raw markdown into its frontmatter mapping and body. A file
// without a leading --- block yields an empty mapping. A block that is
// present but not a flat key→value mapping is an error, never silently
// dropped.
func Parse(data []byte) (*Map, string, error) {
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !delimited(trimmed) {
		return NewMap(), string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, "", fmt.Errorf("frontmatter: unterminated block: %w", apperr.ErrInvalidFrontmatter)
	}
	block := rest[:idx]
	after := rest[idx+1+len(delim):]
	body := strings.TrimPrefix(string(after), "\n")

	m, err := parseBlock(block)
	if err != nil {
		return nil, "", err
	}
	return m, body, nil
}

// delimited reports whether data (already stripped of leading newlines)
// opens with a frontmatter delimiter line.
func delimited(data []byte) bool {
	return bytes.HasPrefix(data, []byte(delim+"\n")) ||
		bytes.Equal(bytes.TrimRight(data, "\n\r"), []byte(delim))
}

// parseBlock decodes the YAML between the delimiters into an ordered Map,
// rejecting anything that is not a flat mapping of scalars or scalar lists.
func parseBlock(block []byte) (*Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil, fmt.Errorf("frontmatter: %v: %w", err, apperr.ErrInvalidFrontmatter)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		// Empty block between delimiters.
		return NewMap(), nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter: top level is not a mapping: %w", apperr.ErrInvalidFrontmatter)
	}

	m := NewMap()
	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valNode := root.Content[i], root.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("frontmatter: non-scalar key at line %d: %w", keyNode.Line, apperr.ErrInvalidFrontmatter)
		}
		v, err := valueFromNode(valNode)
		if err != nil {
			return nil, err
		}
		m.Set(keyNode.Value, v)
	}
	return m, nil
}

func valueFromNode(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return scalarFromNode(n)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, el := range n.Content {
			if el.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("frontmatter: nested value in list at line %d: %w", el.Line, apperr.ErrInvalidFrontmatter)
			}
			v, err := scalarFromNode(el)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return List(items...), nil
	default:
		return Value{}, fmt.Errorf("frontmatter: nested mapping at line %d: %w", n.Line, apperr.ErrInvalidFrontmatter)
	}
}

func scalarFromNode(n *yaml.Node) (Value, error) {
	switch n.Tag {
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return Value{}, fmt.Errorf("frontmatter: bad number %q: %w", n.Value, apperr.ErrInvalidFrontmatter)
		}
		return Number(f), nil
	case "!!bool":
		b, err := strconv.ParseBool(n.Value)
		if err != nil {
			return Value{}, fmt.Errorf("frontmatter: bad bool %q: %w", n.Value, apperr.ErrInvalidFrontmatter)
		}
		return Bool(b), nil
	case "!!null":
		return String(""), nil
	default:
		// !!str, !!timestamp and anything quoted read back as strings.
		return String(n.Value), nil
	}
}

// Serialize renders the mapping and body back into note file bytes. Keys
// come out in insertion order; an empty mapping usually produces no
// frontmatter block, unless one is needed to keep the body unambiguous.
func Serialize(m *Map, body string) []byte {
	if m.len() == 0 {
		// A body that itself opens with --- would read back as
		// frontmatter, so that case gets an explicit empty block.
		if delimited(bytes.TrimLeft([]byte(body), "\n\r")) {
			return []byte(delim + "\n" + delim + "\n" + body)
		}
		return []byte(body)
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			nodeFromValue(v),
		)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	// Encoding a hand-built mapping node cannot fail.
	_ = enc.Encode(root)
	_ = enc.Close()
	buf.WriteString(delim + "\n")
	buf.WriteString(body)
	return buf.Bytes()
}

func nodeFromValue(v Value) *yaml.Node {
	switch v.Kind() {
	case KindNumber:
		tag := "!!int"
		val := strconv.FormatFloat(v.AsNumber(), 'f', -1, 64)
		if strings.ContainsAny(val, ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: val}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v.AsBool())}
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode}
		for _, item := range v.Items() {
			n.Content = append(n.Content, nodeFromValue(item))
		}
		return n
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.AsString()}
	}
}
