package docnode

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML parses YAML (or YAML-compatible JSON, since JSON is a
// syntactic subset of YAML's flow style) into a Node tree, carrying
// over yaml.v3's line/column tracking so configdoc diagnostics can
// point at the exact source position of an offending key.
//
// This is also the front end used for the recipe/settings JSON
// format: rather than hand-rolling a second tokenizer that
// only differs from the indented-block one in syntax, JSON documents
// are parsed through the same YAML decoder that handles hand-authored
// YAML overrides, since every valid JSON document is valid YAML flow
// syntax.
func ParseYAML(file string, data []byte) (*Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if len(root.Content) == 0 {
		return &Node{Kind: Mapping, Pos: Position{File: file, Line: 1, Col: 1}}, nil
	}
	return fromYAMLNode(file, root.Content[0]), nil
}

// ParseJSON is an alias for ParseYAML: see its doc comment for why one
// decoder serves both front ends.
func ParseJSON(file string, data []byte) (*Node, error) {
	return ParseYAML(file, data)
}

func fromYAMLNode(file string, y *yaml.Node) *Node {
	pos := Position{File: file, Line: y.Line, Col: y.Column}
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return &Node{Kind: Mapping, Pos: pos}
		}
		return fromYAMLNode(file, y.Content[0])
	case yaml.MappingNode:
		n := &Node{Kind: Mapping, Pos: pos, Tag: y.Tag}
		for i := 0; i+1 < len(y.Content); i += 2 {
			keyNode := y.Content[i]
			valNode := y.Content[i+1]
			n.Pairs = append(n.Pairs, Pair{
				Key:    keyNode.Value,
				KeyPos: Position{File: file, Line: keyNode.Line, Col: keyNode.Column},
				Value:  fromYAMLNode(file, valNode),
			})
		}
		return n
	case yaml.SequenceNode:
		n := &Node{Kind: Sequence, Pos: pos, Tag: y.Tag}
		for _, item := range y.Content {
			n.Items = append(n.Items, fromYAMLNode(file, item))
		}
		return n
	case yaml.ScalarNode:
		n := &Node{Kind: Scalar, Pos: pos, Tag: y.Tag, ScalarValue: y.Value}
		if y.Tag == "!!null" {
			n.IsNull = true
		}
		return n
	case yaml.AliasNode:
		if y.Alias != nil {
			return fromYAMLNode(file, y.Alias)
		}
		return &Node{Kind: Scalar, Pos: pos, IsNull: true}
	default:
		return &Node{Kind: Scalar, Pos: pos, IsNull: true}
	}
}

// ToYAML serializes a Node tree back to YAML bytes, used when the
// configuration engine's Merge result needs to be written back to disk
// (e.g. `dub upgrade` rewriting a selections file).
func ToYAML(n *Node) ([]byte, error) {
	return yaml.Marshal(toYAMLValue(n))
}

func toYAMLValue(n *Node) any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case Mapping:
		m := make(map[string]any, len(n.Pairs))
		order := make([]string, 0, len(n.Pairs))
		for _, p := range n.Pairs {
			m[p.Key] = toYAMLValue(p.Value)
			order = append(order, p.Key)
		}
		return orderedMap{keys: order, values: m}
	case Sequence:
		items := make([]any, len(n.Items))
		for i, it := range n.Items {
			items[i] = toYAMLValue(it)
		}
		return items
	default:
		if n.IsNull {
			return nil
		}
		return n.ScalarValue
	}
}

// orderedMap implements yaml.Marshaler to preserve key order on output,
// since map[string]any would otherwise serialize in random Go-map order.
type orderedMap struct {
	keys   []string
	values map[string]any
}

func (o orderedMap) MarshalYAML() (any, error) {
	content := make([]*yaml.Node, 0, len(o.keys)*2)
	for _, k := range o.keys {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: k}
		var valNode yaml.Node
		if err := valNode.Encode(o.values[k]); err != nil {
			return nil, err
		}
		content = append(content, keyNode, &valNode)
	}
	return &yaml.Node{Kind: yaml.MappingNode, Content: content}, nil
}
