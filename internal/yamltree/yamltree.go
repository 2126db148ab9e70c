// Package yamltree loads MultiQC YAML reports into yaml.v3 node trees and
// searches them for tags.
//
// A report is a mapping from sample name to a nested mapping of metrics.
// Nodes are kept as *yaml.Node rather than decoded into Go maps so that key
// order is preserved and scalars keep the exact text they were written with.
package yamltree

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"slices"

	"hostmetrics/internal/types"

	"gopkg.in/yaml.v3"
)

// ParseError reports a YAML file that cannot be used as a report.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Document is one YAML document of a report file.
type Document struct {
	Path string
	// Root is the top-level mapping, or nil for an empty document.
	Root *yaml.Node
}

// Entry is one top-level sample of a Document.
type Entry struct {
	Sample string
	Node   *yaml.Node
}

// Samples returns the top-level entries in document order.
func (d Document) Samples() []Entry {
	if d.Root == nil {
		return nil
	}
	ps := pairs(d.Root)
	entries := make([]Entry, 0, len(ps))
	for _, p := range ps {
		entries = append(entries, Entry{
			Sample: p.key.Value,
			Node:   Resolve(p.value),
		})
	}
	return entries
}

// LoadFile reads and parses a report file. The file is read fully and closed
// before parsing starts.
func LoadFile(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %w", path, err)
	}
	return Parse(path, data)
}

// Parse parses every document of a YAML stream. Each non-empty document must
// be a mapping whose keys are scalars; duplicate keys in any mapping are
// rejected.
func Parse(path string, data []byte) ([]Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var docs []Document
	for {
		var n yaml.Node
		err := dec.Decode(&n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}

		root := Resolve(&n)
		if root == nil || isNull(root) {
			docs = append(docs, Document{Path: path})
			continue
		}
		if root.Kind != yaml.MappingNode {
			return nil, &ParseError{
				Path: path,
				Err:  fmt.Errorf("line %d: top level is not a mapping of samples", root.Line),
			}
		}
		for i := 0; i < len(root.Content); i += 2 {
			if key := root.Content[i]; key.Kind != yaml.ScalarNode {
				return nil, &ParseError{
					Path: path,
					Err:  fmt.Errorf("line %d: sample key is not a scalar", key.Line),
				}
			}
		}
		if err := checkKeys(root); err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
		docs = append(docs, Document{Path: path, Root: root})
	}
	return docs, nil
}

// checkKeys rejects duplicate scalar keys. Aliased nodes are checked where
// their anchor is defined. Merge keys may repeat.
func checkKeys(n *yaml.Node) error {
	switch n.Kind {
	case yaml.MappingNode:
		seen := make(map[string]bool, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind == yaml.ScalarNode && !isMerge(key) {
				if seen[key.Value] {
					return fmt.Errorf("line %d: mapping key %q already defined", key.Line, key.Value)
				}
				seen[key.Value] = true
			}
			if err := checkKeys(n.Content[i+1]); err != nil {
				return err
			}
		}
	case yaml.SequenceNode:
		for _, c := range n.Content {
			if err := checkKeys(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// Resolve unwraps document and alias nodes.
func Resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func isMerge(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!merge"
}

type pair struct {
	key, value *yaml.Node
}

// pairs returns the entries of mapping n with "<<" merge keys expanded.
// Merged entries come first and explicit keys override them. When several
// mappings are merged, the earlier one wins. A key keeps the position of its
// first occurrence and the value of its last.
func pairs(n *yaml.Node) []pair {
	return expand(n, nil)
}

func expand(n *yaml.Node, seen []*yaml.Node) []pair {
	if slices.Contains(seen, n) {
		return nil
	}
	seen = append(seen, n)

	var merged, own []pair
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if !isMerge(k) {
			own = append(own, pair{key: k, value: v})
			continue
		}
		src := Resolve(v)
		if src == nil {
			continue
		}
		switch src.Kind {
		case yaml.MappingNode:
			merged = append(merged, expand(src, seen)...)
		case yaml.SequenceNode:
			for j := len(src.Content) - 1; j >= 0; j-- {
				if m := Resolve(src.Content[j]); m != nil && m.Kind == yaml.MappingNode {
					merged = append(merged, expand(m, seen)...)
				}
			}
		}
	}
	if len(merged) == 0 {
		return own
	}

	all := append(merged, own...)
	out := make([]pair, 0, len(all))
	index := make(map[string]int, len(all))
	for _, p := range all {
		if p.key.Kind == yaml.ScalarNode {
			if i, ok := index[p.key.Value]; ok {
				out[i].value = p.value
				continue
			}
			index[p.key.Value] = len(out)
		}
		out = append(out, p)
	}
	return out
}

func lookup(ps []pair, key string) (*yaml.Node, bool) {
	for _, p := range ps {
		if p.key.Kind == yaml.ScalarNode && p.key.Value == key {
			return Resolve(p.value), true
		}
	}
	return nil, false
}

// Lookup returns the value stored under key in mapping n, honouring merge
// keys.
func Lookup(n *yaml.Node, key string) (*yaml.Node, bool) {
	n = Resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		return nil, false
	}
	return lookup(pairs(n), key)
}

// FindTag yields every value stored under tag anywhere below n.
//
// At each mapping the direct match (if any) is yielded first, then every
// mapping-valued entry is searched depth-first in document order, including
// the entry that just matched. Sequences and scalars are not searched.
// The walk is recomputed on each iteration and stops as soon as the consumer
// stops.
func FindTag(n *yaml.Node, tag string) iter.Seq[*yaml.Node] {
	return func(yield func(*yaml.Node) bool) {
		findTag(n, tag, nil, yield)
	}
}

func findTag(n *yaml.Node, tag string, ancestors []*yaml.Node, yield func(*yaml.Node) bool) bool {
	n = Resolve(n)
	if n == nil || n.Kind != yaml.MappingNode || slices.Contains(ancestors, n) {
		return true
	}
	ps := pairs(n)
	if v, ok := lookup(ps, tag); ok {
		if !yield(v) {
			return false
		}
	}
	ancestors = append(ancestors, n)
	for _, p := range ps {
		if !findTag(p.value, tag, ancestors, yield) {
			return false
		}
	}
	return true
}

// First returns the first node of seq.
func First(seq iter.Seq[*yaml.Node]) (*yaml.Node, bool) {
	for n := range seq {
		return n, true
	}
	return nil, false
}

// FindPath follows a tag path: the first match of path[0] below n, then the
// first match of path[1] below that, and so on.
func FindPath(n *yaml.Node, path []string) (*yaml.Node, bool) {
	if len(path) == 0 {
		return nil, false
	}
	cur := n
	for _, tag := range path {
		next, ok := First(FindTag(cur, tag))
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// Value is an extracted report value.
type Value struct {
	node *yaml.Node
}

// ValueOf wraps n.
func ValueOf(n *yaml.Node) Value {
	return Value{node: Resolve(n)}
}

// Line returns the source line of the value, 0 when unknown.
func (v Value) Line() int {
	if v.node == nil {
		return 0
	}
	return v.node.Line
}

// Text returns the scalar text exactly as written in the report.
func (v Value) Text() (string, bool) {
	if v.node == nil || v.node.Kind != yaml.ScalarNode {
		return "", false
	}
	return v.node.Value, true
}

// Number decodes the value as an int or float scalar.
func (v Value) Number() (types.Number, error) {
	if v.node == nil || v.node.Kind != yaml.ScalarNode {
		return types.Number{}, errors.New("value is not a scalar")
	}
	var raw interface{}
	if err := v.node.Decode(&raw); err != nil {
		return types.Number{}, fmt.Errorf("failed to decode %q: %w", v.node.Value, err)
	}
	num, ok := types.ExtractNumber(raw)
	if !ok {
		return types.Number{}, fmt.Errorf("%q is not numeric", v.node.Value)
	}
	return num, nil
}
