package descriptor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Field is one named entry of an ordered mapping.
type Field[V any] struct {
	Name  string
	Value V
}

// Fields is a mapping from name to V that keeps insertion order. It
// marshals to a JSON object or YAML mapping whose keys appear in that order.
type Fields[V any] []Field[V]

// Get returns the value stored under name.
func (f Fields[V]) Get(name string) (V, bool) {
	for _, e := range f {
		if e.Name == name {
			return e.Value, true
		}
	}
	var zero V
	return zero, false
}

// Has reports whether name is present.
func (f Fields[V]) Has(name string) bool {
	_, ok := f.Get(name)
	return ok
}

// Set stores v under name, replacing an existing entry in place so the
// original position is kept.
func (f *Fields[V]) Set(name string, v V) {
	for i := range *f {
		if (*f)[i].Name == name {
			(*f)[i].Value = v
			return
		}
	}
	*f = append(*f, Field[V]{Name: name, Value: v})
}

// Names returns the keys in insertion order.
func (f Fields[V]) Names() []string {
	names := make([]string, len(f))
	for i, e := range f {
		names[i] = e.Name
	}
	return names
}

func (f Fields[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", e.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (f *Fields[V]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*f = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	out := Fields[V]{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		out.Set(name, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}

func (f Fields[V]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, e := range f {
		var val yaml.Node
		if err := val.Encode(e.Value); err != nil {
			return nil, fmt.Errorf("field %q: %w", e.Name, err)
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: e.Name},
			&val,
		)
	}
	return node, nil
}

func (f *Fields[V]) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("expected mapping, got %v", value.Tag)
	}
	out := Fields[V]{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		name := value.Content[i].Value
		var v V
		if err := value.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
		out.Set(name, v)
	}
	*f = out
	return nil
}
