package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Parameter is one named extraction parameter, paired with the position
// it held in its dataset file's "parameters" object.
type Parameter struct {
	Name  string
	Value any
}

// ParameterList preserves a source's parameters in declaration order.
// A plain map[string]any cannot carry this: Go deliberately randomizes
// map iteration order, and a JSON object decoded into one loses its key
// order entirely, but relB's cursor call (§4.3.2, "added in the
// dictionary's iteration order") depends on the declared order surviving
// from the dataset file to the driver.
type ParameterList []Parameter

// Get returns the value named name and whether it was present.
func (p ParameterList) Get(name string) (any, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// UnmarshalJSON decodes a JSON object into a ParameterList, reading the
// object's keys off json.Decoder's token stream (rather than through a
// map) so their original order is preserved.
func (p *ParameterList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("parameters: expected a JSON object")
	}

	out := make(ParameterList, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("parameters: object key must be a string")
		}

		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("parameters: decoding value for %q: %w", name, err)
		}
		out = append(out, Parameter{Name: name, Value: value})
	}
	if _, err := dec.Token(); err != nil { // consume closing '}'
		return err
	}

	*p = out
	return nil
}

// MarshalJSON re-encodes the list as a JSON object in its stored order.
func (p ParameterList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, param := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		nameJSON, err := json.Marshal(param.Name)
		if err != nil {
			return nil, err
		}
		valueJSON, err := json.Marshal(param.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(nameJSON)
		buf.WriteByte(':')
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
