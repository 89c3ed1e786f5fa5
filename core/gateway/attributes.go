package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Attribute is a column name and a scalar value
type Attribute struct {
	Column string
	Value  interface{}
}

// Attributes is an ordered mapping of column name to scalar value. The order is
// the order of the keys in the JSON request document.
//
// Scalar values are string, int64, float64, bool or nil. Numbers are kept as int64
// whenever they are integral.
type Attributes []Attribute

// Columns returns the column names in order
func (a Attributes) Columns() []string {
	columns := make([]string, len(a))
	for i, attribute := range a {
		columns[i] = attribute.Column
	}
	return columns
}

// Values returns the values in order
func (a Attributes) Values() []interface{} {
	values := make([]interface{}, len(a))
	for i, attribute := range a {
		values[i] = attribute.Value
	}
	return values
}

// Get returns the value of a column
func (a Attributes) Get(column string) (interface{}, bool) {
	for _, attribute := range a {
		if attribute.Column == column {
			return attribute.Value, true
		}
	}
	return nil, false
}

// UnmarshalJSON decodes a JSON object of scalars, keeping the key order
func (a *Attributes) UnmarshalJSON(data []byte) error {
	om := orderedmap.New[string, json.RawMessage]()
	if err := om.UnmarshalJSON(data); err != nil {
		return err
	}
	result := make(Attributes, 0, om.Len())
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		value, err := scalarValue(pair.Value)
		if err != nil {
			return fmt.Errorf("attribute '%s': %w", pair.Key, err)
		}
		result = append(result, Attribute{Column: pair.Key, Value: value})
	}
	*a = result
	return nil
}

// MarshalJSON encodes the attributes as a JSON object in order
func (a Attributes) MarshalJSON() ([]byte, error) {
	om := orderedmap.New[string, interface{}](len(a))
	for _, attribute := range a {
		om.Set(attribute.Column, attribute.Value)
	}
	return om.MarshalJSON()
}

var errNotScalar = errors.New("value must be a string, number, boolean or null")

func scalarValue(raw json.RawMessage) (interface{}, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value interface{}
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		return v.Float64()
	case string, bool, nil:
		return v, nil
	}
	return nil, errNotScalar
}
