package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// Operation represents a gateway operation on a table, one of Insert, Update, Delete, Search or Join
type Operation string

// all supported gateway operations
const (
	OperationInsert Operation = "insert"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
	OperationSearch Operation = "search"
	OperationJoin   Operation = "join"
)

// UnmarshalJSON is a custom JSON unmarshaller
func (o *Operation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = Operation(s)
	if !o.IsValid() {
		return fmt.Errorf("%s is not valid Operation", s)
	}
	return nil
}

// IsValid returns true if o is one of the known operations
func (o Operation) IsValid() bool {
	switch o {
	case OperationInsert, OperationUpdate, OperationDelete, OperationSearch, OperationJoin:
		return true
	}
	return false
}

// Mutates returns true for operations which change data in a target database
func (o Operation) Mutates() bool {
	return o == OperationInsert || o == OperationUpdate || o == OperationDelete
}

// Notifier is an interface to receive notifications about successful mutations.
// The payload is a JSON document describing the mutation.
type Notifier interface {
	Notify(ctx context.Context, table string, operation Operation, payload []byte)
}
