// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/relabs-tech/tablegate/core/csql"
)

/*
The query builders interpolate the table name and all column names directly into
the SQL text, relational engines cannot bind identifiers. Identifiers are trusted:
they must be constrained to a known schema by the deployment, for example with the
gateway's table allow-list. Every value is passed as a bound parameter.
*/

// Statement is SQL text with its ordered bound parameters
type Statement struct {
	SQL    string
	Params []interface{}
}

// ErrEmptyAttributes is returned by the builders for empty filter or value maps
var ErrEmptyAttributes = errors.New("attributes must not be empty")

// returns c[0] = p(offset+1) AND ... AND c[n-1] = p(offset+n)
func compareString(d csql.Dialect, offset int, columns []string, operator, separator string) string {
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = column + " " + operator + " " + d.Placeholder(offset+i+1)
	}
	return strings.Join(parts, separator)
}

// returns p(1), ..., p(n)
func parameterString(d csql.Dialect, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = d.Placeholder(i + 1)
	}
	return strings.Join(parts, ", ")
}

// likeValue wraps a value in percent wildcards
func likeValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return "%%"
	case string:
		return "%" + v + "%"
	default:
		return "%" + fmt.Sprint(v) + "%"
	}
}

// BuildSelect returns SELECT * with an equality match on every filter column
func BuildSelect(d csql.Dialect, table string, filters Attributes) (Statement, error) {
	if len(filters) == 0 {
		return Statement{}, ErrEmptyAttributes
	}
	return Statement{
		SQL:    "SELECT * FROM " + table + " WHERE " + compareString(d, 0, filters.Columns(), "=", " AND "),
		Params: filters.Values(),
	}, nil
}

// BuildLike returns SELECT * with a substring match on every column. Each value
// is wrapped as %value% exactly once.
func BuildLike(d csql.Dialect, table string, likes Attributes) (Statement, error) {
	if len(likes) == 0 {
		return Statement{}, ErrEmptyAttributes
	}
	params := make([]interface{}, len(likes))
	for i, attribute := range likes {
		params[i] = likeValue(attribute.Value)
	}
	return Statement{
		SQL:    "SELECT * FROM " + table + " WHERE " + compareString(d, 0, likes.Columns(), "LIKE", " AND "),
		Params: params,
	}, nil
}

// BuildInsert returns a single row INSERT with the columns in attribute order
func BuildInsert(d csql.Dialect, table string, values Attributes) (Statement, error) {
	if len(values) == 0 {
		return Statement{}, ErrEmptyAttributes
	}
	return Statement{
		SQL:    "INSERT INTO " + table + " (" + strings.Join(values.Columns(), ", ") + ") VALUES (" + parameterString(d, len(values)) + ")",
		Params: values.Values(),
	}, nil
}

// BuildUpdate returns an UPDATE. The parameters are the changed values followed by
// the filter values, matching the order of the SET and WHERE clauses.
func BuildUpdate(d csql.Dialect, table string, filters, changed Attributes) (Statement, error) {
	if len(filters) == 0 || len(changed) == 0 {
		return Statement{}, ErrEmptyAttributes
	}
	params := append(changed.Values(), filters.Values()...)
	return Statement{
		SQL: "UPDATE " + table +
			" SET " + compareString(d, 0, changed.Columns(), "=", ", ") +
			" WHERE " + compareString(d, len(changed), filters.Columns(), "=", " AND "),
		Params: params,
	}, nil
}

// BuildDelete returns a DELETE with an equality match on every filter column
func BuildDelete(d csql.Dialect, table string, filters Attributes) (Statement, error) {
	if len(filters) == 0 {
		return Statement{}, ErrEmptyAttributes
	}
	return Statement{
		SQL:    "DELETE FROM " + table + " WHERE " + compareString(d, 0, filters.Columns(), "=", " AND "),
		Params: filters.Values(),
	}, nil
}
