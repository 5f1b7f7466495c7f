// Package query is an optional field-predicate builder that sits on top of
// the store's opaque Filter/Modify callback shape. It never reaches into
// store internals — Predicate() simply returns a func(entity any) bool, the
// same shape ForEach/ModifyWhere/DeleteWhere already accept.
//
// Grounded on the teacher's internal/planner/predicate.Build (switch-typed
// AST-to-predicate compilation, wrapped errors) and on tqdb_query.c's
// condition set (field lookup, per-type comparison, LIKE pattern matching).
package query

import "fmt"

// FieldType names the storage representation a FieldDef exposes, used to
// pick a type-aware comparison in eval.
type FieldType int

const (
	Int32 FieldType = iota
	Int64
	Float32
	Float64
	String
	Bool
	Uint8
	Uint16
	Uint32
)

// FieldDef describes one queryable field of a registered entity type: its
// name (as referenced in Where) and an accessor that reads the field's
// current value out of an entity.
type FieldDef struct {
	Name   string
	Type   FieldType
	Offset func(entity any) any
}

// QueryableTrait is implemented by a trait that wants to support NewQuery
// without per-type glue code; it is an extension of the core Trait, not a
// requirement of it.
type QueryableTrait interface {
	Fields() []FieldDef
}

// Operator is a comparison applied to one field.
type Operator int

const (
	EQ Operator = iota
	NE
	LT
	LE
	GT
	GE
	BETWEEN
	LIKE
	IsNull
	NotNull
)

type condition struct {
	field FieldDef
	op    Operator
	value any
	value2 any // upper bound, BETWEEN only
}

// Query accumulates conditions (AND-combined, mirroring tqdb_query.c's
// entity_matches) plus a limit/offset, then compiles to a single predicate.
type Query struct {
	fields     map[string]FieldDef
	conditions []condition
	limit      int
	offset     int
	err        error
}

// NewQuery starts a query over trait's declared fields. A trait that does
// not implement QueryableTrait yields a Query whose every Where fails with
// an error surfaced from Predicate/Exec/Count.
func NewQuery(trait any) *Query {
	q := &Query{fields: make(map[string]FieldDef)}
	qt, ok := trait.(QueryableTrait)
	if !ok {
		q.err = fmt.Errorf("query: trait %T does not implement QueryableTrait", trait)
		return q
	}
	for _, f := range qt.Fields() {
		q.fields[f.Name] = f
	}
	return q
}

// Where adds one AND-combined condition. value2 is only consulted for
// BETWEEN (the upper bound) and is otherwise ignored.
func (q *Query) Where(field string, op Operator, value any, value2 ...any) *Query {
	if q.err != nil {
		return q
	}
	fd, ok := q.fields[field]
	if !ok {
		q.err = fmt.Errorf("query: unknown field %q", field)
		return q
	}
	c := condition{field: fd, op: op, value: value}
	if op == BETWEEN {
		if len(value2) != 1 {
			q.err = fmt.Errorf("query: BETWEEN on field %q requires an upper bound", field)
			return q
		}
		c.value2 = value2[0]
	}
	q.conditions = append(q.conditions, c)
	return q
}

// Limit caps the number of matching entities a consumer should collect.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset skips the first n matches before collection begins.
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// Predicate compiles the accumulated conditions into the func(entity) bool
// shape the store's Filter/Modify mutation-descriptor fields expect.
func (q *Query) Predicate() (func(entity any) bool, error) {
	if q.err != nil {
		return nil, q.err
	}
	conds := q.conditions
	return func(entity any) bool {
		for _, c := range conds {
			if !eval(entity, c) {
				return false
			}
		}
		return true
	}, nil
}

// Exec runs fn over every entity of typeName matching the query, honoring
// Limit/Offset, via store's ForEach(typeName, fn). store is any type
// exposing that one method, so this package never imports the store
// package directly.
func (q *Query) Exec(store interface {
	ForEach(typeName string, fn func(entity any) bool) error
}, typeName string, fn func(entity any)) error {
	pred, err := q.Predicate()
	if err != nil {
		return err
	}
	skipped, taken := 0, 0
	return store.ForEach(typeName, func(entity any) bool {
		if !pred(entity) {
			return true
		}
		if skipped < q.offset {
			skipped++
			return true
		}
		fn(entity)
		taken++
		return q.limit == 0 || taken < q.limit
	})
}

// Count reports how many entities of typeName match the query, ignoring
// Limit/Offset (they bound collection, not counting).
func (q *Query) Count(store interface {
	ForEach(typeName string, fn func(entity any) bool) error
}, typeName string) (int, error) {
	pred, err := q.Predicate()
	if err != nil {
		return 0, err
	}
	n := 0
	err = store.ForEach(typeName, func(entity any) bool {
		if pred(entity) {
			n++
		}
		return true
	})
	return n, err
}
