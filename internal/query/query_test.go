package query

import "testing"

type person struct {
	id     uint32
	name   string
	age    int32
	active bool
	score  float64
}

type personTrait struct{}

func (personTrait) Fields() []FieldDef {
	return []FieldDef{
		{Name: "name", Type: String, Offset: func(e any) any { return e.(*person).name }},
		{Name: "age", Type: Int32, Offset: func(e any) any { return e.(*person).age }},
		{Name: "active", Type: Bool, Offset: func(e any) any { return e.(*person).active }},
		{Name: "score", Type: Float64, Offset: func(e any) any { return e.(*person).score }},
	}
}

type fakeStore struct {
	entities []*person
}

func (s *fakeStore) ForEach(typeName string, fn func(entity any) bool) error {
	for _, e := range s.entities {
		if !fn(e) {
			break
		}
	}
	return nil
}

func TestNewQueryRejectsNonQueryableTrait(t *testing.T) {
	q := NewQuery(struct{}{})
	if _, err := q.Predicate(); err == nil {
		t.Fatal("expected an error from a trait that does not implement QueryableTrait")
	}
}

func TestWhereUnknownFieldIsSticky(t *testing.T) {
	q := NewQuery(personTrait{}).Where("nonexistent", EQ, 1)
	if _, err := q.Predicate(); err == nil {
		t.Fatal("expected an error referencing the unknown field")
	}
	// Further Where calls after a sticky error must not panic or reset it.
	q.Where("age", EQ, 30)
	if _, err := q.Predicate(); err == nil {
		t.Fatal("sticky error should persist across further Where calls")
	}
}

func TestWhereEQAndGE(t *testing.T) {
	q := NewQuery(personTrait{}).Where("age", GE, int32(30))
	pred, err := q.Predicate()
	if err != nil {
		t.Fatalf("Predicate: %v", err)
	}
	if !pred(&person{age: 30}) {
		t.Error("30 >= 30 should match")
	}
	if pred(&person{age: 29}) {
		t.Error("29 >= 30 should not match")
	}
}

func TestWhereBetween(t *testing.T) {
	q := NewQuery(personTrait{}).Where("score", BETWEEN, 1.0, 10.0)
	pred, err := q.Predicate()
	if err != nil {
		t.Fatalf("Predicate: %v", err)
	}
	if !pred(&person{score: 5}) {
		t.Error("5 between 1 and 10 should match")
	}
	if pred(&person{score: 11}) {
		t.Error("11 between 1 and 10 should not match")
	}
}

func TestWhereBetweenMissingUpperBound(t *testing.T) {
	q := NewQuery(personTrait{}).Where("score", BETWEEN, 1.0)
	if _, err := q.Predicate(); err == nil {
		t.Fatal("expected an error: BETWEEN requires an upper bound")
	}
}

func TestWhereLikeWildcards(t *testing.T) {
	q := NewQuery(personTrait{}).Where("name", LIKE, "al%")
	pred, err := q.Predicate()
	if err != nil {
		t.Fatalf("Predicate: %v", err)
	}
	if !pred(&person{name: "alice"}) {
		t.Error("'alice' should match 'al%'")
	}
	if pred(&person{name: "bob"}) {
		t.Error("'bob' should not match 'al%'")
	}

	q2 := NewQuery(personTrait{}).Where("name", LIKE, "b_b")
	pred2, err := q2.Predicate()
	if err != nil {
		t.Fatalf("Predicate: %v", err)
	}
	if !pred2(&person{name: "bob"}) {
		t.Error("'bob' should match 'b_b'")
	}
	if pred2(&person{name: "boob"}) {
		t.Error("'boob' should not match 'b_b'")
	}
}

func TestWhereIsNullAndNotNull(t *testing.T) {
	q := NewQuery(personTrait{}).Where("name", IsNull, nil)
	pred, err := q.Predicate()
	if err != nil {
		t.Fatalf("Predicate: %v", err)
	}
	if !pred(&person{name: ""}) {
		t.Error("empty name should satisfy IsNull")
	}
	if pred(&person{name: "alice"}) {
		t.Error("non-empty name should not satisfy IsNull")
	}

	q2 := NewQuery(personTrait{}).Where("name", NotNull, nil)
	pred2, _ := q2.Predicate()
	if !pred2(&person{name: "alice"}) {
		t.Error("non-empty name should satisfy NotNull")
	}
}

func TestMultipleConditionsAreANDed(t *testing.T) {
	q := NewQuery(personTrait{}).
		Where("age", GE, int32(18)).
		Where("active", EQ, true)
	pred, err := q.Predicate()
	if err != nil {
		t.Fatalf("Predicate: %v", err)
	}
	if !pred(&person{age: 20, active: true}) {
		t.Error("age=20,active=true should match both conditions")
	}
	if pred(&person{age: 20, active: false}) {
		t.Error("active=false should fail the second condition")
	}
	if pred(&person{age: 10, active: true}) {
		t.Error("age=10 should fail the first condition")
	}
}

func TestExecHonorsLimitAndOffset(t *testing.T) {
	store := &fakeStore{entities: []*person{
		{id: 1, age: 20}, {id: 2, age: 21}, {id: 3, age: 22}, {id: 4, age: 23},
	}}
	q := NewQuery(personTrait{}).Where("age", GE, int32(20)).Offset(1).Limit(2)

	var seen []uint32
	if err := q.Exec(store, "person", func(e any) { seen = append(seen, e.(*person).id) }); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if len(seen) != 2 || seen[0] != 2 || seen[1] != 3 {
		t.Fatalf("Exec with Offset(1).Limit(2) visited %v, want [2 3]", seen)
	}
}

func TestCountIgnoresLimitAndOffset(t *testing.T) {
	store := &fakeStore{entities: []*person{
		{id: 1, age: 20}, {id: 2, age: 21}, {id: 3, age: 22},
	}}
	q := NewQuery(personTrait{}).Where("age", GE, int32(20)).Limit(1)

	n, err := q.Count(store, "person")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Fatalf("Count = %d, want 3 (Limit must not affect Count)", n)
	}
}
