package registry

import (
	"errors"
	"testing"

	"github.com/acvigue/tqdb-go/internal/errs"
	"github.com/acvigue/tqdb-go/internal/ioframe"
)

type widget struct {
	id   uint32
	name string
}

type widgetTrait struct{ typeName string }

func (wt widgetTrait) TypeName() string       { return wt.typeName }
func (wt widgetTrait) GetID(e any) uint32     { return e.(*widget).id }
func (wt widgetTrait) SetID(e any, id uint32) { e.(*widget).id = id }
func (wt widgetTrait) New() any                { return &widget{} }
func (wt widgetTrait) MaxCount() uint32        { return 1000 }
func (wt widgetTrait) Write(w *ioframe.Writer, e any) {
	v := e.(*widget)
	w.WriteU32(v.id)
	w.WriteStr(v.name)
}
func (wt widgetTrait) Read(r *ioframe.Reader) any {
	v := &widget{}
	v.id = r.ReadU32()
	v.name = r.ReadStr()
	return v
}

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	idx, err := r.Register(widgetTrait{typeName: "widget"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if idx != 0 {
		t.Fatalf("first registration index = %d, want 0", idx)
	}

	got, gotIdx, err := r.ByName("widget")
	if err != nil {
		t.Fatalf("ByName: %v", err)
	}
	if gotIdx != 0 || got.TypeName() != "widget" {
		t.Fatalf("ByName returned wrong entry: idx=%d name=%s", gotIdx, got.TypeName())
	}
}

func TestRegisterDuplicateName(t *testing.T) {
	r := New()
	if _, err := r.Register(widgetTrait{typeName: "widget"}); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := r.Register(widgetTrait{typeName: "widget"})
	if !errors.Is(err, errs.ErrExists) {
		t.Fatalf("duplicate Register error = %v, want ErrExists", err)
	}
}

func TestRegisterEmptyName(t *testing.T) {
	r := New()
	_, err := r.Register(widgetTrait{typeName: ""})
	if !errors.Is(err, errs.ErrInvalidArg) {
		t.Fatalf("empty-name Register error = %v, want ErrInvalidArg", err)
	}
}

func TestRegisterFull(t *testing.T) {
	r := New()
	for i := 0; i < MaxTypes; i++ {
		name := string(rune('a' + i))
		if _, err := r.Register(widgetTrait{typeName: name}); err != nil {
			t.Fatalf("Register %q: %v", name, err)
		}
	}
	_, err := r.Register(widgetTrait{typeName: "overflow"})
	if !errors.Is(err, errs.ErrFull) {
		t.Fatalf("overflow Register error = %v, want ErrFull", err)
	}
}

func TestNextIDStartsAtOneAndIncrements(t *testing.T) {
	r := New()
	idx, _ := r.Register(widgetTrait{typeName: "widget"})
	if got := r.NextID(idx); got != 1 {
		t.Fatalf("first NextID = %d, want 1", got)
	}
	if got := r.NextID(idx); got != 2 {
		t.Fatalf("second NextID = %d, want 2", got)
	}
}

func TestObserveAdvancesCounterWithoutAllocating(t *testing.T) {
	r := New()
	idx, _ := r.Register(widgetTrait{typeName: "widget"})
	r.Observe(idx, 50)
	if got := r.NextID(idx); got != 51 {
		t.Fatalf("NextID after Observe(50) = %d, want 51", got)
	}

	// Observing a lower id than already reached must not roll the counter
	// backward.
	r.Observe(idx, 10)
	if got := r.NextID(idx); got != 52 {
		t.Fatalf("NextID after Observe(10) = %d, want 52", got)
	}
}

func TestNotRegistered(t *testing.T) {
	r := New()
	if _, err := r.IndexOf("missing"); !errors.Is(err, errs.ErrNotRegistered) {
		t.Fatalf("IndexOf missing error = %v, want ErrNotRegistered", err)
	}
	if _, err := r.At(3); !errors.Is(err, errs.ErrNotRegistered) {
		t.Fatalf("At(3) error = %v, want ErrNotRegistered", err)
	}
}

func TestEachVisitsInRegistrationOrder(t *testing.T) {
	r := New()
	names := []string{"a", "b", "c"}
	for _, n := range names {
		if _, err := r.Register(widgetTrait{typeName: n}); err != nil {
			t.Fatalf("Register %q: %v", n, err)
		}
	}
	var seen []string
	r.Each(func(idx int, tr Trait) {
		seen = append(seen, tr.TypeName())
	})
	for i, n := range names {
		if seen[i] != n {
			t.Fatalf("Each order[%d] = %q, want %q", i, seen[i], n)
		}
	}
}
