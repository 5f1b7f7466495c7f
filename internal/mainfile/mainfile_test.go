package mainfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/acvigue/tqdb-go/internal/errs"
	"github.com/acvigue/tqdb-go/internal/ioframe"
	"github.com/acvigue/tqdb-go/internal/registry"
)

type record struct {
	id    uint32
	name  string
	value int32
}

type recordTrait struct{}

func (recordTrait) TypeName() string       { return "record" }
func (recordTrait) GetID(e any) uint32     { return e.(*record).id }
func (recordTrait) SetID(e any, id uint32) { e.(*record).id = id }
func (recordTrait) New() any               { return &record{} }
func (recordTrait) MaxCount() uint32       { return 1000 }
func (recordTrait) Write(w *ioframe.Writer, e any) {
	v := e.(*record)
	w.WriteU32(v.id)
	w.WriteStr(v.name)
	w.WriteI32(v.value)
}
func (recordTrait) Read(r *ioframe.Reader) any {
	v := &record{}
	v.id = r.ReadU32()
	v.name = r.ReadStr()
	v.value = r.ReadI32()
	return v
}

func newTestManager(t *testing.T) (*Manager, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	if _, err := reg.Register(recordTrait{}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	dbPath := filepath.Join(t.TempDir(), "db.tqdb")
	return New(dbPath, "", "", reg, 0, nil), reg
}

func TestRewriteAddThenGet(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.Rewrite(Mutation{
		AddTypeIdx: 0, AddEntity: &record{id: 1, name: "a", value: 10},
		DeleteTypeIdx: -1, UpdateTypeIdx: -1, FilterTypeIdx: -1, ModifyTypeIdx: -1,
	}); err != nil {
		t.Fatalf("Rewrite add: %v", err)
	}

	got, err := m.Get(0, 1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	rec := got.(*record)
	if rec.name != "a" || rec.value != 10 {
		t.Fatalf("Get returned %+v, want name=a value=10", rec)
	}

	if _, err := m.Get(0, 2); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Get missing id error = %v, want ErrNotFound", err)
	}
}

func TestRewriteUpdateAndDelete(t *testing.T) {
	m, _ := newTestManager(t)

	add := func(id uint32, name string, value int32) {
		if err := m.Rewrite(Mutation{
			AddTypeIdx: 0, AddEntity: &record{id: id, name: name, value: value},
			DeleteTypeIdx: -1, UpdateTypeIdx: -1, FilterTypeIdx: -1, ModifyTypeIdx: -1,
		}); err != nil {
			t.Fatalf("add %d: %v", id, err)
		}
	}
	add(1, "a", 1)
	add(2, "b", 2)
	add(3, "c", 3)

	if err := m.Rewrite(Mutation{
		UpdateTypeIdx: 0, UpdateID: 2, UpdateEntity: &record{id: 2, name: "b2", value: 22},
		AddTypeIdx: -1, DeleteTypeIdx: -1, FilterTypeIdx: -1, ModifyTypeIdx: -1,
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := m.Get(0, 2)
	if err != nil || got.(*record).name != "b2" {
		t.Fatalf("Get after update = %+v, %v", got, err)
	}

	if err := m.Rewrite(Mutation{
		DeleteTypeIdx: 0, DeleteID: 1,
		AddTypeIdx: -1, UpdateTypeIdx: -1, FilterTypeIdx: -1, ModifyTypeIdx: -1,
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.Get(0, 1); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("Get deleted id error = %v, want ErrNotFound", err)
	}

	count, err := m.Count(0)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Fatalf("Count = %d, want 2", count)
	}
}

func TestVacuumIsIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	for i := uint32(1); i <= 5; i++ {
		if err := m.Rewrite(Mutation{
			AddTypeIdx: 0, AddEntity: &record{id: i, name: "x", value: int32(i)},
			DeleteTypeIdx: -1, UpdateTypeIdx: -1, FilterTypeIdx: -1, ModifyTypeIdx: -1,
		}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	if err := m.Rewrite(NoopMutation()); err != nil {
		t.Fatalf("first vacuum: %v", err)
	}
	first, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatalf("read after first vacuum: %v", err)
	}

	if err := m.Rewrite(NoopMutation()); err != nil {
		t.Fatalf("second vacuum: %v", err)
	}
	second, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatalf("read after second vacuum: %v", err)
	}

	if string(first) != string(second) {
		t.Fatalf("vacuum is not idempotent: file contents differ")
	}
}

func TestForEach(t *testing.T) {
	m, _ := newTestManager(t)
	for i := uint32(1); i <= 3; i++ {
		if err := m.Rewrite(Mutation{
			AddTypeIdx: 0, AddEntity: &record{id: i, name: "x", value: int32(i)},
			DeleteTypeIdx: -1, UpdateTypeIdx: -1, FilterTypeIdx: -1, ModifyTypeIdx: -1,
		}); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	var ids []uint32
	err := m.ForEach(0, func(e any) bool {
		ids = append(ids, e.(*record).id)
		return true
	})
	if err != nil {
		t.Fatalf("ForEach: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("ForEach visited %d entities, want 3", len(ids))
	}
}

func TestReadCountsRejectsCountAboveMaxCount(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Rewrite(Mutation{
		AddTypeIdx: 0, AddEntity: &record{id: 1, name: "a", value: 1},
		DeleteTypeIdx: -1, UpdateTypeIdx: -1, FilterTypeIdx: -1, ModifyTypeIdx: -1,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	data, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatalf("read main: %v", err)
	}
	// The single registered type's count sits immediately after the
	// 16-byte header. Patch it to a value above recordTrait.MaxCount()
	// (1000) to simulate a corrupted or truncated-then-garbage header.
	var corrupt [4]byte
	corrupt[0], corrupt[1], corrupt[2], corrupt[3] = 0x88, 0x13, 0x00, 0x00 // 5000
	copy(data[HeaderSize:HeaderSize+4], corrupt[:])
	if err := os.WriteFile(m.Path(), data, 0o644); err != nil {
		t.Fatalf("write corrupted main file: %v", err)
	}

	if _, err := m.Get(0, 1); !errors.Is(err, errs.ErrCorrupt) {
		t.Fatalf("Get with an over-MaxCount header count = %v, want ErrCorrupt", err)
	}
}

func TestOpenForReadPromotesTmpWhenMainMissing(t *testing.T) {
	m, _ := newTestManager(t)
	if err := m.Rewrite(Mutation{
		AddTypeIdx: 0, AddEntity: &record{id: 1, name: "a", value: 1},
		DeleteTypeIdx: -1, UpdateTypeIdx: -1, FilterTypeIdx: -1, ModifyTypeIdx: -1,
	}); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Simulate a crash between producing .tmp and the rename: copy the main
	// file to .tmp, then remove the main file.
	data, err := os.ReadFile(m.Path())
	if err != nil {
		t.Fatalf("read main: %v", err)
	}
	if err := os.WriteFile(m.tmpPath, data, 0o644); err != nil {
		t.Fatalf("write tmp: %v", err)
	}
	if err := os.Remove(m.Path()); err != nil {
		t.Fatalf("remove main: %v", err)
	}

	got, err := m.Get(0, 1)
	if err != nil {
		t.Fatalf("Get after simulated crash: %v", err)
	}
	if got.(*record).id != 1 {
		t.Fatalf("Get returned wrong record: %+v", got)
	}
}
