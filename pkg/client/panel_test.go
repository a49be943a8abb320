package client

import (
	"context"
	"errors"
	"testing"
)

type noteRecord struct {
	ID    string
	Title string
}

// fakeOps scripts the server side of a panel.
type fakeOps struct {
	listCalls   int
	listResult  []noteRecord
	listErr     error
	createErr   error
	deleteErr   error
	deleteCalls int
}

func (f *fakeOps) List(_ context.Context) ([]noteRecord, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]noteRecord, len(f.listResult))
	copy(out, f.listResult)
	return out, nil
}

func (f *fakeOps) Create(_ context.Context, draft noteRecord) (noteRecord, error) {
	if f.createErr != nil {
		return noteRecord{}, f.createErr
	}
	draft.ID = "created-1"
	return draft, nil
}

func (f *fakeOps) Delete(_ context.Context, _ string) error {
	f.deleteCalls++
	return f.deleteErr
}

func newNotePanel(ops *fakeOps) *Panel[noteRecord] {
	return NewPanel[noteRecord](ops, func(r noteRecord) string { return r.ID })
}

func TestPanel_LoadResolvesPhases(t *testing.T) {
	ctx := context.Background()

	t.Run("ready with records", func(t *testing.T) {
		ops := &fakeOps{listResult: []noteRecord{{ID: "a"}, {ID: "b"}}}
		p := newNotePanel(ops)
		if err := p.Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if p.Phase() != PanelReady {
			t.Errorf("phase = %v, want ready", p.Phase())
		}
		if len(p.Items()) != 2 {
			t.Errorf("items = %d, want 2", len(p.Items()))
		}
	})

	t.Run("empty list is its own phase", func(t *testing.T) {
		p := newNotePanel(&fakeOps{})
		if err := p.Load(ctx); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if p.Phase() != PanelEmpty {
			t.Errorf("phase = %v, want empty", p.Phase())
		}
	})

	t.Run("error keeps previous records", func(t *testing.T) {
		ops := &fakeOps{listResult: []noteRecord{{ID: "a"}}}
		p := newNotePanel(ops)
		if err := p.Load(ctx); err != nil {
			t.Fatalf("first Load() error = %v", err)
		}

		ops.listErr = errors.New("server unavailable")
		if err := p.Load(ctx); err == nil {
			t.Fatal("second Load() expected error")
		}
		if p.Phase() != PanelErrored {
			t.Errorf("phase = %v, want errored", p.Phase())
		}
		if len(p.Items()) != 1 {
			t.Errorf("items after failed reload = %d, want previous 1 kept", len(p.Items()))
		}
	})
}

func TestPanel_CreateMergesWithoutRefetch(t *testing.T) {
	ops := &fakeOps{listResult: []noteRecord{{ID: "a"}}}
	p := newNotePanel(ops)
	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	created, err := p.Create(context.Background(), noteRecord{Title: "new"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID != "created-1" {
		t.Errorf("created id = %q, want server-assigned id", created.ID)
	}

	items := p.Items()
	if len(items) != 2 {
		t.Fatalf("items = %d, want merged 2", len(items))
	}
	if items[0].ID != "created-1" {
		t.Errorf("first item = %+v, want the acknowledged record first", items[0])
	}
	if ops.listCalls != 1 {
		t.Errorf("list calls = %d, want no refetch after create", ops.listCalls)
	}
}

func TestPanel_DeleteRequiresConfirmation(t *testing.T) {
	ops := &fakeOps{listResult: []noteRecord{{ID: "a"}}}
	p := newNotePanel(ops)
	p.Load(context.Background())

	err := p.Delete(context.Background(), "a", false)
	if !errors.Is(err, ErrConfirmationRequired) {
		t.Fatalf("Delete() error = %v, want confirmation required", err)
	}
	if ops.deleteCalls != 0 {
		t.Errorf("delete calls = %d, want 0 before confirmation", ops.deleteCalls)
	}
	if len(p.Items()) != 1 {
		t.Errorf("items = %d, want record untouched", len(p.Items()))
	}
}

func TestPanel_FailedDeleteKeepsRecord(t *testing.T) {
	ops := &fakeOps{
		listResult: []noteRecord{{ID: "a"}},
		deleteErr:  errors.New("finalized records cannot be deleted"),
	}
	p := newNotePanel(ops)
	p.Load(context.Background())

	if err := p.Delete(context.Background(), "a", true); err == nil {
		t.Fatal("Delete() expected error")
	}
	if len(p.Items()) != 1 {
		t.Errorf("items = %d, want record kept after refused delete", len(p.Items()))
	}
	if p.Phase() != PanelReady {
		t.Errorf("phase = %v, want ready", p.Phase())
	}
}

func TestPanel_DeleteRemovesExactlyOne(t *testing.T) {
	ops := &fakeOps{listResult: []noteRecord{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	p := newNotePanel(ops)
	p.Load(context.Background())

	if err := p.Delete(context.Background(), "b", true); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	items := p.Items()
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	for _, item := range items {
		if item.ID == "b" {
			t.Errorf("deleted record still present: %+v", item)
		}
	}
}

func TestPanel_DeleteLastRecordGoesEmpty(t *testing.T) {
	ops := &fakeOps{listResult: []noteRecord{{ID: "a"}}}
	p := newNotePanel(ops)
	p.Load(context.Background())

	if err := p.Delete(context.Background(), "a", true); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if p.Phase() != PanelEmpty {
		t.Errorf("phase = %v, want empty after deleting last record", p.Phase())
	}
}

func TestPanel_MutateTargetsOneRecord(t *testing.T) {
	ops := &fakeOps{listResult: []noteRecord{{ID: "a", Title: "old"}, {ID: "b", Title: "old"}}}
	p := newNotePanel(ops)
	p.Load(context.Background())

	if !p.Mutate("a", func(r noteRecord) noteRecord {
		r.Title = "new"
		return r
	}) {
		t.Fatal("Mutate() = false, want record found")
	}

	items := p.Items()
	if items[0].Title != "new" || items[1].Title != "old" {
		t.Errorf("items = %+v, want only record a mutated", items)
	}

	if p.Mutate("missing", func(r noteRecord) noteRecord { return r }) {
		t.Error("Mutate() on unknown id = true, want false")
	}
}

func TestPanel_ClosedPanelRejectsEverything(t *testing.T) {
	ops := &fakeOps{listResult: []noteRecord{{ID: "a"}}}
	p := newNotePanel(ops)
	p.Load(context.Background())
	p.Close()

	if err := p.Load(context.Background()); !errors.Is(err, ErrPanelClosed) {
		t.Errorf("Load() after close error = %v, want panel closed", err)
	}
	if _, err := p.Create(context.Background(), noteRecord{}); !errors.Is(err, ErrPanelClosed) {
		t.Errorf("Create() after close error = %v, want panel closed", err)
	}
	if err := p.Delete(context.Background(), "a", true); !errors.Is(err, ErrPanelClosed) {
		t.Errorf("Delete() after close error = %v, want panel closed", err)
	}
	if p.Mutate("a", func(r noteRecord) noteRecord { return r }) {
		t.Error("Mutate() after close = true, want false")
	}
}
