package client

import (
	"context"
	"errors"
	"sync"
)

// Panel errors.
var (
	// ErrConfirmationRequired is returned when a delete is attempted without
	// the caller confirming it first.
	ErrConfirmationRequired = errors.New("delete requires confirmation")
	// ErrPanelClosed is returned for any operation on a closed panel.
	ErrPanelClosed = errors.New("panel is closed")
	// ErrActionInFlight is returned when an action is started while the same
	// action is still running.
	ErrActionInFlight = errors.New("a previous action is still in flight")
)

// PanelPhase describes what a panel is currently showing.
type PanelPhase string

const (
	PanelLoading PanelPhase = "LOADING"
	PanelReady   PanelPhase = "READY"
	PanelEmpty   PanelPhase = "EMPTY"
	PanelErrored PanelPhase = "ERRORED"
)

// ResourceOps is the server surface a panel manages one resource type through.
type ResourceOps[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, draft T) (T, error)
	Delete(ctx context.Context, id string) error
}

// Panel is the shared list-plus-actions component behind the resource views
// (appointments, prescriptions, bills, records). It owns the loading, empty
// and error phases; creates merge the acknowledged record without a refetch;
// deletes are pessimistic and require explicit confirmation. One action of
// each kind runs at a time.
type Panel[T any] struct {
	ops ResourceOps[T]
	id  func(T) string

	mu       sync.Mutex
	phase    PanelPhase
	items    []T
	err      error
	closed   bool
	inFlight map[string]bool
}

// NewPanel creates a panel over ops. id extracts a record's identifier.
func NewPanel[T any](ops ResourceOps[T], id func(T) string) *Panel[T] {
	return &Panel[T]{
		ops:      ops,
		id:       id,
		phase:    PanelLoading,
		inFlight: make(map[string]bool),
	}
}

// Phase returns the current display phase.
func (p *Panel[T]) Phase() PanelPhase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Items returns a copy of the current records.
func (p *Panel[T]) Items() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]T, len(p.items))
	copy(out, p.items)
	return out
}

// Err returns the error behind an ERRORED phase.
func (p *Panel[T]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Load fetches the list. A failed load keeps any previously shown records
// but surfaces the error phase.
func (p *Panel[T]) Load(ctx context.Context) error {
	if err := p.begin("load"); err != nil {
		return err
	}
	defer p.end("load")

	p.mu.Lock()
	p.phase = PanelLoading
	p.mu.Unlock()

	items, err := p.ops.List(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPanelClosed
	}
	if err != nil {
		p.phase = PanelErrored
		p.err = err
		return err
	}
	p.items = items
	p.err = nil
	if len(items) == 0 {
		p.phase = PanelEmpty
	} else {
		p.phase = PanelReady
	}
	return nil
}

// Create sends the draft and, on acknowledgement, merges the returned record
// into the list without refetching.
func (p *Panel[T]) Create(ctx context.Context, draft T) (T, error) {
	var zero T
	if err := p.begin("create"); err != nil {
		return zero, err
	}
	defer p.end("create")

	created, err := p.ops.Create(ctx, draft)
	if err != nil {
		return zero, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return zero, ErrPanelClosed
	}
	p.items = append([]T{created}, p.items...)
	p.phase = PanelReady
	return created, nil
}

// Delete removes one record after server acknowledgement. The record stays
// visible until the server confirms, and stays when the server refuses.
func (p *Panel[T]) Delete(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	if err := p.begin("delete"); err != nil {
		return err
	}
	defer p.end("delete")

	if err := p.ops.Delete(ctx, id); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPanelClosed
	}
	for i, item := range p.items {
		if p.id(item) == id {
			p.items = append(p.items[:i], p.items[i+1:]...)
			break
		}
	}
	if len(p.items) == 0 {
		p.phase = PanelEmpty
	}
	return nil
}

// Mutate applies fn to the record with the given id, in place. It is the
// targeted-update path for acknowledged server changes (a status flip, a
// read flag) that should not trigger a refetch.
func (p *Panel[T]) Mutate(id string, fn func(item T) T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	for i, item := range p.items {
		if p.id(item) == id {
			p.items[i] = fn(item)
			return true
		}
	}
	return false
}

// Close detaches the panel; every later operation fails fast. Responses from
// actions still in flight when Close is called are discarded.
func (p *Panel[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *Panel[T]) begin(action string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPanelClosed
	}
	if p.inFlight[action] {
		return ErrActionInFlight
	}
	p.inFlight[action] = true
	return nil
}

func (p *Panel[T]) end(action string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inFlight, action)
}
