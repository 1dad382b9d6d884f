// Package generalinfo implements the "general information" step of the
// measurement entry form: fixed field rows whose selectable values come from
// the reference vocabularies, with every edit persisted to the draft store.
package generalinfo

import (
	"context"
	"log"
	"sync"

	"hypda/entry/internal/draft"
	"hypda/entry/internal/guard"
	"hypda/entry/internal/refdata"
)

// CellEdit is a single value edit targeting the row for TargetField.
type CellEdit struct {
	TargetField string
	NewValue    string
}

type ReferenceLoader interface {
	Load(ctx context.Context) refdata.Result
}

type SessionChecker interface {
	Check(ctx context.Context) guard.State
}

type Phase int

const (
	PhasePending Phase = iota
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "pending"
	}
}

type Status struct {
	Loading   bool
	Message   string
	IsError   bool
	Reference Phase
	Session   Phase
	Auth      guard.State
}

type Table struct {
	drafts  *draft.Store
	loader  ReferenceLoader
	checker SessionChecker

	mu         sync.Mutex
	rows       draft.Draft
	ref        refdata.Result
	refPhase   Phase
	auth       guard.State
	authPhase  Phase
	generation uint64
	mounted    bool
	cancel     context.CancelFunc
	settled    chan struct{}
}

func New(drafts *draft.Store, loader ReferenceLoader, checker SessionChecker) *Table {
	settled := make(chan struct{})
	close(settled)
	return &Table{
		drafts:  drafts,
		loader:  loader,
		checker: checker,
		settled: settled,
	}
}

// Mount seeds the rows from the draft store and starts the reference load
// and the session check. Mounting again restarts both from pending.
func (t *Table) Mount(ctx context.Context) {
	rows := t.drafts.Get(ctx)
	mountCtx, cancel := context.WithCancel(ctx)
	settled := make(chan struct{})

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.generation++
	gen := t.generation
	t.mounted = true
	t.cancel = cancel
	t.rows = rows
	t.ref = refdata.Result{}
	t.refPhase = PhasePending
	t.auth = guard.State{}
	t.authPhase = PhasePending
	t.settled = settled
	t.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		t.settleReference(gen, t.loader.Load(mountCtx))
	}()
	go func() {
		defer wg.Done()
		t.settleSession(gen, t.checker.Check(mountCtx))
	}()
	go func() {
		wg.Wait()
		close(settled)
	}()
}

// Unmount cancels outstanding work; results arriving afterwards are dropped.
func (t *Table) Unmount() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.mounted = false
	t.generation++
}

// Settled is closed once both background operations of the latest mount
// have returned.
func (t *Table) Settled() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settled
}

func (t *Table) current(gen uint64) bool {
	return t.mounted && gen == t.generation
}

func (t *Table) settleReference(gen uint64, result refdata.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.current(gen) {
		log.Printf("generalinfo: dropping reference result from stale mount")
		return
	}
	t.ref = result
	if result.IsError {
		t.refPhase = PhaseError
	} else {
		t.refPhase = PhaseSuccess
	}
}

func (t *Table) settleSession(gen uint64, state guard.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.current(gen) {
		log.Printf("generalinfo: dropping session result from stale mount")
		return
	}
	t.auth = state
	if state.IsAuth == guard.True {
		t.authPhase = PhaseSuccess
	} else {
		t.authPhase = PhaseError
	}
}

// Rows returns a copy of the live draft in display order.
func (t *Table) Rows() draft.Draft {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rows.Clone()
}

// Choices lists the selectable values for a row's field.
func (t *Table) Choices(field string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch field {
	case draft.FieldEnvName:
		return t.ref.EnvironmentNames()
	case draft.FieldReviewLevel:
		return t.ref.ReviewLevels()
	default:
		return []string{}
	}
}

// Apply overwrites the value of the first row whose field matches and
// persists the whole draft. Edits for fields not in the draft are discarded
// without error and without a write. If the write fails the row keeps its
// previous value, so memory never runs ahead of storage.
func (t *Table) Apply(ctx context.Context, edit CellEdit) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.rows {
		if t.rows[i].Field != edit.TargetField {
			continue
		}
		previous := t.rows[i].Value
		t.rows[i].Value = edit.NewValue
		if err := t.drafts.Set(ctx, t.rows); err != nil {
			t.rows[i].Value = previous
			return true, err
		}
		return true, nil
	}
	return false, nil
}

func (t *Table) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		Loading:   t.refPhase == PhasePending,
		Message:   t.ref.Message,
		IsError:   t.ref.IsError,
		Reference: t.refPhase,
		Session:   t.authPhase,
		Auth:      t.auth,
	}
}
