// Package workflow drives the review-and-confirm screen for pending
// overtime records. Every transition goes through the Workflow so the
// affordances shown to the user always derive from one state value.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"Mansoor88-6/overtime-agent/internal/client"
	"Mansoor88-6/overtime-agent/internal/employeeid"
	"Mansoor88-6/overtime-agent/internal/models"

	"go.uber.org/zap"
)

// ExitDelay is how long the caller waits after a successful confirmation
// before navigating away
const ExitDelay = 1500 * time.Millisecond

// State is the current step of the confirmation screen
type State string

const (
	StateIdle          State = "idle"
	StateSearching     State = "searching"
	StateEmpty         State = "empty"
	StatePendingReady  State = "pending_ready"
	StateViewOnlyReady State = "view_only_ready"
	StateConfirming    State = "confirming"
	StateDone          State = "done"
)

var (
	ErrInvalidID       = employeeid.ErrIncomplete
	ErrSearchBlocked   = errors.New("cannot search while a confirmation is in progress")
	ErrNotReady        = errors.New("no records available for confirmation")
	ErrUnknownRecord   = errors.New("record is not in the current list")
	ErrEmptySelection  = errors.New("select at least one record")
	ErrOutsideWindow   = errors.New("outside confirmation period")
	ErrNotAcknowledged = errors.New("confirm that you reviewed the selected records")
	ErrConfirmInFlight = errors.New("a confirmation is already in progress")
)

// Client is the part of the remote API the workflow needs
type Client interface {
	FetchPending(ctx context.Context, employeeID string) (*models.PendingResult, error)
	ConfirmBatch(ctx context.Context, employeeID string, rows []models.RowRef) (models.ConfirmResult, error)
}

// Snapshot is a copy of the workflow state, safe to hand to a renderer
type Snapshot struct {
	State      State                  `json:"state"`
	EmployeeID string                 `json:"employeeId,omitempty"`
	Employee   *models.Employee       `json:"employee,omitempty"`
	Records    []models.PendingRecord `json:"records"`
	Selected   []models.RowRef        `json:"selected"`
	Message    string                 `json:"message,omitempty"`
	Err        error                  `json:"-"`
	Confirmed  int                    `json:"confirmed,omitempty"`

	CanSearch  bool `json:"canSearch"`
	CanSelect  bool `json:"canSelect"`
	CanConfirm bool `json:"canConfirm"`
}

// Workflow is safe for concurrent use
type Workflow struct {
	client        Client
	window        Window
	now           func() time.Time
	logger        *zap.Logger
	onStateChange func(State)

	mu         sync.Mutex
	state      State
	employeeID string
	employee   *models.Employee
	records    []models.PendingRecord
	selected   map[models.RowRef]bool
	message    string
	err        error
	confirmed  int
	// generation changes on every Search and Reset so late answers are dropped
	generation uint64
	// inFlight is cleared only by the Confirm call that set it, so a Reset
	// cannot open the way to a second batch
	inFlight bool
}

// New creates a workflow in the idle state. now defaults to time.Now.
func New(c Client, window Window, now func() time.Time, logger *zap.Logger) *Workflow {
	if now == nil {
		now = time.Now
	}
	return &Workflow{
		client:   c,
		window:   window,
		now:      now,
		logger:   logger,
		state:    StateIdle,
		selected: map[models.RowRef]bool{},
	}
}

// OnStateChange registers fn to be called after every transition, outside the lock
func (w *Workflow) OnStateChange(fn func(State)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onStateChange = fn
}

// Search loads the pending records of the employee identified by rawID.
// Incomplete IDs are rejected before any request is made.
func (w *Workflow) Search(ctx context.Context, rawID string) error {
	id, err := employeeid.Normalize(rawID)
	if err != nil {
		return ErrInvalidID
	}

	w.mu.Lock()
	if w.state == StateConfirming {
		w.mu.Unlock()
		return ErrSearchBlocked
	}
	w.generation++
	gen := w.generation
	w.employeeID = id
	w.employee = nil
	w.records = nil
	w.selected = map[models.RowRef]bool{}
	w.message = ""
	w.err = nil
	w.confirmed = 0
	changed := w.setState(StateSearching)
	w.mu.Unlock()
	w.notify(changed, StateSearching)

	result, err := w.client.FetchPending(ctx, id)
	if err == nil && result == nil {
		result = &models.PendingResult{}
	}

	w.mu.Lock()
	if gen != w.generation {
		w.mu.Unlock()
		w.logger.Debug("Discarding stale search result", zap.String("employee_id", id))
		return nil
	}

	var next State
	switch {
	case err != nil:
		w.err = err
		w.message = client.UserMessage(err)
		next = StateIdle
		w.logger.Warn("Pending records lookup failed", zap.String("employee_id", id), zap.Error(err))
	case !w.window.Contains(w.now()):
		w.employee = result.Employee
		w.records = slices.Clone(result.Recent)
		w.message = fmt.Sprintf("outside confirmation period (%s); view only.", w.window)
		next = StateViewOnlyReady
	case result.HasPending():
		w.employee = result.Employee
		w.records = slices.Clone(result.Pending)
		w.message = fmt.Sprintf("%d record(s) pending confirmation", len(result.Pending))
		next = StatePendingReady
	default:
		w.employee = result.Employee
		w.records = slices.Clone(result.Recent)
		w.message = "no records pending confirmation"
		next = StateEmpty
	}
	changed = w.setState(next)
	w.mu.Unlock()
	w.notify(changed, next)

	return err
}

// Toggle flips the selection of one pending record
func (w *Workflow) Toggle(ref models.RowRef) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StatePendingReady {
		return ErrNotReady
	}
	if !w.hasRecord(ref) {
		return ErrUnknownRecord
	}
	if w.selected[ref] {
		delete(w.selected, ref)
	} else {
		w.selected[ref] = true
	}
	return nil
}

// SelectAll selects every pending record, or clears the selection when
// every record is already selected
func (w *Workflow) SelectAll() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StatePendingReady {
		return ErrNotReady
	}
	if len(w.selected) == w.distinctRecords() {
		w.selected = map[models.RowRef]bool{}
		return nil
	}
	for _, r := range w.records {
		w.selected[r.RowRef] = true
	}
	return nil
}

// Selected returns the selected row references in list order
func (w *Workflow) Selected() []models.RowRef {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedRows()
}

// Confirm sends the selected rows to the backend. acknowledged is the user's
// explicit statement that the rows were reviewed. While a confirmation is
// outstanding further calls fail with ErrConfirmInFlight; a failed batch is
// never retried.
func (w *Workflow) Confirm(ctx context.Context, acknowledged bool) (models.ConfirmResult, error) {
	w.mu.Lock()
	switch {
	case w.inFlight || w.state == StateConfirming:
		w.mu.Unlock()
		return models.ConfirmResult{}, ErrConfirmInFlight
	case w.state != StatePendingReady:
		w.mu.Unlock()
		return models.ConfirmResult{}, ErrNotReady
	case len(w.selected) == 0:
		w.mu.Unlock()
		return models.ConfirmResult{}, ErrEmptySelection
	case !w.window.Contains(w.now()):
		w.mu.Unlock()
		return models.ConfirmResult{}, ErrOutsideWindow
	case !acknowledged:
		w.mu.Unlock()
		return models.ConfirmResult{}, ErrNotAcknowledged
	}

	gen := w.generation
	id := w.employeeID
	rows := w.selectedRows()
	w.err = nil
	w.inFlight = true
	changed := w.setState(StateConfirming)
	w.mu.Unlock()
	w.notify(changed, StateConfirming)

	w.logger.Info("Confirming records", zap.String("employee_id", id), zap.Int("rows", len(rows)))
	result, err := w.client.ConfirmBatch(ctx, id, rows)

	w.mu.Lock()
	w.inFlight = false
	if gen != w.generation {
		// reset while the batch was in flight; the outcome no longer has a screen
		w.mu.Unlock()
		w.logger.Debug("Confirmation resolved after reset", zap.String("employee_id", id), zap.Error(err))
		return result, err
	}

	var next State
	if err != nil {
		w.err = err
		w.message = client.UserMessage(err)
		next = StatePendingReady
		w.logger.Error("Confirmation failed", zap.String("employee_id", id), zap.Error(err))
	} else {
		w.confirmed = result.Confirmed
		w.message = fmt.Sprintf("%d record(s) confirmed successfully", result.Confirmed)
		next = StateDone
	}
	changed = w.setState(next)
	w.mu.Unlock()
	w.notify(changed, next)

	return result, err
}

// Snapshot returns a copy of the current state with derived affordances
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	var employee *models.Employee
	if w.employee != nil {
		e := *w.employee
		employee = &e
	}
	inWindow := w.window.Contains(w.now())

	return Snapshot{
		State:      w.state,
		EmployeeID: w.employeeID,
		Employee:   employee,
		Records:    slices.Clone(w.records),
		Selected:   w.selectedRows(),
		Message:    w.message,
		Err:        w.err,
		Confirmed:  w.confirmed,
		CanSearch:  w.state != StateSearching && w.state != StateConfirming,
		CanSelect:  w.state == StatePendingReady,
		CanConfirm: w.state == StatePendingReady && len(w.selected) > 0 && inWindow && !w.inFlight,
	}
}

// Reset returns to the idle state, dropping any answer still in flight.
// A confirmation already sent keeps blocking new ones until it resolves.
func (w *Workflow) Reset() {
	w.mu.Lock()
	w.generation++
	w.employeeID = ""
	w.employee = nil
	w.records = nil
	w.selected = map[models.RowRef]bool{}
	w.message = ""
	w.err = nil
	w.confirmed = 0
	changed := w.setState(StateIdle)
	w.mu.Unlock()
	w.notify(changed, StateIdle)
}

// setState must be called with mu held
func (w *Workflow) setState(newState State) bool {
	oldState := w.state
	w.state = newState
	if oldState == newState {
		return false
	}
	w.logger.Debug("Workflow state changed",
		zap.String("old_state", string(oldState)),
		zap.String("new_state", string(newState)),
	)
	return true
}

func (w *Workflow) notify(changed bool, s State) {
	if !changed {
		return
	}
	w.mu.Lock()
	fn := w.onStateChange
	w.mu.Unlock()
	if fn != nil {
		fn(s)
	}
}

func (w *Workflow) hasRecord(ref models.RowRef) bool {
	for _, r := range w.records {
		if r.RowRef == ref {
			return true
		}
	}
	return false
}

// selectedRows lists each selected row once, in list order
func (w *Workflow) selectedRows() []models.RowRef {
	rows := make([]models.RowRef, 0, len(w.selected))
	for _, r := range w.records {
		if w.selected[r.RowRef] && !slices.Contains(rows, r.RowRef) {
			rows = append(rows, r.RowRef)
		}
	}
	return rows
}

func (w *Workflow) distinctRecords() int {
	seen := make(map[models.RowRef]struct{}, len(w.records))
	for _, r := range w.records {
		seen[r.RowRef] = struct{}{}
	}
	return len(seen)
}
