package actions

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/copilot/internal/audit"
	"github.com/haasonsaas/copilot/internal/observability"
	"github.com/haasonsaas/copilot/pkg/models"
)

const (
	// DefaultTTL is how long a proposed action stays claimable.
	DefaultTTL = 10 * time.Minute

	// resultSummaryLimit caps the redacted execution summary stored on
	// executed entries.
	resultSummaryLimit = 200
)

// Config controls ledger behavior.
type Config struct {
	// TTL is how long a proposed action stays claimable. Zero means
	// DefaultTTL.
	TTL time.Duration
}

type entry struct {
	models.PendingAction

	// claimed is set between Claim and MarkExecuted so that two concurrent
	// confirmations of the same action cannot both execute it.
	claimed bool
}

// Ledger tracks proposed actions awaiting user confirmation. Entries are
// in-memory and mutex-guarded; expiry is lazy, applied whenever an entry is
// read.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*entry

	ttl     time.Duration
	auditor *audit.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewLedger creates a ledger. Auditor and metrics may be nil.
func NewLedger(auditor *audit.Logger, metrics *observability.Metrics, config Config) *Ledger {
	ttl := config.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Ledger{
		entries: make(map[string]*entry),
		ttl:     ttl,
		auditor: auditor,
		metrics: metrics,
		now:     time.Now,
	}
}

// RegisterMany records the proposed actions from one agent run under the
// caller's identity. Every entry is keyed by a freshly minted id; ids
// carried in the proposals come from model output and are never trusted
// as ledger keys, or a crafted proposal could overwrite another user's
// pending entry. Returns the ledger entries as registered, in order.
func (l *Ledger) RegisterMany(ctx context.Context, sub audit.Subject, proposed []models.ProposedAction) []models.PendingAction {
	if len(proposed) == 0 {
		return nil
	}
	now := l.now()

	l.mu.Lock()
	registered := make([]models.PendingAction, 0, len(proposed))
	for _, pa := range proposed {
		id := "action-" + uuid.NewString()[:8]
		e := &entry{PendingAction: models.PendingAction{
			ActionID:  id,
			ToolID:    pa.ToolID,
			Args:      pa.Args,
			Title:     pa.Title,
			Risk:      pa.Risk,
			UserID:    sub.UserID,
			TenantID:  sub.TenantID,
			AgentID:   sub.AgentID,
			Status:    models.ActionStatusProposed,
			CreatedAt: now,
			ExpiresAt: now.Add(l.ttl),
		}}
		l.entries[id] = e
		registered = append(registered, e.PendingAction)
	}
	l.mu.Unlock()

	for _, pa := range registered {
		l.recordTransition(models.ActionStatusProposed)
		if l.auditor != nil {
			l.auditor.LogActionEvent(ctx, audit.EventActionProposed, sub, pa.ActionID, pa.ToolID, "")
		}
	}
	return registered
}

// Claim reserves a proposed entry for execution on behalf of its owner.
// Exactly one of several concurrent claims succeeds; the rest see a
// StateError. Callers follow up with MarkExecuted once the tool has run, or
// Release if execution never started. Checks run in a fixed order:
// not-found, then expiry (recorded eagerly even though the claim fails),
// then state, then ownership.
func (l *Ledger) Claim(ctx context.Context, actionID, userID, tenantID string) (models.PendingAction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, err := l.lookupLocked(actionID)
	if err != nil {
		return models.PendingAction{}, err
	}
	if e.Status != models.ActionStatusProposed || e.claimed {
		return models.PendingAction{}, &StateError{ActionID: actionID, Status: e.Status}
	}
	if e.UserID != userID || e.TenantID != tenantID {
		return models.PendingAction{}, &MismatchError{ActionID: actionID}
	}
	e.claimed = true
	return e.PendingAction, nil
}

// Release undoes a claim whose execution never started, returning the entry
// to the claimable pool.
func (l *Ledger) Release(actionID string) {
	l.mu.Lock()
	if e, ok := l.entries[actionID]; ok && e.Status == models.ActionStatusProposed {
		e.claimed = false
	}
	l.mu.Unlock()
}

// MarkExecuted records a successful execution, stamping executedAt and a
// redacted summary of the tool result. Returns the updated entry.
func (l *Ledger) MarkExecuted(ctx context.Context, actionID string, result json.RawMessage) (models.PendingAction, error) {
	l.mu.Lock()
	e, ok := l.entries[actionID]
	if !ok {
		l.mu.Unlock()
		return models.PendingAction{}, &NotFoundError{ActionID: actionID}
	}
	if e.Status.Terminal() {
		status := e.Status
		l.mu.Unlock()
		return models.PendingAction{}, &StateError{ActionID: actionID, Status: status}
	}
	executedAt := l.now()
	e.Status = models.ActionStatusExecuted
	e.ExecutedAt = &executedAt
	e.ResultSummary = audit.Summarize(result, resultSummaryLimit)
	snapshot := e.PendingAction
	sub := audit.Subject{UserID: e.UserID, TenantID: e.TenantID, AgentID: e.AgentID}
	l.mu.Unlock()

	l.recordTransition(models.ActionStatusExecuted)
	if l.auditor != nil {
		l.auditor.LogActionEvent(ctx, audit.EventActionConfirmed, sub, actionID, snapshot.ToolID, snapshot.ResultSummary)
	}
	return snapshot, nil
}

// Cancel marks a proposed entry cancelled. Entries already in a terminal
// state are left untouched and a StateError is returned. Checks run in the
// same order as Claim.
func (l *Ledger) Cancel(ctx context.Context, actionID, userID, tenantID string) (models.PendingAction, error) {
	l.mu.Lock()
	e, err := l.lookupLocked(actionID)
	if err != nil {
		l.mu.Unlock()
		return models.PendingAction{}, err
	}
	if e.Status.Terminal() {
		status := e.Status
		l.mu.Unlock()
		return models.PendingAction{}, &StateError{ActionID: actionID, Status: status}
	}
	if e.UserID != userID || e.TenantID != tenantID {
		l.mu.Unlock()
		return models.PendingAction{}, &MismatchError{ActionID: actionID}
	}
	e.Status = models.ActionStatusCancelled
	snapshot := e.PendingAction
	sub := audit.Subject{UserID: e.UserID, TenantID: e.TenantID, AgentID: e.AgentID}
	l.mu.Unlock()

	l.recordTransition(models.ActionStatusCancelled)
	if l.auditor != nil {
		l.auditor.LogActionEvent(ctx, audit.EventActionCancelled, sub, actionID, snapshot.ToolID, "")
	}
	return snapshot, nil
}

// Get returns a snapshot of the entry, applying lazy expiry.
func (l *Ledger) Get(actionID string) (models.PendingAction, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[actionID]
	if !ok {
		return models.PendingAction{}, false
	}
	l.expireLocked(e)
	return e.PendingAction, true
}

// Clear drops every entry. Intended for tests and shutdown.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.entries = make(map[string]*entry)
	l.mu.Unlock()
}

// Len reports the number of entries currently held, including terminal ones.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// lookupLocked resolves an entry for a mutating call: not-found, then
// expiry. The expiry flip is a recorded side effect even though the caller
// ultimately fails. State and ownership checks stay with the callers.
func (l *Ledger) lookupLocked(actionID string) (*entry, error) {
	e, ok := l.entries[actionID]
	if !ok {
		return nil, &NotFoundError{ActionID: actionID}
	}
	if l.expireLocked(e) {
		return nil, &ExpiredError{ActionID: actionID}
	}
	return e, nil
}

// expireLocked applies lazy expiry to a proposed entry whose TTL elapsed.
func (l *Ledger) expireLocked(e *entry) bool {
	if e.Status == models.ActionStatusExpired {
		return true
	}
	if e.Status != models.ActionStatusProposed {
		return false
	}
	if l.now().Before(e.ExpiresAt) {
		return false
	}
	e.Status = models.ActionStatusExpired
	l.recordTransition(models.ActionStatusExpired)
	return true
}

func (l *Ledger) recordTransition(status models.PendingActionStatus) {
	if l.metrics != nil {
		l.metrics.RecordActionTransition(string(status))
	}
}
