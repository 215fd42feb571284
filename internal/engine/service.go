// Package engine runs the ledger as a single actor: commands are applied one at
// a time under a lock, queries read the current immutable snapshot, and a
// background worker persists the latest snapshot after every change.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kinshukkush/smartsplit/internal/balance"
	"github.com/kinshukkush/smartsplit/internal/ledger"
	"github.com/kinshukkush/smartsplit/internal/metrics"
	"github.com/kinshukkush/smartsplit/internal/settlement"
	"github.com/kinshukkush/smartsplit/internal/state"
)

// ErrClosed is returned by Dispatch once the service has been closed.
var ErrClosed = errors.New("engine closed")

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=engine
type Repository interface {
	// Load returns the stored snapshot, or an error matching
	// ledger.ErrNotFound when nothing has been stored yet.
	Load(ctx context.Context) (ledger.Snapshot, error)
	Save(ctx context.Context, snap ledger.Snapshot) error
}

type Options struct {
	Reducer *state.Reducer
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	// Settings seed the snapshot when the repository holds none.
	Settings *ledger.Settings
	// SaveTimeout bounds a single save. Zero means 10 seconds.
	SaveTimeout time.Duration
	Now         func() time.Time
}

type pendingSave struct {
	snap    ledger.Snapshot
	version uint64
}

type Service struct {
	repo        Repository
	reducer     *state.Reducer
	metrics     *metrics.Metrics
	logger      *slog.Logger
	settings    ledger.Settings
	saveTimeout time.Duration
	now         func() time.Time

	mu      sync.RWMutex
	snap    ledger.Snapshot
	version uint64
	status  Status
	closed  bool

	pending   chan pendingSave
	errs      chan error
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewService(repo Repository, opts Options) *Service {
	s := &Service{
		repo:        repo,
		reducer:     opts.Reducer,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		settings:    ledger.DefaultSettings(),
		saveTimeout: opts.SaveTimeout,
		now:         opts.Now,
		pending:     make(chan pendingSave, 1),
		errs:        make(chan error, 16),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}

	if s.reducer == nil {
		s.reducer = state.NewReducer()
	}

	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	if opts.Settings != nil {
		s.settings = *opts.Settings
	}

	if s.saveTimeout == 0 {
		s.saveTimeout = 10 * time.Second
	}

	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}

	s.snap = s.emptySnapshot()
	s.status = Status{SyncStatus: SyncIdle}

	go s.worker()

	return s
}

func (s *Service) emptySnapshot() ledger.Snapshot {
	snap := ledger.NewSnapshot()
	snap.Settings = s.settings

	return snap.Normalize()
}

// Load replaces the in-memory snapshot with the stored one. A repository with
// nothing stored leaves the empty default snapshot in place. Any other failure
// is returned as a *ledger.PersistenceError.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	s.status.Loading = true
	s.mu.Unlock()

	snap, err := s.repo.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Loading = false

	switch {
	case errors.Is(err, ledger.ErrNotFound):
		s.logger.Info("no stored snapshot, starting empty")
		s.snap = s.emptySnapshot()
	case err != nil:
		perr := &ledger.PersistenceError{Op: "load", Err: err}
		s.recordFailureLocked(perr)

		return perr
	default:
		s.snap = snap.Normalize()
		s.status.SyncStatus = SyncSynced
		s.status.LastError = ""
	}

	s.metrics.SetEntities(entityCounts(s.snap))
	s.logger.Info("ledger loaded", "users", len(s.snap.Users), "expenses", len(s.snap.Expenses))

	return nil
}

// Dispatch applies cmd and schedules the resulting snapshot for saving. A
// command that fails leaves the ledger unchanged.
func (s *Service) Dispatch(ctx context.Context, cmd state.Command) (ledger.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kind := "unknown"
	if cmd != nil {
		kind = string(cmd.Kind())
	}

	if s.closed {
		return s.snap, ErrClosed
	}

	next, err := s.reducer.Apply(s.snap, cmd)
	if err != nil {
		s.metrics.CommandApplied(kind, resultOf(err))
		return s.snap, err
	}

	s.snap = next
	s.version++
	s.status.SyncStatus = SyncPending

	s.enqueueLocked(pendingSave{snap: next, version: s.version})

	s.metrics.CommandApplied(kind, "ok")
	s.metrics.SetEntities(entityCounts(next))

	return next, nil
}

// DispatchAll applies cmds in order as one change: either every command
// succeeds and a single snapshot is saved, or the ledger is left unchanged.
func (s *Service) DispatchAll(ctx context.Context, cmds []state.Command) (ledger.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return s.snap, ErrClosed
	}

	next := s.snap

	for i, cmd := range cmds {
		applied, err := s.reducer.Apply(next, cmd)
		if err != nil {
			kind := "unknown"
			if cmd != nil {
				kind = string(cmd.Kind())
			}

			s.metrics.CommandApplied(kind, resultOf(err))

			return s.snap, fmt.Errorf("command %d: %w", i+1, err)
		}

		next = applied
	}

	if len(cmds) == 0 {
		return s.snap, nil
	}

	s.snap = next
	s.version++
	s.status.SyncStatus = SyncPending

	s.enqueueLocked(pendingSave{snap: next, version: s.version})

	for _, cmd := range cmds {
		s.metrics.CommandApplied(string(cmd.Kind()), "ok")
	}

	s.metrics.SetEntities(entityCounts(next))

	return next, nil
}

// Preview applies cmd to the current snapshot and returns the result without
// committing or saving it.
func (s *Service) Preview(cmd state.Command) (ledger.Snapshot, error) {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()

	return s.reducer.Apply(snap, cmd)
}

// enqueueLocked leaves exactly the newest snapshot in the one-slot queue. Only
// writers holding mu send, so the send after draining cannot block.
func (s *Service) enqueueLocked(p pendingSave) {
	select {
	case <-s.pending:
	default:
	}

	s.pending <- p
}

func (s *Service) worker() {
	defer close(s.done)

	for {
		select {
		case p := <-s.pending:
			s.save(p)
		case <-s.stop:
			select {
			case p := <-s.pending:
				s.save(p)
			default:
			}

			return
		}
	}
}

func (s *Service) save(p pendingSave) {
	s.mu.Lock()
	s.status.SyncStatus = SyncSaving
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.saveTimeout)
	defer cancel()

	err := s.repo.Save(ctx, p.snap)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.recordFailureLocked(&ledger.PersistenceError{Op: "save", Err: err})
		return
	}

	savedAt := s.now()
	s.status.LastSavedAt = &savedAt
	s.status.LastError = ""

	if p.version == s.version {
		s.status.SyncStatus = SyncSynced
	} else {
		s.status.SyncStatus = SyncPending
	}
}

// recordFailureLocked reports a persistence failure without touching the
// in-memory snapshot.
func (s *Service) recordFailureLocked(err *ledger.PersistenceError) {
	s.status.SyncStatus = SyncFailed
	s.status.LastError = err.Error()
	s.metrics.PersistenceFailed()
	s.logger.Error("persistence failed", "op", err.Op, "error", err.Err)

	select {
	case s.errs <- err:
	default:
		s.logger.Warn("error channel full, dropping persistence error", "op", err.Op)
	}
}

// Errors publishes every persistence failure. The channel is buffered and
// failures are dropped when nobody reads it.
func (s *Service) Errors() <-chan error {
	return s.errs
}

// Close stops accepting commands, saves the last pending snapshot and stops
// the worker.
func (s *Service) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.stop)
	})

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close engine: %w", ctx.Err())
	}
}

// Snapshot returns the current snapshot. It must not be modified.
func (s *Service) Snapshot() ledger.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snap
}

// Status returns the transient, never persisted, state of the service.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.status
	st.Version = s.version

	return st
}

// Balance returns the debt summary of one user. Unknown users get zeros.
func (s *Service) Balance(userID string) balance.DebtSummary {
	return balance.Calculate(s.Snapshot().Expenses, userID)
}

// Balances returns the summary of every user in the ledger, including users
// without expenses.
func (s *Service) Balances() []balance.DebtSummary {
	snap := s.Snapshot()
	all := balance.CalculateAll(snap.Expenses)

	order := snap.UserOrder()
	out := make([]balance.DebtSummary, 0, len(order))

	for _, id := range order {
		summary, ok := all[id]
		if !ok {
			summary = balance.Zero(id)
		}

		out = append(out, summary)
	}

	return out
}

func (s *Service) Suggestions() []ledger.Settlement {
	return settlement.Suggest(s.Snapshot(), settlement.Options{Now: s.now()})
}

// Optimize returns the minimal settlement plan for userIDs, or for every known
// user when userIDs is empty.
func (s *Service) Optimize(userIDs []string) []ledger.Settlement {
	snap := s.Snapshot()
	if len(userIDs) == 0 {
		userIDs = snap.UserOrder()
	}

	return settlement.Optimize(snap, userIDs, settlement.Options{Now: s.now()})
}

func resultOf(err error) string {
	var nf *ledger.NotFoundError

	switch {
	case ledger.IsValidation(err):
		return "validation"
	case errors.As(err, &nf):
		return "not_found"
	default:
		return "error"
	}
}

func entityCounts(snap ledger.Snapshot) map[string]int {
	return map[string]int{
		"users":       len(snap.Users),
		"expenses":    len(snap.Expenses),
		"groups":      len(snap.Groups),
		"payments":    len(snap.Payments),
		"reminders":   len(snap.Reminders),
		"settlements": len(snap.Settlements),
		"categories":  len(snap.Categories),
		"activities":  len(snap.ActivityFeed),
	}
}
