package tododb

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// observer is the type-erased side of a [Subscription] the hub works with.
type observer interface {
	wake()
	Cancel()
}

// hub routes commit notifications to the observers of the touched tables.
type hub struct {
	log *zap.Logger

	mu      sync.Mutex
	closed  bool
	byTable map[string]map[observer]struct{}
}

func newHub(log *zap.Logger) *hub {
	return &hub{log: log, byTable: make(map[string]map[observer]struct{})}
}

func (h *hub) add(o observer, tables []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}

	for _, table := range tables {
		set := h.byTable[table]
		if set == nil {
			set = make(map[observer]struct{})
			h.byTable[table] = set
		}

		set[o] = struct{}{}
	}

	return nil
}

func (h *hub) remove(o observer, tables []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, table := range tables {
		set := h.byTable[table]
		delete(set, o)

		if len(set) == 0 {
			delete(h.byTable, table)
		}
	}
}

// notify wakes every observer of tables. It never blocks.
func (h *hub) notify(commit uint64, tables []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	woken := 0

	for _, table := range tables {
		for o := range h.byTable[table] {
			o.wake()
			woken++
		}
	}

	if woken > 0 {
		h.log.Debug("commit observed", zap.Uint64("commit", commit), zap.Int("observers", woken))
	}
}

// size returns the number of registered observers.
func (h *hub) size() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[observer]struct{})

	for _, set := range h.byTable {
		for o := range set {
			seen[o] = struct{}{}
		}
	}

	return len(seen)
}

// closeAll cancels every observer and refuses new ones.
func (h *hub) closeAll() {
	h.mu.Lock()
	h.closed = true

	var all []observer

	for _, set := range h.byTable {
		for o := range set {
			all = append(all, o)
		}
	}
	h.mu.Unlock()

	for _, o := range all {
		o.Cancel()
	}
}

// ObserveOption configures [Observe].
type ObserveOption func(*observeConfig)

type observeConfig struct {
	onError func(error)
}

// OnError registers fn to receive failed re-evaluations. The subscription
// keeps its last good value and stays active.
func OnError(fn func(error)) ObserveOption {
	return func(c *observeConfig) { c.onError = fn }
}

// Subscription is a live observation of a [Query], created by [Observe].
type Subscription[R any] struct {
	id       string
	db       *DB
	query    Query[R]
	tables   []string
	onChange func(R)
	onError  func(error)
	log      *zap.Logger

	ctx    context.Context
	stop   context.CancelFunc
	wakeCh chan struct{}
	done   chan struct{}

	canceled atomic.Bool

	// deliverMu is held from the canceled check until a callback returns.
	// Cancel takes it only while no callback is running.
	deliverMu  sync.Mutex
	delivering atomic.Bool

	mu    sync.Mutex
	value R
}

// Observe evaluates q right away and again after every commit that changes
// one of q.Tables(), passing each result to onChange.
//
// Callbacks run on a goroutine owned by the subscription, one at a time, in
// commit order: a delivered value never reflects an older state than the
// one delivered before it. Notifications that arrive during an evaluation
// coalesce into a single re-evaluation.
//
// A failed evaluation delivers nothing: the last value stays current, the
// error is logged and passed to the [OnError] handler if one is set.
//
// The subscription ends when [Subscription.Cancel] is called, when ctx is
// done or when db is closed.
func Observe[R any](ctx context.Context, db *DB, q Query[R], onChange func(R), opts ...ObserveOption) (*Subscription[R], error) {
	if ctx == nil {
		return nil, errors.New("tododb: context is nil")
	}

	if onChange == nil {
		return nil, errors.New("tododb: onChange is nil")
	}

	if db.closed.Load() {
		return nil, ErrClosed
	}

	var cfg observeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	id := uuid.Must(uuid.NewV7()).String()
	sctx, stop := context.WithCancel(ctx)

	s := &Subscription[R]{
		id:       id,
		db:       db,
		query:    q,
		tables:   append([]string(nil), q.Tables()...),
		onChange: onChange,
		onError:  cfg.onError,
		log:      db.log.With(zap.String("subscription", id)),
		ctx:      sctx,
		stop:     stop,
		wakeCh:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		value:    q.Default(),
	}

	// Registering before the first evaluation means no commit can fall
	// between the initial value and the first notification.
	err := db.hub.add(s, s.tables)
	if err != nil {
		stop()

		return nil, err
	}

	go s.run()

	return s, nil
}

// ID identifies the subscription in logs.
func (s *Subscription[R]) ID() string {
	return s.id
}

// Value returns the last delivered value, or the query's default before
// the first delivery.
func (s *Subscription[R]) Value() R {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.value
}

// Done is closed once the subscription's goroutine has exited.
func (s *Subscription[R]) Done() <-chan struct{} {
	return s.done
}

// Cancel ends the subscription. No callback starts after Cancel returns.
// It is idempotent and may be called from inside a callback.
func (s *Subscription[R]) Cancel() {
	if !s.canceled.CompareAndSwap(false, true) {
		return
	}

	s.stop()
	s.db.hub.remove(s, s.tables)

	// Wait out an evaluation that passed its canceled check but has not
	// entered the callback yet.
	if !s.delivering.Load() {
		s.deliverMu.Lock()
		s.deliverMu.Unlock() //nolint:staticcheck // empty critical section is a barrier
	}

	s.log.Debug("subscription canceled")
}

func (s *Subscription[R]) wake() {
	select {
	case s.wakeCh <- struct{}{}:
	default:
	}
}

func (s *Subscription[R]) run() {
	defer close(s.done)
	defer s.Cancel()

	s.evaluate()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wakeCh:
			s.evaluate()
		}
	}
}

func (s *Subscription[R]) evaluate() {
	commit := s.db.commits.Load()

	v, err := Fetch(s.ctx, s.db.Reader(), s.query)

	if s.canceled.Load() || s.ctx.Err() != nil {
		return
	}

	if err != nil {
		s.fail(err)

		return
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	if s.canceled.Load() {
		return
	}

	s.mu.Lock()
	s.value = v
	s.mu.Unlock()

	s.log.Debug("observation delivered", zap.Uint64("commit", commit))
	s.call(func() { s.onChange(v) })
}

func (s *Subscription[R]) fail(err error) {
	s.log.Warn("observation failed, keeping last value", zap.Error(err))

	if s.onError == nil {
		return
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	if s.canceled.Load() {
		return
	}

	s.call(func() { s.onError(err) })
}

// call runs a subscriber callback. A panic is logged and does not end the
// subscription.
func (s *Subscription[R]) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("subscriber callback panicked", zap.Any("panic", r), zap.StackSkip("stack", 1))
		}
	}()

	s.delivering.Store(true)
	defer s.delivering.Store(false)

	fn()
}
