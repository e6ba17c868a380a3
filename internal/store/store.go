// Package store owns the four finance collections in memory and persists each
// one as a whole to a key-value backend after every mutation.
//
// Mutations apply synchronously and return the updated collection. The write
// to the backend runs in the background; its outcome is reported as a
// PersistEvent to subscribers, sinks and the Failures feed.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	"fintrack/internal/kv"
	applog "fintrack/internal/log"
)

// ID prefixes per collection.
const (
	TransactionPrefix  = "txn"
	GoalPrefix         = "goal"
	SubscriptionPrefix = "sub"
)

type Config struct {
	// PersistTimeout bounds each background write. Zero means no deadline.
	PersistTimeout time.Duration
	// FailureHistory is how many failed persists Failures keeps.
	FailureHistory int
	NewID          func(prefix string) string
	Now            func() time.Time
	Logger         *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		PersistTimeout: 15 * time.Second,
		FailureHistory: 20,
		NewID:          NewID,
		Now:            time.Now,
		Logger:         slog.Default(),
	}
}

// NewID returns "<prefix>_<uuid>".
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

// Snapshot is a consistent copy of all four collections.
type Snapshot struct {
	Transactions  []core.Transaction  `json:"transactions"`
	Goals         []core.Goal         `json:"goals"`
	Subscriptions []core.Subscription `json:"subscriptions"`
	Settings      core.Settings       `json:"settings"`
}

type Store struct {
	kv  kv.Store
	cfg Config
	log *slog.Logger

	mu            sync.RWMutex
	transactions  []core.Transaction
	goals         []core.Goal
	subscriptions []core.Subscription
	settings      core.Settings
	ready         bool

	*persister
}

func New(backend kv.Store, cfg Config) *Store {
	def := DefaultConfig()
	if cfg.NewID == nil {
		cfg.NewID = def.NewID
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if cfg.FailureHistory <= 0 {
		cfg.FailureHistory = def.FailureHistory
	}
	logger := applog.WithComponent(cfg.Logger, applog.ComponentStore)

	s := &Store{
		kv:            backend,
		cfg:           cfg,
		log:           logger,
		transactions:  []core.Transaction{},
		goals:         []core.Goal{},
		subscriptions: []core.Subscription{},
		settings:      core.DefaultSettings(),
	}
	s.persister = newPersister(backend, cfg.PersistTimeout, cfg.FailureHistory, cfg.Now, logger)
	return s
}

// Load reads the four collections concurrently. A missing key yields the
// collection default. Any other failure also yields the default and is
// included in the returned error. The store is ready afterwards either way.
func (s *Store) Load(ctx context.Context) error {
	var (
		snap Snapshot
		errs = make([]error, 4)
		g    errgroup.Group
	)
	start := time.Now()

	g.Go(func() error {
		snap.Transactions, errs[0] = loadCollection[[]core.Transaction](ctx, s.kv, kv.KeyTransactions, []core.Transaction{})
		return nil
	})
	g.Go(func() error {
		snap.Goals, errs[1] = loadCollection[[]core.Goal](ctx, s.kv, kv.KeyGoals, []core.Goal{})
		return nil
	})
	g.Go(func() error {
		snap.Subscriptions, errs[2] = loadCollection[[]core.Subscription](ctx, s.kv, kv.KeySubscriptions, []core.Subscription{})
		return nil
	})
	g.Go(func() error {
		snap.Settings, errs[3] = loadCollection[core.Settings](ctx, s.kv, kv.KeySettings, core.DefaultSettings())
		return nil
	})
	_ = g.Wait()

	if snap.Transactions == nil {
		snap.Transactions = []core.Transaction{}
	}
	if snap.Goals == nil {
		snap.Goals = []core.Goal{}
	}
	if snap.Subscriptions == nil {
		snap.Subscriptions = []core.Subscription{}
	}

	s.mu.Lock()
	s.transactions = snap.Transactions
	s.goals = snap.Goals
	s.subscriptions = snap.Subscriptions
	s.settings = snap.Settings
	s.ready = true
	s.mu.Unlock()

	err := errors.Join(errs...)
	if err != nil {
		s.log.WarnContext(ctx, "Load completed with defaults for failed collections",
			applog.FieldError, err,
			applog.FieldDuration, time.Since(start))
		return fmt.Errorf("load collections: %w", err)
	}
	s.log.InfoContext(ctx, "Collections loaded",
		"transactions", len(snap.Transactions),
		"goals", len(snap.Goals),
		"subscriptions", len(snap.Subscriptions),
		applog.FieldDuration, time.Since(start))
	return nil
}

func loadCollection[T any](ctx context.Context, backend kv.Store, key string, def T) (T, error) {
	v, err := kv.GetJSON[T](ctx, backend, key)
	if errors.Is(err, kv.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

// Ready reports whether Load has completed.
func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.transactions)
}

func (s *Store) Goals() []core.Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.goals)
}

func (s *Store) Subscriptions() []core.Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.subscriptions)
}

func (s *Store) Settings() core.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Transactions:  slices.Clone(s.transactions),
		Goals:         slices.Clone(s.goals),
		Subscriptions: slices.Clone(s.subscriptions),
		Settings:      s.settings,
	}
}

// collection returns the current value stored under key. Caller holds s.mu.
func (s *Store) collection(key string) (any, error) {
	switch key {
	case kv.KeyTransactions:
		return slices.Clone(s.transactions), nil
	case kv.KeyGoals:
		return slices.Clone(s.goals), nil
	case kv.KeySubscriptions:
		return slices.Clone(s.subscriptions), nil
	case kv.KeySettings:
		return s.settings, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, key)
}

// resetCollection restores the default for key. Caller holds s.mu.
func (s *Store) resetCollection(key string) error {
	switch key {
	case kv.KeyTransactions:
		s.transactions = []core.Transaction{}
	case kv.KeyGoals:
		s.goals = []core.Goal{}
	case kv.KeySubscriptions:
		s.subscriptions = []core.Subscription{}
	case kv.KeySettings:
		s.settings = core.DefaultSettings()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCollection, key)
	}
	return nil
}

// ErrUnknownCollection is returned for keys other than the four collections.
var ErrUnknownCollection = errors.New("unknown collection")

// Resync schedules a write of the current in-memory collection under key.
// It is the retry path after a failed persist.
func (s *Store) Resync(key string) (uint64, error) {
	if !kv.IsCollectionKey(key) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownCollection, key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	value, err := s.collection(key)
	if err != nil {
		return 0, err
	}
	return s.schedule(key, value), nil
}

// Reset deletes key from the backend and restores its default in memory.
// Unlike mutations it waits for the backend and returns its error.
func (s *Store) Reset(ctx context.Context, key string) error {
	if !kv.IsCollectionKey(key) {
		return fmt.Errorf("%w: %q", ErrUnknownCollection, key)
	}
	s.mu.Lock()
	if err := s.resetCollection(key); err != nil {
		s.mu.Unlock()
		return err
	}
	rev := s.nextRevision(key)
	s.mu.Unlock()

	return s.remove(ctx, key, rev)
}

// Close waits for in-flight persists, bounded by ctx, and stops subscribers.
func (s *Store) Close(ctx context.Context) error {
	err := s.Wait(ctx)
	s.closeSubscribers()
	return err
}
