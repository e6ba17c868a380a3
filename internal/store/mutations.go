package store

import (
	"fmt"
	"slices"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/kv"
	applog "fintrack/internal/log"
)

// AddTransaction validates in, assigns a new id and appends it.
func (s *Store) AddTransaction(in core.TransactionInput) ([]core.Transaction, error) {
	in = in.Normalized()
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("add transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx := in.Apply(core.Transaction{ID: s.cfg.NewID(TransactionPrefix)})
	s.transactions = append(s.transactions, tx)
	rev := s.schedule(kv.KeyTransactions, s.transactions)

	s.log.Info("Transaction added",
		applog.FieldID, tx.ID,
		applog.FieldAmount, tx.Amount.String(),
		"type", tx.Type,
		applog.FieldRevision, rev)
	return slices.Clone(s.transactions), nil
}

// DeleteTransaction removes the transaction with id. An unknown id changes
// nothing but the collection is still persisted.
func (s *Store) DeleteTransaction(id string) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.transactions)
	s.transactions = slices.DeleteFunc(s.transactions, func(t core.Transaction) bool { return t.ID == id })
	rev := s.schedule(kv.KeyTransactions, s.transactions)

	s.log.Info("Transaction deleted",
		applog.FieldID, id,
		"found", before != len(s.transactions),
		applog.FieldRevision, rev)
	return slices.Clone(s.transactions)
}

// EditTransaction replaces every field except the id. Unknown ids are a no-op.
func (s *Store) EditTransaction(id string, in core.TransactionInput) ([]core.Transaction, error) {
	in = in.Normalized()
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("edit transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.transactions, func(t core.Transaction) bool { return t.ID == id })
	if i >= 0 {
		s.transactions[i] = in.Apply(s.transactions[i])
	}
	rev := s.schedule(kv.KeyTransactions, s.transactions)

	s.log.Info("Transaction edited", applog.FieldID, id, "found", i >= 0, applog.FieldRevision, rev)
	return slices.Clone(s.transactions), nil
}

// AddGoal creates a goal with nothing saved towards it yet.
func (s *Store) AddGoal(in core.GoalInput) ([]core.Goal, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("add goal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	g := core.Goal{
		ID:           s.cfg.NewID(GoalPrefix),
		Name:         strings.TrimSpace(in.Name),
		TargetAmount: in.TargetAmount,
		CreatedAt:    s.cfg.Now().UTC(),
	}
	s.goals = append(s.goals, g)
	rev := s.schedule(kv.KeyGoals, s.goals)

	s.log.Info("Goal added", applog.FieldID, g.ID, applog.FieldAmount, g.TargetAmount.String(), applog.FieldRevision, rev)
	return slices.Clone(s.goals), nil
}

// ContributeToGoal adds a positive amount, never past the goal's target.
func (s *Store) ContributeToGoal(id string, amount core.Money) ([]core.Goal, error) {
	if err := amount.Validate(); err != nil {
		return nil, fmt.Errorf("contribute to goal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.goals, func(g core.Goal) bool { return g.ID == id })
	if i >= 0 {
		s.goals[i] = s.goals[i].Contribute(amount)
	}
	rev := s.schedule(kv.KeyGoals, s.goals)

	s.log.Info("Goal contribution",
		applog.FieldID, id,
		applog.FieldAmount, amount.String(),
		"found", i >= 0,
		applog.FieldRevision, rev)
	return slices.Clone(s.goals), nil
}

// AddSubscription creates a subscription, active unless in says otherwise.
func (s *Store) AddSubscription(in core.SubscriptionInput) ([]core.Subscription, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("add subscription: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sub := in.Apply(core.Subscription{ID: s.cfg.NewID(SubscriptionPrefix), IsActive: true})
	s.subscriptions = append(s.subscriptions, sub)
	rev := s.schedule(kv.KeySubscriptions, s.subscriptions)

	s.log.Info("Subscription added", applog.FieldID, sub.ID, "cycle", sub.Cycle, applog.FieldRevision, rev)
	return slices.Clone(s.subscriptions), nil
}

// ToggleSubscription flips isActive.
func (s *Store) ToggleSubscription(id string) []core.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.subscriptions, func(sub core.Subscription) bool { return sub.ID == id })
	if i >= 0 {
		s.subscriptions[i].IsActive = !s.subscriptions[i].IsActive
	}
	rev := s.schedule(kv.KeySubscriptions, s.subscriptions)

	s.log.Info("Subscription toggled", applog.FieldID, id, "found", i >= 0, applog.FieldRevision, rev)
	return slices.Clone(s.subscriptions)
}

// EditSubscription replaces every field except the id. isActive only
// changes when in carries it.
func (s *Store) EditSubscription(id string, in core.SubscriptionInput) ([]core.Subscription, error) {
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("edit subscription: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.subscriptions, func(sub core.Subscription) bool { return sub.ID == id })
	if i >= 0 {
		s.subscriptions[i] = in.Apply(s.subscriptions[i])
	}
	rev := s.schedule(kv.KeySubscriptions, s.subscriptions)

	s.log.Info("Subscription edited", applog.FieldID, id, "found", i >= 0, applog.FieldRevision, rev)
	return slices.Clone(s.subscriptions), nil
}

// UpdateMonthlyLimit replaces the spending limit. amount must be positive.
func (s *Store) UpdateMonthlyLimit(amount core.Money) (core.Settings, error) {
	next := core.Settings{MonthlyLimit: amount}
	if err := next.Validate(); err != nil {
		return core.Settings{}, fmt.Errorf("update monthly limit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = next
	rev := s.schedule(kv.KeySettings, s.settings)

	s.log.Info("Monthly limit updated", applog.FieldAmount, amount.String(), applog.FieldRevision, rev)
	return s.settings, nil
}
