package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Online PaymentMode = "online"
	Cash   PaymentMode = "cash"

	Monthly BillingCycle = "monthly"
	Yearly  BillingCycle = "yearly"
)

// DefaultMonthlyLimit is applied when no settings have been stored yet.
var DefaultMonthlyLimit = Money{Cents: 50000 * 100}

type (
	TransactionType string
	PaymentMode     string
	BillingCycle    string

	Transaction struct {
		ID          string          `json:"id"`
		Title       string          `json:"title"`
		Amount      Money           `json:"amount"`
		Date        Date            `json:"date"`
		Category    string          `json:"category"`
		Type        TransactionType `json:"type"`
		PaymentMode PaymentMode     `json:"paymentMode"`
	}

	// TransactionInput carries every Transaction field except the id.
	TransactionInput struct {
		Title       string          `json:"title"`
		Amount      Money           `json:"amount"`
		Date        Date            `json:"date"`
		Category    string          `json:"category"`
		Type        TransactionType `json:"type"`
		PaymentMode PaymentMode     `json:"paymentMode"`
	}

	Goal struct {
		ID            string    `json:"id"`
		Name          string    `json:"name"`
		TargetAmount  Money     `json:"targetAmount"`
		CurrentAmount Money     `json:"currentAmount"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	GoalInput struct {
		Name         string `json:"name"`
		TargetAmount Money  `json:"targetAmount"`
	}

	Subscription struct {
		ID          string       `json:"id"`
		Name        string       `json:"name"`
		Amount      Money        `json:"amount"`
		BillingDate int          `json:"billingDate"` // day of month
		Cycle       BillingCycle `json:"cycle"`
		IsActive    bool         `json:"isActive"`
	}

	// SubscriptionInput leaves IsActive nil when the caller does not want to change it.
	SubscriptionInput struct {
		Name        string       `json:"name"`
		Amount      Money        `json:"amount"`
		BillingDate int          `json:"billingDate"`
		Cycle       BillingCycle `json:"cycle"`
		IsActive    *bool        `json:"isActive,omitempty"`
	}

	Settings struct {
		MonthlyLimit Money `json:"monthlyLimit"`
	}
)

// ErrValidation is the parent of every input validation error.
var ErrValidation = errors.New("validation failed")

var (
	ErrInvalidAmount       = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDate         = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrEmptyTitle          = fmt.Errorf("%w: empty title", ErrValidation)
	ErrEmptyName           = fmt.Errorf("%w: empty name", ErrValidation)
	ErrEmptyCategory       = fmt.Errorf("%w: empty category", ErrValidation)
	ErrInvalidType         = fmt.Errorf("%w: invalid transaction type", ErrValidation)
	ErrInvalidPaymentMode  = fmt.Errorf("%w: invalid payment mode", ErrValidation)
	ErrInvalidBillingDate  = fmt.Errorf("%w: billing date must be between 1 and 31", ErrValidation)
	ErrInvalidBillingCycle = fmt.Errorf("%w: invalid billing cycle", ErrValidation)
	ErrTextTooLong         = fmt.Errorf("%w: text too long (max 200 characters)", ErrValidation)
)

const maxTextLen = 200

func (t TransactionType) IsValid() bool { return t == Income || t == Expense }

func (m PaymentMode) IsValid() bool { return m == Online || m == Cash }

func (c BillingCycle) IsValid() bool { return c == Monthly || c == Yearly }

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() Settings {
	return Settings{MonthlyLimit: DefaultMonthlyLimit}
}

// Normalized trims text fields and defaults an empty payment mode to online.
func (in TransactionInput) Normalized() TransactionInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Category = strings.TrimSpace(in.Category)
	if in.PaymentMode == "" {
		in.PaymentMode = Online
	}
	return in
}

func (in TransactionInput) Validate() error {
	if err := validateText(in.Title, ErrEmptyTitle); err != nil {
		return err
	}
	if err := in.Amount.ValidateNonNegative(); err != nil {
		return err
	}
	if in.Date.IsZero() {
		return ErrInvalidDate
	}
	if err := validateText(in.Category, ErrEmptyCategory); err != nil {
		return err
	}
	if !in.Type.IsValid() {
		return ErrInvalidType
	}
	if !in.PaymentMode.IsValid() {
		return ErrInvalidPaymentMode
	}
	return nil
}

// Apply copies the input onto t, keeping its id.
func (in TransactionInput) Apply(t Transaction) Transaction {
	t.Title = in.Title
	t.Amount = in.Amount
	t.Date = in.Date
	t.Category = in.Category
	t.Type = in.Type
	t.PaymentMode = in.PaymentMode
	return t
}

func (in GoalInput) Validate() error {
	if err := validateText(in.Name, ErrEmptyName); err != nil {
		return err
	}
	return in.TargetAmount.Validate()
}

// Contribute adds amount to the goal, clamping at the target.
// Non-positive amounts leave the goal unchanged.
func (g Goal) Contribute(amount Money) Goal {
	if amount.Cents <= 0 {
		return g
	}
	next := g.CurrentAmount.Cents + amount.Cents
	if next > g.TargetAmount.Cents {
		next = g.TargetAmount.Cents
	}
	if next > g.CurrentAmount.Cents {
		g.CurrentAmount = Money{Cents: next}
	}
	return g
}

func (in SubscriptionInput) Validate() error {
	if err := validateText(in.Name, ErrEmptyName); err != nil {
		return err
	}
	if err := in.Amount.ValidateNonNegative(); err != nil {
		return err
	}
	if in.BillingDate < 1 || in.BillingDate > 31 {
		return ErrInvalidBillingDate
	}
	if !in.Cycle.IsValid() {
		return ErrInvalidBillingCycle
	}
	return nil
}

// Apply copies the input onto s. IsActive is only changed when provided.
func (in SubscriptionInput) Apply(s Subscription) Subscription {
	s.Name = strings.TrimSpace(in.Name)
	s.Amount = in.Amount
	s.BillingDate = in.BillingDate
	s.Cycle = in.Cycle
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	}
	return s
}

func (s Settings) Validate() error {
	return s.MonthlyLimit.Validate()
}

func validateText(s string, emptyErr error) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return emptyErr
	}
	if len(s) > maxTextLen {
		return ErrTextTooLong
	}
	return nil
}
