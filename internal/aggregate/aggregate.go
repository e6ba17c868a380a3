// Package aggregate computes the dashboard figures from the raw collections.
// Every function is pure: the reference time is passed in, nothing is cached.
package aggregate

import (
	"cmp"
	"slices"
	"time"

	"fintrack/internal/core"
)

// Totals is the income/expense split of a set of transactions.
type Totals struct {
	Income   core.Money `json:"totalIncome"`
	Expenses core.Money `json:"totalExpenses"`
	Savings  core.Money `json:"savings"`
}

// MonthSummary is the budget view of the calendar month containing now.
type MonthSummary struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Totals
	MonthlyLimit core.Money `json:"monthlyLimit"`
	Remaining    core.Money `json:"remaining"`
	IsOverBudget bool       `json:"isOverBudget"`
	// SpendingPercentage is expenses/limit*100 and is not capped. It is only
	// meaningful when PercentageDefined is true (limit > 0).
	SpendingPercentage float64 `json:"spendingPercentage"`
	PercentageDefined  bool    `json:"percentageDefined"`
}

// DisplayPercentage caps the spending percentage to [0, 100]. An undefined
// percentage (limit <= 0) displays as a full bar.
func (m MonthSummary) DisplayPercentage() float64 {
	if !m.PercentageDefined {
		return 100
	}
	return min(max(m.SpendingPercentage, 0), 100)
}

// TotalsOf sums income and expenses over txs with no date restriction.
func TotalsOf(txs []core.Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			t.Income = t.Income.Add(tx.Amount)
		case core.Expense:
			t.Expenses = t.Expenses.Add(tx.Amount)
		}
	}
	t.Savings = t.Income.Sub(t.Expenses)
	return t
}

// InMonth returns the transactions dated in now's calendar month, using
// now's own location to decide the month.
func InMonth(txs []core.Transaction, now time.Time) []core.Transaction {
	year, month, _ := now.Date()
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Date.InMonth(year, month) {
			out = append(out, tx)
		}
	}
	return out
}

// MonthlyTotals builds the budget summary for the month containing now.
func MonthlyTotals(txs []core.Transaction, settings core.Settings, now time.Time) MonthSummary {
	year, month, _ := now.Date()
	totals := TotalsOf(InMonth(txs, now))
	limit := settings.MonthlyLimit

	m := MonthSummary{
		Year:         year,
		Month:        month,
		Totals:       totals,
		MonthlyLimit: limit,
		Remaining:    limit.Sub(totals.Expenses),
	}
	if limit.Cents <= 0 {
		m.IsOverBudget = true
		return m
	}
	m.IsOverBudget = totals.Expenses.Cents > limit.Cents
	m.SpendingPercentage = float64(totals.Expenses.Cents) / float64(limit.Cents) * 100
	m.PercentageDefined = true
	return m
}

// WeekBuckets is the number of fixed weekly buckets in a month.
const WeekBuckets = 4

// WeeklyBuckets splits one month's expenses by day of month. Bucket i holds
// days (7i, 7(i+1)]. Days 29-31 fall in no bucket and are summed in Unbucketed.
type WeeklyBuckets struct {
	Buckets    [WeekBuckets]core.Money `json:"buckets"`
	Unbucketed core.Money              `json:"unbucketed"`
}

// Labels returns the display names of the buckets.
func (WeeklyBuckets) Labels() [WeekBuckets]string {
	return [WeekBuckets]string{"Week 1", "Week 2", "Week 3", "Week 4"}
}

// HasSpending reports whether any bucket is non-zero.
func (w WeeklyBuckets) HasSpending() bool {
	return slices.ContainsFunc(w.Buckets[:], func(m core.Money) bool { return m.Cents != 0 })
}

// WeeklySpending buckets the current month's expenses.
func WeeklySpending(txs []core.Transaction, now time.Time) WeeklyBuckets {
	var w WeeklyBuckets
	for _, tx := range InMonth(txs, now) {
		if tx.Type != core.Expense {
			continue
		}
		day := tx.Date.Day()
		i := (day - 1) / 7
		if i < WeekBuckets {
			w.Buckets[i] = w.Buckets[i].Add(tx.Amount)
		} else {
			w.Unbucketed = w.Unbucketed.Add(tx.Amount)
		}
	}
	return w
}

// AllModes disables payment mode filtering.
const AllModes core.PaymentMode = "all"

// FilterByPaymentMode keeps the transactions paid with mode. AllModes (or
// an empty mode) returns a copy of txs.
func FilterByPaymentMode(txs []core.Transaction, mode core.PaymentMode) []core.Transaction {
	if mode == AllModes || mode == "" {
		return slices.Clone(txs)
	}
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.PaymentMode == mode {
			out = append(out, tx)
		}
	}
	return out
}

// SortByDateDesc returns txs newest first. Equal dates keep their input order.
func SortByDateDesc(txs []core.Transaction) []core.Transaction {
	out := slices.Clone(txs)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date.Time)
	})
	return out
}

// ExpensesByCategory sums this month's expenses per category, largest first.
// Ties keep first-seen order.
func ExpensesByCategory(txs []core.Transaction, now time.Time) []core.CategoryAmount {
	var out []core.CategoryAmount
	index := map[string]int{}
	for _, tx := range InMonth(txs, now) {
		if tx.Type != core.Expense {
			continue
		}
		i, ok := index[tx.Category]
		if !ok {
			i = len(out)
			index[tx.Category] = i
			out = append(out, core.CategoryAmount{Name: tx.Category})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	slices.SortStableFunc(out, func(a, b core.CategoryAmount) int {
		return cmp.Compare(b.Amount.Cents, a.Amount.Cents)
	})
	return out
}
