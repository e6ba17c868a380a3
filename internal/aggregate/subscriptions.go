package aggregate

import (
	"cmp"
	"slices"
	"time"

	"fintrack/internal/core"
)

// UpcomingWindow is how many days ahead a billing counts as upcoming.
const UpcomingWindow = 7

// SubscriptionSummary sums active subscriptions per billing cycle. Yearly
// amounts are not spread over months.
type SubscriptionSummary struct {
	Monthly     core.Money `json:"monthlyTotal"`
	Yearly      core.Money `json:"yearlyTotal"`
	ActiveCount int        `json:"activeCount"`
}

func SubscriptionTotals(subs []core.Subscription) SubscriptionSummary {
	var s SubscriptionSummary
	for _, sub := range subs {
		if !sub.IsActive {
			continue
		}
		s.ActiveCount++
		switch sub.Cycle {
		case core.Monthly:
			s.Monthly = s.Monthly.Add(sub.Amount)
		case core.Yearly:
			s.Yearly = s.Yearly.Add(sub.Amount)
		}
	}
	return s
}

// BillingWindow describes how far away a subscription's billing day is.
type BillingWindow struct {
	DaysUntilBilling int  `json:"daysUntilBilling"`
	Upcoming         bool `json:"upcoming"`
}

// Billing compares the billing day with today's day of month. A day that has
// already passed this month gives a negative count and is not upcoming; there
// is no rollover to the next cycle.
func Billing(sub core.Subscription, now time.Time) BillingWindow {
	d := sub.BillingDate - now.Day()
	return BillingWindow{
		DaysUntilBilling: d,
		Upcoming:         d >= 0 && d <= UpcomingWindow,
	}
}

// UpcomingBilling pairs a subscription with its billing window.
type UpcomingBilling struct {
	Subscription core.Subscription `json:"subscription"`
	BillingWindow
}

// UpcomingBillings lists active subscriptions billing within the window,
// soonest first.
func UpcomingBillings(subs []core.Subscription, now time.Time) []UpcomingBilling {
	var out []UpcomingBilling
	for _, sub := range subs {
		if !sub.IsActive {
			continue
		}
		if w := Billing(sub, now); w.Upcoming {
			out = append(out, UpcomingBilling{Subscription: sub, BillingWindow: w})
		}
	}
	slices.SortStableFunc(out, func(a, b UpcomingBilling) int {
		return cmp.Compare(a.DaysUntilBilling, b.DaysUntilBilling)
	})
	return out
}

// Progress is how far a goal has come.
type Progress struct {
	Percent   float64    `json:"percent"`
	Remaining core.Money `json:"remaining"`
	Complete  bool       `json:"complete"`
}

// GoalProgress reports percent saved (capped at 100) and the amount left.
func GoalProgress(g core.Goal) Progress {
	p := Progress{Remaining: g.TargetAmount.Sub(g.CurrentAmount)}
	if p.Remaining.Cents < 0 {
		p.Remaining = core.Money{}
	}
	if g.TargetAmount.Cents > 0 {
		p.Percent = min(float64(g.CurrentAmount.Cents)/float64(g.TargetAmount.Cents)*100, 100)
	}
	p.Complete = g.TargetAmount.Cents > 0 && g.CurrentAmount.Cents >= g.TargetAmount.Cents
	return p
}
