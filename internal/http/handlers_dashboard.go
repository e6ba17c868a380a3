package http

import (
	"net/http"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
)

type weeklyView struct {
	Labels []string `json:"labels"`
	aggregate.WeeklyBuckets
	HasSpending bool `json:"hasSpending"`
}

type dashboardView struct {
	Summary           aggregate.MonthSummary      `json:"summary"`
	DisplayPercentage float64                     `json:"displayPercentage"`
	Weekly            weeklyView                  `json:"weekly"`
	ByCategory        []core.CategoryAmount       `json:"byCategory"`
	UpcomingBillings  []aggregate.UpcomingBilling `json:"upcomingBillings"`
}

// handleDashboard returns the budget view of a month (the current one unless
// year/month are given). Upcoming billings are always relative to today.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	ref := ParseMonthParams(r.URL.Query(), today).ReferenceTime(today)
	snap := s.store.Snapshot()

	summary := aggregate.MonthlyTotals(snap.Transactions, snap.Settings, ref)
	weekly := aggregate.WeeklySpending(snap.Transactions, ref)
	labels := weekly.Labels()

	NewResponse().JSON(dashboardView{
		Summary:           summary,
		DisplayPercentage: summary.DisplayPercentage(),
		Weekly: weeklyView{
			Labels:        labels[:],
			WeeklyBuckets: weekly,
			HasSpending:   weekly.HasSpending(),
		},
		ByCategory:       orEmpty(aggregate.ExpensesByCategory(snap.Transactions, ref)),
		UpcomingBillings: orEmpty(aggregate.UpcomingBillings(snap.Subscriptions, today)),
	}).Write(w)
}

// orEmpty keeps empty lists as [] instead of null in JSON.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
