package http

import (
	"net/http"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

type goalView struct {
	core.Goal
	Progress aggregate.Progress `json:"progress"`
}

func goalViews(goals []core.Goal) []goalView {
	out := make([]goalView, 0, len(goals))
	for _, g := range goals {
		out = append(out, goalView{Goal: g, Progress: aggregate.GoalProgress(g)})
	}
	return out
}

type contributionRequest struct {
	Amount core.Money `json:"amount"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(goalViews(s.store.Goals())).Write(w)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var in core.GoalInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	in.Name = sanitizeInput(in.Name)

	goals, err := s.store.AddGoal(in)
	if err != nil {
		s.mutationError(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		JSON(goalViews(goals)).
		TriggerCollectionChanged("goals").
		TriggerSuccessNotification("Goal created!").
		Write(w)
}

// handleContributeToGoal adds money to a goal. The amount is clamped so the
// goal never exceeds its target; an unknown id changes nothing.
func (s *Server) handleContributeToGoal(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}

	goals, err := s.store.ContributeToGoal(r.PathValue("id"), req.Amount)
	if err != nil {
		s.mutationError(w, r, applog.OpContribute, err)
		return
	}
	NewResponse().
		JSON(goalViews(goals)).
		TriggerCollectionChanged("goals").
		TriggerSuccessNotification("Added " + formatRupees(req.Amount) + " to goal").
		Write(w)
}
