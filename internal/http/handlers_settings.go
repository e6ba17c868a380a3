package http

import (
	"net/http"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.store.Settings()).Write(w)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in core.Settings
	if err := decodeJSON(w, r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}

	settings, err := s.store.UpdateMonthlyLimit(in.MonthlyLimit)
	if err != nil {
		s.mutationError(w, r, applog.OpUpdate, err)
		return
	}
	NewResponse().
		JSON(settings).
		TriggerCollectionChanged("settings").
		TriggerSuccessNotification("Monthly spending limit updated to " + formatRupees(settings.MonthlyLimit)).
		Write(w)
}

type categoriesView struct {
	Income  []string `json:"income"`
	Expense []string `json:"expense"`
}

// handleCategories lists the preset categories. Categories stay free text;
// these only seed the entry forms.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(categoriesView{
		Income:  core.CategoriesFor(core.Income),
		Expense: core.CategoriesFor(core.Expense),
	}).Write(w)
}
