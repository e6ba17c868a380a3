package http

import (
	"net/http"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

type subscriptionView struct {
	core.Subscription
	Billing aggregate.BillingWindow `json:"billing"`
}

type subscriptionsView struct {
	Subscriptions []subscriptionView `json:"subscriptions"`
	aggregate.SubscriptionSummary
}

func (s *Server) subscriptionsView(subs []core.Subscription) subscriptionsView {
	today := s.today()
	views := make([]subscriptionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, subscriptionView{Subscription: sub, Billing: aggregate.Billing(sub, today)})
	}
	return subscriptionsView{
		Subscriptions:       views,
		SubscriptionSummary: aggregate.SubscriptionTotals(subs),
	}
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(s.subscriptionsView(s.store.Subscriptions())).Write(w)
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var in core.SubscriptionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	in.Name = sanitizeInput(in.Name)

	subs, err := s.store.AddSubscription(in)
	if err != nil {
		s.mutationError(w, r, applog.OpCreate, err)
		return
	}
	NewResponse().
		Status(http.StatusCreated).
		JSON(s.subscriptionsView(subs)).
		TriggerCollectionChanged("subscriptions").
		TriggerSuccessNotification("Subscription added!").
		Write(w)
}

func (s *Server) handleEditSubscription(w http.ResponseWriter, r *http.Request) {
	var in core.SubscriptionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	in.Name = sanitizeInput(in.Name)

	subs, err := s.store.EditSubscription(r.PathValue("id"), in)
	if err != nil {
		s.mutationError(w, r, applog.OpUpdate, err)
		return
	}
	NewResponse().
		JSON(s.subscriptionsView(subs)).
		TriggerCollectionChanged("subscriptions").
		TriggerSuccessNotification("Subscription updated successfully!").
		Write(w)
}

func (s *Server) handleToggleSubscription(w http.ResponseWriter, r *http.Request) {
	subs := s.store.ToggleSubscription(r.PathValue("id"))
	NewResponse().
		JSON(s.subscriptionsView(subs)).
		TriggerCollectionChanged("subscriptions").
		TriggerSuccessNotification("Subscription updated").
		Write(w)
}
