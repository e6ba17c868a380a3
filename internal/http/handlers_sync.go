package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	applog "fintrack/internal/log"
	"fintrack/internal/store"
)

// resetTimeout bounds the backend delete behind DELETE /api/data/{key}.
const resetTimeout = 15 * time.Second

type failureView struct {
	Key       string       `json:"key"`
	Revision  uint64       `json:"revision"`
	Status    store.Status `json:"status"`
	Error     string       `json:"error"`
	Timestamp time.Time    `json:"timestamp"`
}

// handleSyncFailures returns the recent failed persists, oldest first, so a
// client can tell the user which collections are not saved remotely.
func (s *Server) handleSyncFailures(w http.ResponseWriter, r *http.Request) {
	failures := s.store.Failures()
	out := make([]failureView, 0, len(failures))
	for _, ev := range failures {
		out = append(out, failureView{
			Key:       ev.Key,
			Revision:  ev.Revision,
			Status:    ev.Status,
			Error:     ev.Error(),
			Timestamp: ev.At,
		})
	}
	NewResponse().JSON(out).Write(w)
}

type resyncView struct {
	Key      string `json:"key"`
	Revision uint64 `json:"revision"`
}

// handleResync schedules a fresh write of one collection. The outcome arrives
// later as a persist event, so the response is 202.
func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	rev, err := s.store.Resync(key)
	if err != nil {
		s.mutationError(w, r, applog.OpResync, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Resync scheduled",
		applog.NewFields().WithOperation(applog.OpResync).WithPersist(key, rev).ToSlice()...)

	NewResponse().
		Status(http.StatusAccepted).
		JSON(resyncView{Key: key, Revision: rev}).
		TriggerNotification(NotificationInfo, "Saving "+key+" again", successDuration).
		Write(w)
}

// handleReset deletes a collection from the backend and restores its default.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	ctx, cancel := context.WithTimeout(r.Context(), resetTimeout)
	defer cancel()

	err := s.store.Reset(ctx, key)
	switch {
	case errors.Is(err, store.ErrUnknownCollection):
		s.mutationError(w, r, applog.OpReset, err)
		return
	case err != nil:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Reset failed",
			applog.NewFields().WithOperation(applog.OpReset).WithError(err).ToSlice()...)
		BadGatewayError("Failed to delete " + key + " from storage").
			TriggerCollectionChanged(key).
			Write(w)
		return
	}

	NewResponse().
		JSON(s.store.Snapshot()).
		TriggerCollectionChanged(key).
		TriggerSuccessNotification("Cleared " + key).
		Write(w)
}
