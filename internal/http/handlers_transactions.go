package http

import (
	"net/http"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

type transactionsView struct {
	Mode         core.PaymentMode   `json:"mode"`
	Transactions []core.Transaction `json:"transactions"`
	aggregate.Totals
}

// handleListTransactions lists transactions newest first, optionally filtered
// by payment mode, with totals over the same filtered set.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	mode, ok := parsePaymentMode(r.URL.Query())
	if !ok {
		BadRequestError("mode must be all, online or cash").Write(w)
		return
	}
	if mode == "" {
		mode = aggregate.AllModes
	}

	txs := aggregate.FilterByPaymentMode(s.store.Transactions(), mode)
	NewResponse().JSON(transactionsView{
		Mode:         mode,
		Transactions: orEmpty(aggregate.SortByDateDesc(txs)),
		Totals:       aggregate.TotalsOf(txs),
	}).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	in = sanitizeTransaction(in)

	txs, err := s.store.AddTransaction(in)
	if err != nil {
		s.mutationError(w, r, applog.OpCreate, err)
		return
	}

	label := "Expense"
	if in.Type == core.Income {
		label = "Income"
	}
	NewResponse().
		Status(http.StatusCreated).
		JSON(txs).
		TriggerCollectionChanged("transactions").
		TriggerSuccessNotification(label + " added!").
		Write(w)
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var in core.TransactionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeDecodeError(w, err)
		return
	}
	in = sanitizeTransaction(in)

	txs, err := s.store.EditTransaction(id, in)
	if err != nil {
		s.mutationError(w, r, applog.OpUpdate, err)
		return
	}
	NewResponse().
		JSON(txs).
		TriggerCollectionChanged("transactions").
		TriggerSuccessNotification("Transaction updated successfully!").
		Write(w)
}

// handleDeleteTransaction removes a transaction. An unknown id is not an error.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	txs := s.store.DeleteTransaction(r.PathValue("id"))
	NewResponse().
		JSON(txs).
		TriggerCollectionChanged("transactions").
		TriggerSuccessNotification("Transaction deleted").
		Write(w)
}

func sanitizeTransaction(in core.TransactionInput) core.TransactionInput {
	in.Title = sanitizeInput(in.Title)
	in.Category = sanitizeInput(in.Category)
	return in
}

// mutationError logs a rejected mutation and writes the mapped response.
func (s *Server) mutationError(w http.ResponseWriter, r *http.Request, op string, err error) {
	fields := applog.NewFields().
		WithOperation(op).
		WithError(err)
	if id := r.PathValue("id"); id != "" {
		fields[applog.FieldID] = id
	}
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Mutation rejected", fields.ToSlice()...)
	ErrorFor(err).Write(w)
}
