package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/kv"
	"fintrack/internal/kv/memory"
	"fintrack/internal/store"
)

var testNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

// flakyKV fails writes and deletes while broken is set.
type flakyKV struct {
	*memory.Store
	broken atomic.Bool
}

var errBackendDown = fmt.Errorf("%w: backend down", kv.ErrUnavailable)

func (f *flakyKV) Set(ctx context.Context, key string, value json.RawMessage) error {
	if f.broken.Load() {
		return errBackendDown
	}
	return f.Store.Set(ctx, key, value)
}

func (f *flakyKV) Delete(ctx context.Context, key string) error {
	if f.broken.Load() {
		return errBackendDown
	}
	return f.Store.Delete(ctx, key)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, backend kv.Store, opts Options) (*Server, *store.Store) {
	t.Helper()
	var n atomic.Int64
	st := store.New(backend, store.Config{
		PersistTimeout: time.Second,
		NewID:          func(prefix string) string { return fmt.Sprintf("%s_%d", prefix, n.Add(1)) },
		Now:            func() time.Time { return testNow },
		Logger:         discardLogger(),
	})
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	srv := NewServer(":0", st, opts)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		_ = st.Close(ctx)
	})
	return srv, st
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

// notification extracts the show-notification event from HX-Trigger.
func notification(t *testing.T, rec *httptest.ResponseRecorder) (typ, message string) {
	t.Helper()
	var triggers map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &triggers); err != nil {
		t.Fatalf("HX-Trigger %q: %v", rec.Header().Get("HX-Trigger"), err)
	}
	var n struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(triggers["show-notification"], &n); err != nil {
		t.Fatalf("show-notification: %v", err)
	}
	return n.Type, n.Message
}

func waitPersists(t *testing.T, st *store.Store) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func TestHealthAndReady(t *testing.T) {
	st := store.New(memory.New(), store.Config{Logger: discardLogger()})
	srv := NewServer(":0", st, Options{Logger: discardLogger()})
	defer srv.Shutdown(context.Background())

	rec := do(t, srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}

	if rec := do(t, srv, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before load = %d", rec.Code)
	}
	if err := st.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if rec := do(t, srv, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz after load = %d", rec.Code)
	}
}

func TestCreateAndListTransactions(t *testing.T) {
	srv, st := newTestServer(t, memory.New(), Options{})

	rec := do(t, srv, http.MethodPost, "/api/transactions",
		`{"title":"Salary","amount":80000,"date":"2025-03-01","category":"Salary","type":"income","paymentMode":"online"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	if typ, msg := notification(t, rec); typ != "success" || msg != "Income added!" {
		t.Errorf("notification = %s %q", typ, msg)
	}
	if !strings.Contains(rec.Header().Get("HX-Trigger"), `"transactions:changed"`) {
		t.Errorf("HX-Trigger = %s", rec.Header().Get("HX-Trigger"))
	}

	rec = do(t, srv, http.MethodPost, "/api/transactions",
		`{"title":"Chai","amount":"20.50","date":"2025-03-10","category":"Coffee","type":"expense","paymentMode":"cash"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rec.Code, rec.Body.String())
	}
	if _, msg := notification(t, rec); msg != "Expense added!" {
		t.Errorf("message = %q", msg)
	}
	created := decode[[]core.Transaction](t, rec)
	if len(created) != 2 || created[1].ID != "txn_2" || created[1].Amount.Cents != 2050 {
		t.Fatalf("created = %+v", created)
	}

	type listView struct {
		Mode          string             `json:"mode"`
		Transactions  []core.Transaction `json:"transactions"`
		TotalIncome   core.Money         `json:"totalIncome"`
		TotalExpenses core.Money         `json:"totalExpenses"`
		Savings       core.Money         `json:"savings"`
	}

	all := decode[listView](t, do(t, srv, http.MethodGet, "/api/transactions", ""))
	if all.Mode != "all" || len(all.Transactions) != 2 {
		t.Fatalf("all = %+v", all)
	}
	if all.Transactions[0].Title != "Chai" {
		t.Errorf("expected newest first, got %s", all.Transactions[0].Title)
	}
	if all.Savings.Cents != 8000000-2050 {
		t.Errorf("savings = %d", all.Savings.Cents)
	}

	cash := decode[listView](t, do(t, srv, http.MethodGet, "/api/transactions?mode=cash", ""))
	if len(cash.Transactions) != 1 || cash.TotalIncome.Cents != 0 || cash.TotalExpenses.Cents != 2050 {
		t.Fatalf("cash = %+v", cash)
	}

	if rec := do(t, srv, http.MethodGet, "/api/transactions?mode=card", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad mode = %d", rec.Code)
	}

	waitPersists(t, st)
}

func TestEditAndDeleteTransaction(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), Options{})

	do(t, srv, http.MethodPost, "/api/transactions",
		`{"title":"Lunch","amount":250,"date":"2025-03-02","category":"Food","type":"expense"}`)

	rec := do(t, srv, http.MethodPut, "/api/transactions/txn_1",
		`{"title":"Dinner","amount":400,"date":"2025-03-02","category":"Food","type":"expense","paymentMode":"cash"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit = %d %s", rec.Code, rec.Body.String())
	}
	txs := decode[[]core.Transaction](t, rec)
	if txs[0].ID != "txn_1" || txs[0].Title != "Dinner" || txs[0].PaymentMode != core.Cash {
		t.Fatalf("edited = %+v", txs[0])
	}

	// Unknown ids are not errors.
	rec = do(t, srv, http.MethodDelete, "/api/transactions/txn_404", "")
	if rec.Code != http.StatusOK || len(decode[[]core.Transaction](t, rec)) != 1 {
		t.Fatalf("delete unknown = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodDelete, "/api/transactions/txn_1", "")
	if got := decode[[]core.Transaction](t, rec); len(got) != 0 {
		t.Fatalf("after delete = %+v", got)
	}
	if _, msg := notification(t, rec); msg != "Transaction deleted" {
		t.Errorf("message = %q", msg)
	}
}

func TestRequestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed json", http.MethodPost, "/api/transactions", `{"title":`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/goals", ``, http.StatusBadRequest},
		{"trailing data", http.MethodPost, "/api/goals", `{"name":"a","targetAmount":1} {}`, http.StatusBadRequest},
		{"empty title", http.MethodPost, "/api/transactions", `{"title":" ","amount":1,"date":"2025-03-01","category":"Food","type":"expense"}`, http.StatusUnprocessableEntity},
		{"negative amount", http.MethodPost, "/api/transactions", `{"title":"x","amount":-1,"date":"2025-03-01","category":"Food","type":"expense"}`, http.StatusUnprocessableEntity},
		{"unparseable amount", http.MethodPost, "/api/transactions", `{"title":"x","amount":"abc","date":"2025-03-01","category":"Food","type":"expense"}`, http.StatusUnprocessableEntity},
		{"bad date", http.MethodPost, "/api/transactions", `{"title":"x","amount":1,"date":"03/01/2025","category":"Food","type":"expense"}`, http.StatusUnprocessableEntity},
		{"zero goal target", http.MethodPost, "/api/goals", `{"name":"Trip","targetAmount":0}`, http.StatusUnprocessableEntity},
		{"zero contribution", http.MethodPost, "/api/goals/goal_1/contributions", `{"amount":0}`, http.StatusUnprocessableEntity},
		{"billing date 32", http.MethodPost, "/api/subscriptions", `{"name":"Gym","amount":10,"billingDate":32,"cycle":"monthly"}`, http.StatusUnprocessableEntity},
		{"zero limit", http.MethodPut, "/api/settings", `{"monthlyLimit":0}`, http.StatusUnprocessableEntity},
		{"unknown route", http.MethodGet, "/api/nope", ``, http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/settings", `{}`, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusBadRequest || tt.want == http.StatusUnprocessableEntity {
				body := decode[errorBody](t, rec)
				if body.Error == "" {
					t.Error("empty error message")
				}
				if strings.Contains(body.Error, "validation failed") {
					t.Errorf("error leaks the validation marker: %q", body.Error)
				}
				if typ, _ := notification(t, rec); typ != "error" {
					t.Errorf("notification type = %q", typ)
				}
			}
		})
	}
}

func TestGoalContributionClampsAtTarget(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), Options{})

	rec := do(t, srv, http.MethodPost, "/api/goals", `{"name":"Laptop","targetAmount":1000}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create goal = %d %s", rec.Code, rec.Body.String())
	}

	type goalResp struct {
		core.Goal
		Progress struct {
			Percent   float64    `json:"percent"`
			Remaining core.Money `json:"remaining"`
			Complete  bool       `json:"complete"`
		} `json:"progress"`
	}

	rec = do(t, srv, http.MethodPost, "/api/goals/goal_1/contributions", `{"amount":400}`)
	goals := decode[[]goalResp](t, rec)
	if goals[0].CurrentAmount.Cents != 40000 || goals[0].Progress.Percent != 40 {
		t.Fatalf("after 400 = %+v", goals[0])
	}

	rec = do(t, srv, http.MethodPost, "/api/goals/goal_1/contributions", `{"amount":1500}`)
	if _, msg := notification(t, rec); msg != "Added ₹1,500 to goal" {
		t.Errorf("message = %q", msg)
	}
	goals = decode[[]goalResp](t, rec)
	g := goals[0]
	if g.CurrentAmount != g.TargetAmount || !g.Progress.Complete || g.Progress.Remaining.Cents != 0 {
		t.Fatalf("expected clamp at target, got %+v", g)
	}
	if !g.CreatedAt.Equal(testNow) {
		t.Errorf("createdAt = %v", g.CreatedAt)
	}
}

func TestSubscriptions(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), Options{})

	do(t, srv, http.MethodPost, "/api/subscriptions", `{"name":"Netflix","amount":649,"billingDate":20,"cycle":"monthly"}`)
	do(t, srv, http.MethodPost, "/api/subscriptions", `{"name":"Domain","amount":1200,"billingDate":10,"cycle":"yearly"}`)

	type subsResp struct {
		Subscriptions []struct {
			core.Subscription
			Billing struct {
				DaysUntilBilling int  `json:"daysUntilBilling"`
				Upcoming         bool `json:"upcoming"`
			} `json:"billing"`
		} `json:"subscriptions"`
		MonthlyTotal core.Money `json:"monthlyTotal"`
		YearlyTotal  core.Money `json:"yearlyTotal"`
		ActiveCount  int        `json:"activeCount"`
	}

	got := decode[subsResp](t, do(t, srv, http.MethodGet, "/api/subscriptions", ""))
	if got.ActiveCount != 2 || got.MonthlyTotal.Cents != 64900 || got.YearlyTotal.Cents != 120000 {
		t.Fatalf("totals = %+v", got)
	}
	if b := got.Subscriptions[0].Billing; b.DaysUntilBilling != 5 || !b.Upcoming {
		t.Errorf("netflix billing = %+v", b)
	}
	if b := got.Subscriptions[1].Billing; b.DaysUntilBilling != -5 || b.Upcoming {
		t.Errorf("domain billing = %+v", b)
	}

	rec := do(t, srv, http.MethodPost, "/api/subscriptions/sub_1/toggle", "")
	got = decode[subsResp](t, rec)
	if got.Subscriptions[0].IsActive || got.ActiveCount != 1 || got.MonthlyTotal.Cents != 0 {
		t.Fatalf("after toggle = %+v", got)
	}

	// Editing without isActive keeps the paused state.
	rec = do(t, srv, http.MethodPut, "/api/subscriptions/sub_1", `{"name":"Netflix HD","amount":799,"billingDate":20,"cycle":"monthly"}`)
	got = decode[subsResp](t, rec)
	if s := got.Subscriptions[0].Subscription; s.Name != "Netflix HD" || s.IsActive || s.Amount.Cents != 79900 {
		t.Fatalf("after edit = %+v", s)
	}
	if _, msg := notification(t, rec); msg != "Subscription updated successfully!" {
		t.Errorf("message = %q", msg)
	}
}

func TestDashboard(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), Options{})

	for _, body := range []string{
		`{"title":"Salary","amount":80000,"date":"2025-03-01","category":"Salary","type":"income"}`,
		`{"title":"Groceries","amount":1200,"date":"2025-03-03","category":"Food","type":"expense"}`,
		`{"title":"Metro","amount":300,"date":"2025-03-10","category":"Transport","type":"expense"}`,
		`{"title":"Dinner","amount":500,"date":"2025-03-30","category":"Food","type":"expense"}`,
		`{"title":"Old","amount":999,"date":"2025-02-10","category":"Food","type":"expense"}`,
	} {
		if rec := do(t, srv, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed = %d %s", rec.Code, rec.Body.String())
		}
	}
	do(t, srv, http.MethodPost, "/api/subscriptions", `{"name":"Gym","amount":1500,"billingDate":18,"cycle":"monthly"}`)

	type dash struct {
		Summary struct {
			TotalIncome        core.Money `json:"totalIncome"`
			TotalExpenses      core.Money `json:"totalExpenses"`
			Savings            core.Money `json:"savings"`
			Remaining          core.Money `json:"remaining"`
			IsOverBudget       bool       `json:"isOverBudget"`
			SpendingPercentage float64    `json:"spendingPercentage"`
		} `json:"summary"`
		DisplayPercentage float64 `json:"displayPercentage"`
		Weekly            struct {
			Labels      []string      `json:"labels"`
			Buckets     [4]core.Money `json:"buckets"`
			Unbucketed  core.Money    `json:"unbucketed"`
			HasSpending bool          `json:"hasSpending"`
		} `json:"weekly"`
		ByCategory       []core.CategoryAmount `json:"byCategory"`
		UpcomingBillings []struct {
			Subscription     core.Subscription `json:"subscription"`
			DaysUntilBilling int               `json:"daysUntilBilling"`
		} `json:"upcomingBillings"`
	}

	got := decode[dash](t, do(t, srv, http.MethodGet, "/api/dashboard", ""))
	s := got.Summary
	if s.TotalIncome.Cents != 8000000 || s.TotalExpenses.Cents != 200000 || s.Savings.Cents != 7800000 {
		t.Fatalf("summary = %+v", s)
	}
	if s.Remaining.Cents != 4800000 || s.IsOverBudget || math.Abs(s.SpendingPercentage-4) > 1e-9 || math.Abs(got.DisplayPercentage-4) > 1e-9 {
		t.Fatalf("budget = %+v display=%v", s, got.DisplayPercentage)
	}
	wantBuckets := [4]core.Money{{Cents: 120000}, {Cents: 30000}, {}, {}}
	if got.Weekly.Buckets != wantBuckets || got.Weekly.Unbucketed.Cents != 50000 || !got.Weekly.HasSpending {
		t.Fatalf("weekly = %+v", got.Weekly)
	}
	if len(got.Weekly.Labels) != 4 || got.Weekly.Labels[0] != "Week 1" {
		t.Errorf("labels = %v", got.Weekly.Labels)
	}
	wantCats := []core.CategoryAmount{{Name: "Food", Amount: core.Money{Cents: 170000}}, {Name: "Transport", Amount: core.Money{Cents: 30000}}}
	if len(got.ByCategory) != 2 || got.ByCategory[0] != wantCats[0] || got.ByCategory[1] != wantCats[1] {
		t.Errorf("byCategory = %+v", got.ByCategory)
	}
	if len(got.UpcomingBillings) != 1 || got.UpcomingBillings[0].DaysUntilBilling != 3 {
		t.Errorf("upcoming = %+v", got.UpcomingBillings)
	}

	feb := decode[dash](t, do(t, srv, http.MethodGet, "/api/dashboard?year=2025&month=2", ""))
	if feb.Summary.TotalExpenses.Cents != 99900 || feb.Summary.TotalIncome.Cents != 0 {
		t.Fatalf("february = %+v", feb.Summary)
	}
	if len(feb.UpcomingBillings) != 1 {
		t.Errorf("upcoming billings follow today, got %+v", feb.UpcomingBillings)
	}
}

func TestDashboardEmptyListsAreArrays(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), Options{})

	body := do(t, srv, http.MethodGet, "/api/dashboard", "").Body.String()
	for _, want := range []string{`"byCategory":[]`, `"upcomingBillings":[]`} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %s in %s", want, body)
		}
	}
}

func TestSettingsAndCategories(t *testing.T) {
	srv, st := newTestServer(t, memory.New(), Options{})

	got := decode[core.Settings](t, do(t, srv, http.MethodGet, "/api/settings", ""))
	if got.MonthlyLimit != core.DefaultMonthlyLimit {
		t.Fatalf("default limit = %v", got.MonthlyLimit)
	}

	rec := do(t, srv, http.MethodPut, "/api/settings", `{"monthlyLimit":60000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d %s", rec.Code, rec.Body.String())
	}
	if _, msg := notification(t, rec); msg != "Monthly spending limit updated to ₹60,000" {
		t.Errorf("message = %q", msg)
	}
	if st.Settings().MonthlyLimit.Cents != 6000000 {
		t.Errorf("store limit = %v", st.Settings().MonthlyLimit)
	}

	cats := decode[categoriesView](t, do(t, srv, http.MethodGet, "/api/categories", ""))
	if len(cats.Income) == 0 || len(cats.Expense) == 0 || cats.Income[0] != "Salary" {
		t.Fatalf("categories = %+v", cats)
	}
}

func TestSyncFailuresAndResync(t *testing.T) {
	backend := &flakyKV{Store: memory.New()}
	srv, st := newTestServer(t, backend, Options{})

	backend.broken.Store(true)
	do(t, srv, http.MethodPost, "/api/goals", `{"name":"Trip","targetAmount":5000}`)
	waitPersists(t, st)

	failures := decode[[]failureView](t, do(t, srv, http.MethodGet, "/api/sync/failures", ""))
	if len(failures) != 1 || failures[0].Key != kv.KeyGoals || failures[0].Status != store.StatusFailed {
		t.Fatalf("failures = %+v", failures)
	}
	if !strings.Contains(failures[0].Error, "backend down") {
		t.Errorf("error = %q", failures[0].Error)
	}

	backend.broken.Store(false)
	rec := do(t, srv, http.MethodPost, "/api/sync/goals", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("resync = %d %s", rec.Code, rec.Body.String())
	}
	if v := decode[resyncView](t, rec); v.Key != kv.KeyGoals || v.Revision != 2 {
		t.Errorf("resync = %+v", v)
	}
	waitPersists(t, st)

	if failures := decode[[]failureView](t, do(t, srv, http.MethodGet, "/api/sync/failures", "")); len(failures) != 0 {
		t.Fatalf("failures after resync = %+v", failures)
	}
	goals, err := kv.GetJSON[[]core.Goal](context.Background(), backend, kv.KeyGoals)
	if err != nil || len(goals) != 1 {
		t.Fatalf("backend goals = %+v, %v", goals, err)
	}

	if rec := do(t, srv, http.MethodPost, "/api/sync/accounts", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown key = %d", rec.Code)
	}
}

func TestResetCollection(t *testing.T) {
	backend := &flakyKV{Store: memory.New()}
	srv, st := newTestServer(t, backend, Options{})

	do(t, srv, http.MethodPut, "/api/settings", `{"monthlyLimit":100}`)
	waitPersists(t, st)

	backend.broken.Store(true)
	rec := do(t, srv, http.MethodDelete, "/api/data/settings", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("reset with backend down = %d", rec.Code)
	}

	backend.broken.Store(false)
	rec = do(t, srv, http.MethodDelete, "/api/data/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset = %d %s", rec.Code, rec.Body.String())
	}
	snap := decode[store.Snapshot](t, rec)
	if snap.Settings != core.DefaultSettings() {
		t.Errorf("settings after reset = %+v", snap.Settings)
	}
	if _, err := backend.Get(context.Background(), kv.KeySettings); !errors.Is(err, kv.ErrNotFound) {
		t.Errorf("backend key should be gone, got %v", err)
	}

	if rec := do(t, srv, http.MethodDelete, "/api/data/accounts", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown key = %d", rec.Code)
	}
}

func TestRateLimitAppliesToMutationsOnly(t *testing.T) {
	srv, _ := newTestServer(t, memory.New(), Options{RateLimitPerMinute: 1})

	body := `{"name":"Trip","targetAmount":5000}`
	if rec := do(t, srv, http.MethodPost, "/api/goals", body); rec.Code != http.StatusCreated {
		t.Fatalf("first = %d", rec.Code)
	}
	rec := do(t, srv, http.MethodPost, "/api/goals", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if typ, _ := notification(t, rec); typ != "error" {
		t.Errorf("notification = %q", typ)
	}

	for range 3 {
		if rec := do(t, srv, http.MethodGet, "/api/goals", ""); rec.Code != http.StatusOK {
			t.Fatalf("reads must not be limited, got %d", rec.Code)
		}
	}
}
