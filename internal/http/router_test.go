package http_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinshukkush/smartsplit/internal/auth"
	"github.com/kinshukkush/smartsplit/internal/balance"
	"github.com/kinshukkush/smartsplit/internal/engine"
	apphttp "github.com/kinshukkush/smartsplit/internal/http"
	balancehttp "github.com/kinshukkush/smartsplit/internal/http/balance"
	"github.com/kinshukkush/smartsplit/internal/http/command"
	"github.com/kinshukkush/smartsplit/internal/http/expense"
	exporthttp "github.com/kinshukkush/smartsplit/internal/http/export"
	settlementhttp "github.com/kinshukkush/smartsplit/internal/http/settlement"
	"github.com/kinshukkush/smartsplit/internal/ledger"
	"github.com/kinshukkush/smartsplit/internal/metrics"
	"github.com/kinshukkush/smartsplit/internal/snapshot/memory"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	svc     *engine.Service
	token   string
}

func newServer(t *testing.T, opts apphttp.Options) *testServer {
	t.Helper()

	m := metrics.New()
	svc := engine.NewService(memory.New(), engine.Options{Metrics: m})
	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	opts.Metrics = m.Handler()

	h := apphttp.New(
		command.NewHandler(svc, 0),
		expense.NewHandler(svc),
		settlementhttp.NewHandler(svc),
		balancehttp.NewHandler(svc),
		exporthttp.NewHandler(svc),
		opts,
	)

	return &testServer{t: t, handler: h, svc: svc}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	return rec
}

func (s *testServer) seed() {
	s.t.Helper()

	for _, body := range []string{
		`{"kind":"addUser","payload":{"id":"A","name":"Alice"}}`,
		`{"kind":"addUser","payload":{"id":"B","name":"Bob"}}`,
		`{"kind":"addUser","payload":{"id":"C","name":"Carol"}}`,
	} {
		rec := s.do(http.MethodPost, "/api/v1/commands", body)
		require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := s.do(http.MethodPost, "/api/v1/expenses", `{
		"id": "dinner",
		"title": "Dinner",
		"baseAmount": "270",
		"tax": "20",
		"tip": "10",
		"date": "2024-03-10T19:00:00Z",
		"participants": [{"userId":"A"},{"userId":"B"},{"userId":"C"}],
		"paidBy": ["A"]
	}`)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())

	return v
}

func TestCommands(t *testing.T) {
	srv := newServer(t, apphttp.Options{})

	type testCase struct {
		name       string
		body       string
		wantStatus int
	}

	tests := []testCase{
		{name: "AddUser", body: `{"kind":"addUser","payload":{"id":"A","name":"Alice"}}`, wantStatus: http.StatusOK},
		{name: "UnknownKind", body: `{"kind":"explode","payload":{}}`, wantStatus: http.StatusBadRequest},
		{name: "Malformed", body: `{"kind":`, wantStatus: http.StatusBadRequest},
		{name: "Invalid", body: `{"kind":"addUser","payload":{"id":"B"}}`, wantStatus: http.StatusBadRequest},
		{name: "NotFound", body: `{"kind":"deleteExpense","payload":{"id":"nope"}}`, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(http.MethodPost, "/api/v1/commands", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	rec := srv.do(http.MethodGet, "/api/v1/snapshot", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[ledger.Snapshot](t, rec).Users, 1)

	status := decodeBody[engine.Status](t, srv.do(http.MethodGet, "/api/v1/status", ""))
	assert.Equal(t, uint64(1), status.Version)

	kinds := decodeBody[[]string](t, srv.do(http.MethodGet, "/api/v1/commands", ""))
	assert.Contains(t, kinds, "addExpense")
}

func TestExpenses(t *testing.T) {
	srv := newServer(t, apphttp.Options{})
	srv.seed()

	got := decodeBody[ledger.Expense](t, srv.do(http.MethodGet, "/api/v1/expenses/dinner", ""))
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(300)))
	assert.True(t, got.Participants[0].NetAmount.Equal(decimal.NewFromInt(200)))

	list := decodeBody[[]ledger.Expense](t, srv.do(http.MethodGet, "/api/v1/expenses?user_id=B", ""))
	assert.Len(t, list, 1)

	list = decodeBody[[]ledger.Expense](t, srv.do(http.MethodGet, "/api/v1/expenses?settled=true", ""))
	assert.Empty(t, list)

	rec := srv.do(http.MethodPut, "/api/v1/expenses/dinner", `{
		"title": "Dinner",
		"baseAmount": "600",
		"participants": [{"userId":"A"},{"userId":"B"},{"userId":"C"}],
		"paidBy": ["A"]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[ledger.Expense](t, rec)
	assert.True(t, updated.Participants[0].NetAmount.Equal(decimal.NewFromInt(400)))

	rec = srv.do(http.MethodPost, "/api/v1/expenses/dinner/settle", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[ledger.Expense](t, rec).Settled)

	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/api/v1/expenses/nope", "").Code)
	assert.Equal(t, http.StatusNoContent, srv.do(http.MethodDelete, "/api/v1/expenses/dinner", "").Code)
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodDelete, "/api/v1/expenses/dinner", "").Code)
}

func TestExpenses_Preview(t *testing.T) {
	srv := newServer(t, apphttp.Options{})

	rec := srv.do(http.MethodPost, "/api/v1/expenses/preview", `{
		"title": "Rent",
		"baseAmount": "1000",
		"splitPolicy": "percentage",
		"participants": [
			{"userId":"A","splitValue":"60"},
			{"userId":"B","splitValue":"40"}
		],
		"paidBy": ["B"]
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody[ledger.Expense](t, rec)
	assert.True(t, got.Participants[0].NetAmount.Equal(decimal.NewFromInt(-600)))
	assert.True(t, got.Participants[1].NetAmount.Equal(decimal.NewFromInt(600)))

	assert.Empty(t, srv.svc.Snapshot().Expenses, "preview is not recorded")

	rec = srv.do(http.MethodPost, "/api/v1/expenses/preview", `{
		"title": "Rent",
		"baseAmount": "1000",
		"splitPolicy": "percentage",
		"participants": [{"userId":"A","splitValue":"99"}],
		"paidBy": ["A"]
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettlements(t *testing.T) {
	srv := newServer(t, apphttp.Options{})
	srv.seed()

	suggestions := decodeBody[[]ledger.Settlement](t, srv.do(http.MethodGet, "/api/v1/settlements/suggestions", ""))
	require.Len(t, suggestions, 2)
	assert.Equal(t, []string{"dinner"}, suggestions[0].ExpenseIDs)

	rec := srv.do(http.MethodGet, "/api/v1/settlements/suggestions?format=text", "")
	assert.Contains(t, rec.Body.String(), "* Bob → Alice | 100.00 USD | suggested")

	plan := decodeBody[[]ledger.Settlement](t, srv.do(http.MethodPost, "/api/v1/settlements/optimize", `{"user_ids":["A","B","C"]}`))
	assert.Len(t, plan, 2)

	plan = decodeBody[[]ledger.Settlement](t, srv.do(http.MethodPost, "/api/v1/settlements/optimize", ""))
	assert.Len(t, plan, 2)

	rec = srv.do(http.MethodPost, "/api/v1/settlements", `{
		"id": "s1", "fromUserId": "B", "toUserId": "A", "amount": "100", "expenseIds": ["dinner"]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, ledger.StatusSuggested, decodeBody[ledger.Settlement](t, rec).Status)

	type testCase struct {
		name       string
		body       string
		wantStatus int
	}

	transitions := []testCase{
		{name: "Agree", body: `{"status":"agreed"}`, wantStatus: http.StatusOK},
		{name: "BackToSuggested", body: `{"status":"suggested"}`, wantStatus: http.StatusBadRequest},
		{name: "Complete", body: `{"status":"completed","note":"paid cash"}`, wantStatus: http.StatusOK},
		{name: "AfterTerminal", body: `{"status":"declined"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range transitions {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(http.MethodPatch, "/api/v1/settlements/s1/status", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}

	completed := decodeBody[[]ledger.Settlement](t, srv.do(http.MethodGet, "/api/v1/settlements?status=completed", ""))
	require.Len(t, completed, 1)
	assert.NotNil(t, completed[0].CompletedAt)
	assert.Equal(t, "paid cash", completed[0].Note)

	assert.Equal(t, http.StatusNoContent, srv.do(http.MethodDelete, "/api/v1/settlements/s1", "").Code)
}

func TestBalances(t *testing.T) {
	srv := newServer(t, apphttp.Options{})
	srv.seed()

	all := decodeBody[[]balance.DebtSummary](t, srv.do(http.MethodGet, "/api/v1/balances", ""))
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].UserID)
	assert.True(t, all[0].NetAmount.Equal(decimal.NewFromInt(200)))

	b := decodeBody[balance.DebtSummary](t, srv.do(http.MethodGet, "/api/v1/balances/B", ""))
	assert.True(t, b.TotalOwing.Equal(decimal.NewFromInt(100)))

	nobody := decodeBody[balance.DebtSummary](t, srv.do(http.MethodGet, "/api/v1/balances/nobody", ""))
	assert.True(t, nobody.NetAmount.IsZero())
	assert.Zero(t, nobody.ExpenseCount)
}

func TestExport(t *testing.T) {
	srv := newServer(t, apphttp.Options{})
	srv.seed()

	rec := srv.do(http.MethodGet, "/api/v1/export/csv?start_date=2024-03-10&end_date=2024-03-10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"Date,Title,Amount,Currency,Category,Paid By,Participants,Settled\n"+
			"2024-03-10,Dinner,300.00,USD,,Alice,Alice;Bob;Carol,No\n",
		rec.Body.String(),
	)

	rec = srv.do(http.MethodGet, "/api/v1/export/json?end_date=2024-03-09", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.JSONEq(t, `[]`, string(doc["expenses"]))
	assert.Contains(t, doc, "exportedAt")

	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/v1/export/json?start_date=March", "").Code)
	assert.Equal(t, http.StatusBadRequest,
		srv.do(http.MethodGet, "/api/v1/export/csv?start_date=2024-03-10&end_date=2024-03-01", "").Code)

	rec = srv.do(http.MethodGet, "/api/v1/export/archive", "")
	require.Equal(t, http.StatusOK, rec.Code)

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	assert.ElementsMatch(t, []string{"ledger.json", "expenses.csv", "settlements.txt"}, names)
}

func TestImport(t *testing.T) {
	srv := newServer(t, apphttp.Options{})
	srv.seed()

	// UTF-16LE document with a BOM.
	doc := `{"users":[{"id":"Z","name":"Zoë","active":true}],"settings":{"defaultCurrency":"EUR"}}`
	utf16 := []byte{0xFF, 0xFE}
	for _, r := range doc {
		utf16 = append(utf16, byte(r), byte(r>>8))
	}

	rec := upload(t, srv, "/api/v1/import", "ledger.json", utf16)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	snap := srv.svc.Snapshot()
	require.Len(t, snap.Users, 1)
	assert.Equal(t, "Zoë", snap.Users[0].Name)
	assert.Empty(t, snap.Expenses)
	assert.Equal(t, "EUR", snap.Settings.DefaultCurrency)

	broken := `{"expenses":[{"id":"e1","title":"Lunch","baseAmount":"10","totalAmount":"50",` +
		`"participants":[{"userId":"Z","netAmount":"0"}],"paidBy":["Z"]}]}`
	rec = upload(t, srv, "/api/v1/import", "ledger.json", []byte(broken))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "totalAmount")
	assert.Equal(t, snap, srv.svc.Snapshot(), "a rejected document changes nothing")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", strings.NewReader("x"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=nothing")

	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth(t *testing.T) {
	m := auth.NewManager("secret", time.Hour)
	srv := newServer(t, apphttp.Options{Auth: m})

	assert.Equal(t, http.StatusUnauthorized, srv.do(http.MethodGet, "/api/v1/snapshot", "").Code)
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/healthz", "").Code, "health is public")

	token, err := m.Generate("A")
	require.NoError(t, err)
	srv.token = token

	srv.seed()

	e, ok := srv.svc.Snapshot().Expense("dinner")
	require.True(t, ok)
	assert.Equal(t, "A", e.CreatedBy, "the token's user created the expense")
}

func TestMetrics(t *testing.T) {
	srv := newServer(t, apphttp.Options{})
	srv.seed()

	rec := srv.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `smartsplit_commands_total{kind="addExpense",result="ok"} 1`)
}

func upload(t *testing.T, srv *testServer, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)

	return rec
}

func TestImportCSV(t *testing.T) {
	srv := newServer(t, apphttp.Options{})
	srv.seed()

	// What the CSV export produces imports back as new expenses.
	exported := srv.do(http.MethodGet, "/api/v1/export/csv", "").Body.Bytes()

	rec := upload(t, srv, "/api/v1/import/csv", "expenses.csv", exported)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	snap := srv.svc.Snapshot()
	require.Len(t, snap.Expenses, 2)
	assert.Equal(t, "Dinner", snap.Expenses[1].Title)
	assert.True(t, snap.Expenses[1].TotalAmount.Equal(decimal.NewFromInt(300)))
	assert.True(t, snap.Expenses[1].Participants[0].NetAmount.Equal(decimal.NewFromInt(200)))

	rec = upload(t, srv, "/api/v1/import/csv", "bad.csv", []byte(
		"Date,Title,Amount,Paid By,Participants\n"+
			"2024-03-01,Lunch,10,Alice,Alice\n"+
			"2024-03-02,Cinema,10,Mallory,Alice\n",
	))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "row 3")
	assert.Len(t, srv.svc.Snapshot().Expenses, 2, "a failing sheet adds nothing")
}
