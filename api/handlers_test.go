/*
handlers_test.go - HTTP surface tests

Tests for:
- Transaction creation and the ledger snapshot response
- Error taxonomy to status-code mapping
- Permanent-delete confirmation gate
- Bulk operation undo round trip
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/store/local"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	backend, err := local.New("")
	require.NoError(t, err)
	engine := ledger.NewEngine(ledger.NewRepositories(backend, ledger.GuestUserID))
	require.NoError(t, engine.Reload(context.Background()))

	srv := httptest.NewServer(NewRouter(NewHandler(engine)))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateTransaction_AppearsInLedger(t *testing.T) {
	// GIVEN: A running server
	// WHEN: Creating a transaction and fetching the ledger
	// THEN: The snapshot carries the transaction and updated summary

	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/transactions", TransactionRequest{
		Description: "Groceries",
		Amount:      "-42.50",
		Date:        "2024-03-10",
		Type:        "expense",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[TransactionDTO](t, resp)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "-42.50", created.Amount)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/ledger", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeBody[SnapshotResponse](t, resp)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "Groceries", snap.Transactions[0].Description)
	assert.Equal(t, "-42.50", snap.Summary.TotalBalance)
	assert.NotEmpty(t, snap.Categories, "defaults are seeded on first load")
	assert.Len(t, snap.Series, 6)
}

func TestCreateTransaction_ValidationMapsTo400(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/transactions", TransactionRequest{
		Amount: "not-a-number",
		Type:   "expense",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateTransaction_MissingMapsTo404(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/transactions/nope", TransactionRequest{
		Amount: "10", Type: "income",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPermanentDelete_RequiresConfirmation(t *testing.T) {
	// GIVEN: A trashed transaction
	// WHEN: Deleting from the trash without confirm=true
	// THEN: 400; with confirmation the row is gone

	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/transactions", TransactionRequest{
		Description: "Temp", Amount: "-5", Type: "expense",
	})
	created := decodeBody[TransactionDTO](t, resp)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/transactions/"+created.ID, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/trash/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "missing confirmation must be rejected")

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/trash/"+created.ID+"?confirm=true", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/ledger", nil)
	snap := decodeBody[SnapshotResponse](t, resp)
	assert.Empty(t, snap.Transactions)
	assert.Empty(t, snap.Trashed)
}

func TestTransfer_SameAccountMapsTo400(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/transfers", TransferRequestDTO{
		FromAccountID: "a", ToAccountID: "a", Amount: "10",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBulkOperation_UndoRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	var ids []string
	for _, desc := range []string{"a", "b"} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/transactions", TransactionRequest{
			Description: desc, Amount: "-1", Type: "expense",
		})
		ids = append(ids, decodeBody[TransactionDTO](t, resp).ID)
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/transactions/bulk", BulkRequest{
		TransactionIDs: ids,
		Delete:         true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	affected := decodeBody[map[string]int](t, resp)
	assert.Equal(t, 2, affected["affected"])

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/ledger", nil)
	snap := decodeBody[SnapshotResponse](t, resp)
	assert.Empty(t, snap.Transactions)
	assert.Len(t, snap.Trashed, 2)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/transactions/bulk/undo", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/ledger", nil)
	snap = decodeBody[SnapshotResponse](t, resp)
	assert.Len(t, snap.Transactions, 2)
	assert.Empty(t, snap.Trashed)
}

func TestBulkOperation_ConcurrentUndoRequests(t *testing.T) {
	// GIVEN: Seeded transactions
	// WHEN: Bulk updates and undos arrive on concurrent connections
	// THEN: Every request completes with 200; the shared undo slot stays
	//       consistent under contention

	srv := newTestServer(t)

	var ids []string
	for _, desc := range []string{"a", "b", "c"} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/transactions", TransactionRequest{
			Description: desc, Amount: "-1", Type: "expense",
		})
		ids = append(ids, decodeBody[TransactionDTO](t, resp).ID)
	}

	bulkBody, err := json.Marshal(BulkRequest{
		TransactionIDs: ids,
		Patch:          map[string]any{"starred": true},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			resp, err := http.Post(srv.URL+"/api/transactions/bulk", "application/json", bytes.NewReader(bulkBody))
			if assert.NoError(t, err) {
				resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}()
		go func() {
			defer wg.Done()
			resp, err := http.Post(srv.URL+"/api/transactions/bulk/undo", "application/json", nil)
			if assert.NoError(t, err) {
				resp.Body.Close()
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/ledger", nil)
	snap := decodeBody[SnapshotResponse](t, resp)
	assert.Len(t, snap.Transactions, 3, "contention must never lose or duplicate rows")
}

func TestGoalContribution_OverTargetConflict(t *testing.T) {
	// GIVEN: A goal with target 100
	// WHEN: Contributing 150 without confirmation, then with it
	// THEN: 400 first, 201 after

	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/goals", GoalRequest{
		Name: "Boots", TargetAmount: "100",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	goal := decodeBody[GoalDTO](t, resp)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/goals/"+goal.ID+"/contributions", ContributionRequestDTO{
		Amount: "150",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/goals/"+goal.ID+"/contributions", ContributionRequestDTO{
		Amount: "150", Confirm: true,
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/ledger", nil)
	snap := decodeBody[SnapshotResponse](t, resp)
	require.Len(t, snap.Goals, 1)
	assert.Equal(t, "150.00", snap.Goals[0].CurrentAmount)
	assert.Equal(t, "completed", snap.Goals[0].Status)
}

func TestExport_ServesWorkbook(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/export", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
}
