package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"chromaflow/internal/api"
	"chromaflow/internal/app"
	"chromaflow/internal/csvio"
	"chromaflow/internal/identity"
	"chromaflow/internal/items"
	"chromaflow/internal/workflow"
)

type stubSaver struct {
	mu    sync.Mutex
	saves int
	err   error
}

func (s *stubSaver) Save(context.Context, []items.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves++
	return nil
}

func seedItems() []items.Item {
	return []items.Item{
		{ID: "1001", ItemType: "BEAM", Material: "SS400", Status: workflow.StatusReceived},
		{ID: "1002", ItemType: "COLUMN", Material: "SM490", Status: workflow.StatusBlasting},
		{ID: "1003", ItemType: "PLATE", Material: "SS400", Status: workflow.StatusShipped, Shop: workflow.ShopA},
	}
}

type harness struct {
	server *httptest.Server
	saver  *stubSaver
}

func newHarness(t *testing.T, policy identity.Policy) *harness {
	t.Helper()
	saver := &stubSaver{}
	ctrl := app.NewController(seedItems(), saver)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = ctrl.Run(ctx)
	}()

	srv := api.NewServer(ctrl, api.Options{
		Policy: policy,
		Parser: csvio.Parser{Now: func() time.Time { return time.Unix(0, 0).UTC() }},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		cancel()
		<-done
		ts.Close()
	})
	return &harness{server: ts, saver: saver}
}

func (h *harness) do(t *testing.T, method, path, user string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, h.server.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if user != "" {
		req.Header.Set(identity.HeaderUserID, user)
	}
	resp, err := h.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(data)
}

func ids(list []items.Item) []string {
	out := make([]string, len(list))
	for i, item := range list {
		out[i] = item.ID
	}
	return out
}

func TestItemsFiltersAndSorts(t *testing.T) {
	h := newHarness(t, identity.Policy{})

	resp := h.do(t, http.MethodGet, "/api/items?sort=id&dir=desc", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decodeJSON[api.ItemsResponse](t, resp)
	if diff := cmp.Diff([]string{"1002", "1001"}, ids(got.Items)); diff != "" {
		t.Fatalf("active items mismatch (-want +got):\n%s", diff)
	}
	if got.Total != 3 {
		t.Fatalf("total = %d, want 3", got.Total)
	}

	resp = h.do(t, http.MethodGet, "/api/items?showShipped=true", "", nil)
	got = decodeJSON[api.ItemsResponse](t, resp)
	if diff := cmp.Diff([]string{"1003"}, ids(got.Items)); diff != "" {
		t.Fatalf("archive mismatch (-want +got):\n%s", diff)
	}

	resp = h.do(t, http.MethodGet, "/api/items?sort=colour", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown sort key, got %d", resp.StatusCode)
	}
}

func TestStatsAndOptions(t *testing.T) {
	h := newHarness(t, identity.Policy{})

	stats := decodeJSON[api.StatsResponse](t, h.do(t, http.MethodGet, "/api/stats?material=SS400", "", nil))
	if stats.Total != 1 || stats.Received != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	opts := decodeJSON[api.OptionsResponse](t, h.do(t, http.MethodGet, "/api/options", "", nil))
	if diff := cmp.Diff([]string{"SM490", "SS400"}, opts.Materials); diff != "" {
		t.Fatalf("materials mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvanceNeedsShop(t *testing.T) {
	h := newHarness(t, identity.Policy{})

	resp := h.do(t, http.MethodPost, "/api/advance", "", jsonBody(t, api.AdvanceRequest{IDs: []string{"1001", "1002"}}))
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if body := decodeJSON[api.ErrorResponse](t, resp); body.NeedsShop != 1 {
		t.Fatalf("needsShop = %d, want 1", body.NeedsShop)
	}

	resp = h.do(t, http.MethodPost, "/api/advance", "", jsonBody(t, api.AdvanceRequest{IDs: []string{"1001", "1002"}, Shop: "B"}))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := decodeJSON[api.AdvanceResponse](t, resp); body.Touched != 2 {
		t.Fatalf("touched = %d, want 2", body.Touched)
	}

	got := decodeJSON[api.ItemsResponse](t, h.do(t, http.MethodGet, "/api/items?status=painting", "", nil))
	if len(got.Items) != 1 || got.Items[0].ID != "1002" || got.Items[0].Shop != workflow.ShopB {
		t.Fatalf("expected 1002 painting in shop B, got %+v", got.Items)
	}

	state := decodeJSON[api.StateResponse](t, h.do(t, http.MethodGet, "/api/state", "", nil))
	if !state.Dirty || state.Count != 3 {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestStatusDeleteAndRevert(t *testing.T) {
	h := newHarness(t, identity.Policy{})

	resp := h.do(t, http.MethodPost, "/api/status", "", jsonBody(t, api.StatusRequest{IDs: []string{"1001"}, Status: "awaiting_shipment", Shop: "Shop C"}))
	if body := decodeJSON[api.CountResponse](t, resp); body.Count != 1 {
		t.Fatalf("count = %d", body.Count)
	}
	resp = h.do(t, http.MethodPost, "/api/status", "", jsonBody(t, api.StatusRequest{IDs: []string{"1001"}, Status: "Nowhere"}))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", resp.StatusCode)
	}

	resp = h.do(t, http.MethodPost, "/api/delete", "", jsonBody(t, api.SelectionRequest{IDs: []string{"1003", "missing"}}))
	if body := decodeJSON[api.CountResponse](t, resp); body.Count != 1 {
		t.Fatalf("deleted = %d, want 1", body.Count)
	}

	resp = h.do(t, http.MethodPost, "/api/revert", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("revert status = %d", resp.StatusCode)
	}
	state := decodeJSON[api.StateResponse](t, h.do(t, http.MethodGet, "/api/state", "", nil))
	if state.Dirty || state.Count != 3 {
		t.Fatalf("expected clean original state after revert, got %+v", state)
	}
}

func TestImportAndSaveRequireAdmin(t *testing.T) {
	h := newHarness(t, identity.Policy{AdminID: "boss"})
	csv := "NO,ITEM\n1004,GIRDER\n1001,BEAM\n"

	resp := h.do(t, http.MethodPost, "/api/import?mode=append", "worker", strings.NewReader(csv))
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin import, got %d", resp.StatusCode)
	}

	resp = h.do(t, http.MethodPost, "/api/import?mode=append", "boss", strings.NewReader(csv))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	result := decodeJSON[api.ImportResponse](t, resp)
	want := api.ImportResponse{Mode: "append", Parsed: 2, Added: 1, Duplicates: []string{"1001"}}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("import mismatch (-want +got):\n%s", diff)
	}

	resp = h.do(t, http.MethodPost, "/api/import", "boss", strings.NewReader("NO,ITEM\n"))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for empty import, got %d", resp.StatusCode)
	}

	if resp := h.do(t, http.MethodPost, "/api/save", "worker", nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin save, got %d", resp.StatusCode)
	}
	if resp := h.do(t, http.MethodPost, "/api/save", "boss", nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp := h.do(t, http.MethodPost, "/api/save", "boss", nil); resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 when nothing to save, got %d", resp.StatusCode)
	}
	state := decodeJSON[api.StateResponse](t, h.do(t, http.MethodGet, "/api/state", "boss", nil))
	if !state.Admin || state.UserID != "boss" || state.Dirty {
		t.Fatalf("unexpected state %+v", state)
	}
}

func TestSaveFailureIsBadGateway(t *testing.T) {
	h := newHarness(t, identity.Policy{})
	h.saver.err = errors.New("store offline")

	h.do(t, http.MethodPost, "/api/delete", "", jsonBody(t, api.SelectionRequest{IDs: []string{"1001"}}))
	resp := h.do(t, http.MethodPost, "/api/save", "", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	state := decodeJSON[api.StateResponse](t, h.do(t, http.MethodGet, "/api/state", "", nil))
	if !state.Dirty {
		t.Fatal("expected changes to stay dirty after failed save")
	}
}

func TestExportWritesNarrowCSV(t *testing.T) {
	h := newHarness(t, identity.Policy{})
	resp := h.do(t, http.MethodGet, "/api/export", "", nil)
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(string(data), "\n")
	if lines[0] != csvio.ExportHeader {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[3] != "1003,PLATE,,Shipped,Shop A" {
		t.Fatalf("unexpected row %q", lines[3])
	}
}

func TestEventsStreamChanges(t *testing.T) {
	h := newHarness(t, identity.Policy{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/api/events"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	var hello api.EventMessage
	if err := wsjson.Read(ctx, conn, &hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Kind != "hello" || hello.Count != 3 {
		t.Fatalf("unexpected hello %+v", hello)
	}

	h.do(t, http.MethodPost, "/api/delete", "", jsonBody(t, api.SelectionRequest{IDs: []string{"1001"}}))

	var evt api.EventMessage
	if err := wsjson.Read(ctx, conn, &evt); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if evt.Kind != app.EventChanged || evt.Count != 2 || !evt.Dirty {
		t.Fatalf("unexpected event %+v", evt)
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}
