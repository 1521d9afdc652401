package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	cfgpkg "github.com/brandon-schabel/Promptliano-sub009/internal/config"
	"github.com/brandon-schabel/Promptliano-sub009/internal/runtime"
	pebblestore "github.com/brandon-schabel/Promptliano-sub009/internal/storage/pebble"
	logpkg "github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{
		DataDir: t.TempDir(),
		Fsync:   pebblestore.FsyncModeNever,
		Config:  cfgpkg.Default(),
		Logger:  logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel)),
	})
	if err != nil {
		t.Fatalf("open runtime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	ts := httptest.NewServer(New(rt, logpkg.NewLogger(logpkg.WithLevel(logpkg.ErrorLevel))).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, ts *httptest.Server, path string, body any, wantStatus int) map[string]any {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("POST %s: status = %d, want %d", path, resp.StatusCode, wantStatus)
	}
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out
}

func get(t *testing.T, ts *httptest.Server, path string, wantStatus int) map[string]any {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: status = %d, want %d", path, resp.StatusCode, wantStatus)
	}
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	out := get(t, ts, "/v1/healthz", http.StatusOK)
	if out["status"] != "ok" {
		t.Fatalf("health = %v", out)
	}
}

func TestFlowLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	post(t, ts, "/v1/projects/ensure", map[string]string{"name": "alpha"}, http.StatusOK)

	q := post(t, ts, "/v1/queues/create", map[string]any{
		"project": "alpha", "name": "main", "maxConcurrency": 2,
	}, http.StatusCreated)
	queueID, _ := q["id"].(string)
	if queueID == "" {
		t.Fatalf("queue = %v", q)
	}

	tk := post(t, ts, "/v1/tickets/create", map[string]string{
		"project": "alpha", "title": "do the thing",
	}, http.StatusCreated)
	ticketID, _ := tk["id"].(string)
	ref := map[string]string{"itemType": "ticket", "itemId": ticketID}

	m := post(t, ts, "/v1/flow/enqueue", map[string]any{
		"queueId": queueID, "ref": ref, "priority": 5,
	}, http.StatusCreated)
	if m["status"] != "queued" || m["position"] != float64(0) {
		t.Fatalf("enqueued = %v", m)
	}
	// double enqueue conflicts
	post(t, ts, "/v1/flow/enqueue", map[string]any{"queueId": queueID, "ref": ref}, http.StatusConflict)

	claim := post(t, ts, "/v1/flow/claim-next", map[string]string{
		"queueId": queueID, "agentId": "agent-1",
	}, http.StatusOK)
	cm, _ := claim["membership"].(map[string]any)
	if cm == nil || cm["status"] != "in_progress" || cm["agentId"] != "agent-1" {
		t.Fatalf("claimed = %v", claim)
	}

	done := post(t, ts, "/v1/flow/complete", map[string]any{
		"ref": ref, "result": "shipped",
	}, http.StatusOK)
	if done["status"] != "completed" {
		t.Fatalf("completed = %v", done)
	}
	// double complete is a transition error
	post(t, ts, "/v1/flow/complete", map[string]any{"ref": ref}, http.StatusUnprocessableEntity)

	stats := get(t, ts, "/v1/flow/stats?queueId="+queueID, http.StatusOK)
	if stats["completed"] != float64(1) || stats["queued"] != float64(0) {
		t.Fatalf("stats = %v", stats)
	}

	mem := get(t, ts, fmt.Sprintf("/v1/flow/membership?itemType=ticket&itemId=%s", ticketID), http.StatusOK)
	if mem["membership"] != nil {
		t.Fatalf("live membership after complete: %v", mem)
	}
	hist, _ := mem["history"].([]any)
	if len(hist) != 1 {
		t.Fatalf("history = %v", mem["history"])
	}

	events := get(t, ts, "/v1/flow/events?project=alpha", http.StatusOK)
	if evs, _ := events["events"].([]any); len(evs) < 3 {
		t.Fatalf("events = %v", events)
	}
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	post(t, ts, "/v1/projects/ensure", map[string]string{"name": "alpha"}, http.StatusOK)

	// unknown refs and queues are 404
	get(t, ts, "/v1/flow/stats?queueId=missing", http.StatusNotFound)
	post(t, ts, "/v1/flow/enqueue", map[string]any{
		"queueId": "missing",
		"ref":     map[string]string{"itemType": "ticket", "itemId": "nope"},
	}, http.StatusNotFound)

	// duplicate queue name is 409
	post(t, ts, "/v1/queues/create", map[string]any{"project": "alpha", "name": "main"}, http.StatusCreated)
	post(t, ts, "/v1/queues/create", map[string]any{"project": "alpha", "name": "main"}, http.StatusConflict)

	// deleting a non-empty queue is 409
	q := post(t, ts, "/v1/queues/create", map[string]any{"project": "alpha", "name": "busy"}, http.StatusCreated)
	queueID, _ := q["id"].(string)
	tk := post(t, ts, "/v1/tickets/create", map[string]string{"project": "alpha", "title": "t"}, http.StatusCreated)
	ref := map[string]string{"itemType": "ticket", "itemId": tk["id"].(string)}
	post(t, ts, "/v1/flow/enqueue", map[string]any{"queueId": queueID, "ref": ref}, http.StatusCreated)
	post(t, ts, "/v1/queues/delete", map[string]string{"queueId": queueID}, http.StatusConflict)

	// reorder with a stale set is 409
	post(t, ts, "/v1/flow/reorder", map[string]any{
		"queueId": queueID,
		"refs":    []map[string]string{},
	}, http.StatusConflict)
}

func TestTaskDoneAndEventTrim(t *testing.T) {
	ts := newTestServer(t)
	post(t, ts, "/v1/projects/ensure", map[string]string{"name": "alpha"}, http.StatusOK)

	tk := post(t, ts, "/v1/tickets/create", map[string]string{
		"project": "alpha", "title": "parent",
	}, http.StatusCreated)
	task := post(t, ts, "/v1/tasks/create", map[string]any{
		"ticketId": tk["id"], "title": "child",
	}, http.StatusCreated)
	taskID, _ := task["id"].(string)

	done := post(t, ts, "/v1/tasks/done", map[string]any{"taskId": taskID, "done": true}, http.StatusOK)
	if done["done"] != true {
		t.Fatalf("task after done = %v", done)
	}
	undone := post(t, ts, "/v1/tasks/done", map[string]any{"taskId": taskID, "done": false}, http.StatusOK)
	if undone["done"] != false {
		t.Fatalf("task after undo = %v", undone)
	}
	post(t, ts, "/v1/tasks/done", map[string]any{"taskId": "missing", "done": true}, http.StatusNotFound)

	// generate some audit events, then trim all but the newest one
	q := post(t, ts, "/v1/queues/create", map[string]any{"project": "alpha", "name": "main"}, http.StatusCreated)
	ref := map[string]any{"itemType": "ticket", "itemId": tk["id"]}
	post(t, ts, "/v1/flow/enqueue", map[string]any{"queueId": q["id"], "ref": ref}, http.StatusCreated)
	post(t, ts, "/v1/flow/dequeue", map[string]any{"ref": ref}, http.StatusOK)

	trimmed := post(t, ts, "/v1/flow/events/trim", map[string]any{
		"project": "alpha", "keepLast": 1,
	}, http.StatusOK)
	if n, _ := trimmed["deleted"].(float64); n < 1 {
		t.Fatalf("trim = %v", trimmed)
	}
	events := get(t, ts, "/v1/flow/events?project=alpha", http.StatusOK)
	if evs, _ := events["events"].([]any); len(evs) != 1 {
		t.Fatalf("events after trim = %v", events)
	}
}
