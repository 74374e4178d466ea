package tasks

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/taskorbit/internal/kv"
)

func newTestServer(t *testing.T) (*chi.Mux, *Handle) {
	t.Helper()
	kvs := kv.NewStore(kv.NewMemoryBackend(), quietLogger())
	h := NewHandle(kvs, quietLogger(), WithIDGenerator(sequentialIDs()), WithClock(fixedClock()))
	h.Open()
	r := chi.NewRouter()
	RegisterRoutes(r, h)
	return r, h
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to parse JSON: %v (body=%s)", err, rec.Body.String())
	}
	return v
}

func TestPostTasks_Success(t *testing.T) {
	r, _ := newTestServer(t)

	rec := do(t, r, http.MethodPost, "/tasks", `{"title":"  learn chi ","priority":"High","tags":"go, web, go","dueDate":"2025-12-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d, body=%s", rec.Code, rec.Body.String())
	}

	got := decode[taskView](t, rec)
	if got.ID == "" {
		t.Errorf("expected an ID")
	}
	if got.Title != "learn chi" {
		t.Errorf("expected Title=learn chi, got %q", got.Title)
	}
	if got.Status != StatusTodo {
		t.Errorf("new tasks should default to Todo, got %q", got.Status)
	}
	if len(got.TagList) != 2 || got.TagList[0] != "go" || got.TagList[1] != "web" {
		t.Errorf("unexpected tag list %v", got.TagList)
	}
	if got.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}
}

func TestPostTasks_Validation(t *testing.T) {
	r, _ := newTestServer(t)

	rec := do(t, r, http.MethodPost, "/tasks", `{"title":"   ","priority":"Urgent","status":"Blocked","dueDate":"tomorrow"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d, body=%s", rec.Code, rec.Body.String())
	}

	errResp := decode[errResponse](t, rec)
	if errResp.Error != "validation_error" {
		t.Errorf("expected validation_error, got %q", errResp.Error)
	}
	fields := map[string]bool{}
	for _, d := range errResp.Details {
		fields[d.Field] = true
	}
	for _, f := range []string{"title", "priority", "status", "dueDate"} {
		if !fields[f] {
			t.Errorf("expected a %s error, got %+v", f, errResp.Details)
		}
	}
}

func TestPostTasks_InvalidJSON(t *testing.T) {
	r, _ := newTestServer(t)

	rec := do(t, r, http.MethodPost, "/tasks", `{"title":`) // truncated/invalid JSON
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d, body=%s", rec.Code, rec.Body.String())
	}
	if got := decode[errResponse](t, rec); got.Error != "invalid_json" {
		t.Errorf("expected error 'invalid_json', got %q", got.Error)
	}
}

func TestRoutes_RequireOpenBoard(t *testing.T) {
	r, h := newTestServer(t)
	h.Close()

	rec := do(t, r, http.MethodGet, "/tasks", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}
}

func TestGetTasks_FilterAndSort(t *testing.T) {
	r, h := newTestServer(t)
	b, _ := h.Board()
	b.Store.Add(NewTask{Title: "Buy milk", Priority: PriorityLow})
	b.Store.Add(NewTask{Title: "Ship release", Priority: PriorityHigh, DueDate: "2026-01-01"})
	b.Store.Add(NewTask{Title: "Buy eggs", Priority: PriorityLow, DueDate: "2025-12-01"})

	rec := do(t, r, http.MethodGet, "/tasks?search=buy&priority=All&sort=dueDate", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	list := decode[[]taskView](t, rec)
	if len(list) != 2 || list[0].Title != "Buy eggs" || list[1].Title != "Buy milk" {
		t.Fatalf("unexpected list %+v", list)
	}

	// the filter sticks to the board until changed
	rec = do(t, r, http.MethodGet, "/tasks", "")
	if list := decode[[]taskView](t, rec); len(list) != 2 {
		t.Fatalf("expected live filter to persist, got %d tasks", len(list))
	}

	rec = do(t, r, http.MethodGet, "/tasks?priority=Urgent", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
}

func TestPutView_AndBoard(t *testing.T) {
	r, h := newTestServer(t)
	b, _ := h.Board()
	b.Store.Add(NewTask{Title: "a", Priority: PriorityHigh})
	b.Store.Add(NewTask{Title: "b", Priority: PriorityLow, Status: StatusDone})

	rec := do(t, r, http.MethodPut, "/view", `{"priority":"High"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	if got := decode[viewResponse](t, rec); got.Priority != PriorityHigh {
		t.Fatalf("unexpected view %+v", got)
	}

	rec = do(t, r, http.MethodGet, "/board", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	board := decode[boardResponse](t, rec)
	if len(board.Columns[StatusTodo]) != 1 || len(board.Columns[StatusDone]) != 0 {
		t.Fatalf("unexpected columns %+v", board.Columns)
	}
	if board.Counts[StatusTodo] != 1 || board.Counts[StatusDoing] != 0 {
		t.Fatalf("unexpected counts %+v", board.Counts)
	}

	rec = do(t, r, http.MethodPut, "/view", `{"priority":"Urgent"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
}

func TestPatchTask(t *testing.T) {
	r, h := newTestServer(t)
	b, _ := h.Board()
	task := b.Store.Add(NewTask{Title: "Old"})

	rec := do(t, r, http.MethodPatch, "/tasks/"+task.ID, `{"title":" New Title ","status":"Doing"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got := decode[taskView](t, rec)
	if got.Title != "New Title" || got.Status != StatusDoing {
		t.Fatalf("unexpected task %+v", got)
	}
	if logs := b.Store.Logs(); logs[0].Action != `Edited task "New Title"` {
		t.Fatalf("unexpected log %q", logs[0].Action)
	}

	rec = do(t, r, http.MethodPatch, "/tasks/"+task.ID, `{"title":""}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}

	rec = do(t, r, http.MethodPatch, "/tasks/missing", `{"title":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestDeleteTask(t *testing.T) {
	r, h := newTestServer(t)
	b, _ := h.Board()
	task := b.Store.Add(NewTask{Title: "gone"})

	if rec := do(t, r, http.MethodDelete, "/tasks/"+task.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodDelete, "/tasks/"+task.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestMoveTask(t *testing.T) {
	r, h := newTestServer(t)
	b, _ := h.Board()
	task := b.Store.Add(NewTask{Title: "Movable"})

	rec := do(t, r, http.MethodPost, "/tasks/"+task.ID+"/move", `{"status":"Done"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	if got := decode[taskView](t, rec); got.Status != StatusDone {
		t.Fatalf("expected Done, got %q", got.Status)
	}
	logs := len(b.Store.Logs())

	rec = do(t, r, http.MethodPost, "/tasks/"+task.ID+"/move", `{"status":"Done"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 for same status, got %d", rec.Code)
	}
	if len(b.Store.Logs()) != logs {
		t.Fatalf("same-status move should not log")
	}

	if rec := do(t, r, http.MethodPost, "/tasks/missing/move", `{"status":"Done"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodPost, "/tasks/"+task.ID+"/move", `{"status":"Later"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
}

func TestDragEndpoints(t *testing.T) {
	r, h := newTestServer(t)
	b, _ := h.Board()
	task := b.Store.Add(NewTask{Title: "Drag me"})

	if rec := do(t, r, http.MethodPost, "/drag/start", `{"activeId":"`+task.ID+`"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	rec := do(t, r, http.MethodPost, "/drag/end", `{"overId":"Done"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	res := decode[DropResult](t, rec)
	if !res.Moved || res.Status != StatusDone {
		t.Fatalf("unexpected drop result %+v", res)
	}
	if logs := b.Store.Logs(); logs[0].Action != `Moved "Drag me" to Done` {
		t.Fatalf("unexpected log %q", logs[0].Action)
	}

	logs := len(b.Store.Logs())
	rec = do(t, r, http.MethodPost, "/drag/end", `{"activeId":"`+task.ID+`"}`)
	if res := decode[DropResult](t, rec); res.Moved {
		t.Fatalf("drop without target should cancel, got %+v", res)
	}
	if len(b.Store.Logs()) != logs {
		t.Fatalf("cancelled drag should not log")
	}

	if rec := do(t, r, http.MethodPost, "/drag/start", `{}`); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
}

func TestLogsAndReset(t *testing.T) {
	r, h := newTestServer(t)
	b, _ := h.Board()
	b.Store.Add(NewTask{Title: "a"})

	rec := do(t, r, http.MethodGet, "/logs", "")
	if logs := decode[[]LogEntry](t, rec); len(logs) != 1 || logs[0].Action != `Created task "a"` {
		t.Fatalf("unexpected logs %+v", logs)
	}

	if rec := do(t, r, http.MethodPost, "/board/reset", ""); rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 without confirm, got %d", rec.Code)
	}
	if len(b.Store.Tasks()) != 1 {
		t.Fatalf("unconfirmed reset must not clear the board")
	}

	if rec := do(t, r, http.MethodPost, "/board/reset?confirm=true", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	rec = do(t, r, http.MethodGet, "/logs", "")
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty log list, got %q", body)
	}
}
