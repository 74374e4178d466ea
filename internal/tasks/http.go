package tasks

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const maxTitleLen = 200

// BoardSource yields the board of the current session, if any.
type BoardSource interface {
	Board() (*Board, bool)
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	DueDate     string `json:"dueDate"`
	Tags        string `json:"tags"`
	Status      string `json:"status"`
}

type moveRequest struct {
	Status string `json:"status"`
}

type viewRequest struct {
	Search        *string `json:"search"`
	Priority      *string `json:"priority"`
	SortByDueDate *bool   `json:"sortByDueDate"`
}

type viewResponse struct {
	Search        string   `json:"search"`
	Priority      Priority `json:"priority"`
	SortByDueDate bool     `json:"sortByDueDate"`
}

type boardResponse struct {
	Columns Columns        `json:"columns"`
	Counts  map[Status]int `json:"counts"`
	Filter  viewResponse   `json:"filter"`
}

type taskView struct {
	Task
	TagList []string `json:"tagList"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

func RegisterRoutes(r chi.Router, boards BoardSource) {
	h := &handlers{boards: boards}

	r.Get("/tasks", h.withBoard(h.listTasks))
	r.Post("/tasks", h.withBoard(h.createTask))
	r.Patch("/tasks/{id}", h.withBoard(h.editTask))
	r.Delete("/tasks/{id}", h.withBoard(h.deleteTask))
	r.Post("/tasks/{id}/move", h.withBoard(h.moveTask))

	r.Get("/board", h.withBoard(h.getBoard))
	r.Post("/board/reset", h.withBoard(h.resetBoard))
	r.Put("/view", h.withBoard(h.setView))
	r.Get("/logs", h.withBoard(h.listLogs))

	r.Post("/drag/start", h.withBoard(h.dragStart))
	r.Post("/drag/end", h.withBoard(h.dragEnd))
}

type handlers struct {
	boards BoardSource
}

type boardHandler func(w http.ResponseWriter, r *http.Request, b *Board)

func (h *handlers) withBoard(next boardHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := h.boards.Board()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, errResponse{Error: "no_session"})
			return
		}
		next(w, r, b)
	}
}

// listTasks applies any search/priority/sort query parameters to the live
// view state before projecting.
func (h *handlers) listTasks(w http.ResponseWriter, r *http.Request, b *Board) {
	q := r.URL.Query()
	var errs []fieldError
	if q.Has("search") {
		b.View.SetSearch(q.Get("search"))
	}
	if q.Has("priority") {
		p := Priority(q.Get("priority"))
		if p != PriorityAll && !p.Valid() {
			errs = append(errs, fieldError{Field: "priority", Message: "priority must be All, Low, Medium or High"})
		} else {
			b.View.SetPriority(p)
		}
	}
	if q.Has("sort") {
		switch q.Get("sort") {
		case "dueDate":
			b.View.SetSortByDueDate(true)
		case "", "none":
			b.View.SetSortByDueDate(false)
		default:
			errs = append(errs, fieldError{Field: "sort", Message: "sort must be dueDate or none"})
		}
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{Error: "validation_error", Details: errs})
		return
	}
	writeJSON(w, http.StatusOK, withTagLists(b.Visible()))
}

func (h *handlers) getBoard(w http.ResponseWriter, r *http.Request, b *Board) {
	cols := Partition(b.Visible())
	writeJSON(w, http.StatusOK, boardResponse{
		Columns: cols,
		Counts:  cols.Counts(),
		Filter:  toViewResponse(b.View.Filter()),
	})
}

func (h *handlers) createTask(w http.ResponseWriter, r *http.Request, b *Board) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
		return
	}
	if vErrs := validateCreateTask(req); len(vErrs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{Error: "validation_error", Details: vErrs})
		return
	}

	t := b.Store.Add(NewTask{
		Title:       req.Title,
		Description: req.Description,
		Priority:    Priority(req.Priority),
		DueDate:     strings.TrimSpace(req.DueDate),
		Tags:        req.Tags,
		Status:      Status(req.Status),
	})
	writeJSON(w, http.StatusCreated, taskView{Task: t, TagList: t.TagList()})
}

func (h *handlers) editTask(w http.ResponseWriter, r *http.Request, b *Board) {
	var c Changes
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
		return
	}
	if vErrs := validateChanges(&c); len(vErrs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{Error: "validation_error", Details: vErrs})
		return
	}

	t, ok := b.Store.Edit(chi.URLParam(r, "id"), c)
	if !ok {
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, taskView{Task: t, TagList: t.TagList()})
}

func (h *handlers) deleteTask(w http.ResponseWriter, r *http.Request, b *Board) {
	if _, ok := b.Store.Delete(chi.URLParam(r, "id")); !ok {
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// moveTask answers 200 with the task even when it already had the status.
func (h *handlers) moveTask(w http.ResponseWriter, r *http.Request, b *Board) {
	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
		return
	}
	to := Status(req.Status)
	if !to.Valid() {
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:   "validation_error",
			Details: []fieldError{{Field: "status", Message: "status must be Todo, Doing or Done"}},
		})
		return
	}

	id := chi.URLParam(r, "id")
	if t, moved := b.Store.Move(id, to); moved {
		writeJSON(w, http.StatusOK, taskView{Task: t, TagList: t.TagList()})
		return
	}
	t, ok := b.Store.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errResponse{Error: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, taskView{Task: t, TagList: t.TagList()})
}

func (h *handlers) setView(w http.ResponseWriter, r *http.Request, b *Board) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
		return
	}

	f := b.View.Filter()
	if req.Search != nil {
		f.Search = *req.Search
	}
	if req.Priority != nil {
		p := Priority(*req.Priority)
		if p != PriorityAll && !p.Valid() {
			writeJSON(w, http.StatusUnprocessableEntity, errResponse{
				Error:   "validation_error",
				Details: []fieldError{{Field: "priority", Message: "priority must be All, Low, Medium or High"}},
			})
			return
		}
		f.Priority = p
	}
	if req.SortByDueDate != nil {
		f.SortByDueDate = *req.SortByDueDate
	}
	b.View.Set(f)
	writeJSON(w, http.StatusOK, toViewResponse(b.View.Filter()))
}

func (h *handlers) listLogs(w http.ResponseWriter, r *http.Request, b *Board) {
	logs := b.Store.Logs()
	if logs == nil {
		logs = []LogEntry{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// resetBoard requires confirm=true; the reset cannot be undone.
func (h *handlers) resetBoard(w http.ResponseWriter, r *http.Request, b *Board) {
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !ok {
		writeJSON(w, http.StatusConflict, errResponse{Error: "confirmation_required"})
		return
	}
	b.Store.Reset()
	b.Cache.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) dragStart(w http.ResponseWriter, r *http.Request, b *Board) {
	var ev DragStart
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
		return
	}
	if strings.TrimSpace(ev.ActiveID) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, errResponse{
			Error:   "validation_error",
			Details: []fieldError{{Field: "activeId", Message: "activeId is required"}},
		})
		return
	}
	b.Drag.Start(ev)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) dragEnd(w http.ResponseWriter, r *http.Request, b *Board) {
	var ev DragEnd
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid_json"})
		return
	}
	writeJSON(w, http.StatusOK, b.Drag.End(ev))
}

func validateCreateTask(req createTaskRequest) []fieldError {
	var errs []fieldError

	errs = append(errs, validateTitle(req.Title)...)
	if req.Priority != "" && !Priority(req.Priority).Valid() {
		errs = append(errs, fieldError{Field: "priority", Message: "priority must be Low, Medium or High"})
	}
	if req.Status != "" && !Status(req.Status).Valid() {
		errs = append(errs, fieldError{Field: "status", Message: "status must be Todo, Doing or Done"})
	}
	if err := validateDueDate(req.DueDate); err != nil {
		errs = append(errs, *err)
	}
	return errs
}

// validateChanges checks the fields present in c and trims the title.
func validateChanges(c *Changes) []fieldError {
	var errs []fieldError

	if c.Title != nil {
		errs = append(errs, validateTitle(*c.Title)...)
		trimmed := strings.TrimSpace(*c.Title)
		c.Title = &trimmed
	}
	if c.Priority != nil && !c.Priority.Valid() {
		errs = append(errs, fieldError{Field: "priority", Message: "priority must be Low, Medium or High"})
	}
	if c.Status != nil && !c.Status.Valid() {
		errs = append(errs, fieldError{Field: "status", Message: "status must be Todo, Doing or Done"})
	}
	if c.DueDate != nil {
		if err := validateDueDate(*c.DueDate); err != nil {
			errs = append(errs, *err)
		}
		trimmed := strings.TrimSpace(*c.DueDate)
		c.DueDate = &trimmed
	}
	return errs
}

func validateTitle(title string) []fieldError {
	var errs []fieldError

	if strings.TrimSpace(title) == "" {
		errs = append(errs, fieldError{
			Field:   "title",
			Message: "title is required",
		})
	}

	if l := len(title); l > maxTitleLen {
		errs = append(errs, fieldError{
			Field:   "title",
			Message: fmt.Sprintf("title must be at most %d characters", maxTitleLen),
		})
	}

	return errs
}

func validateDueDate(due string) *fieldError {
	due = strings.TrimSpace(due)
	if due == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, due); err != nil {
		return &fieldError{Field: "dueDate", Message: "dueDate must be a date like 2006-01-02"}
	}
	return nil
}

func withTagLists(ts []Task) []taskView {
	out := make([]taskView, 0, len(ts))
	for _, t := range ts {
		out = append(out, taskView{Task: t, TagList: t.TagList()})
	}
	return out
}

func toViewResponse(f Filter) viewResponse {
	return viewResponse{Search: f.Search, Priority: f.Priority, SortByDueDate: f.SortByDueDate}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
