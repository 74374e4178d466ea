package tasks

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/s1natex/taskorbit/internal/kv"
)

const (
	TasksKey = "taskOrbit_tasks"
	LogsKey  = "taskOrbit_logs"

	MaxLogEntries = 50
)

// Store owns the task list and the activity log and writes both through to a
// kv.Store after every mutation. Persistence failures never reach callers.
type Store struct {
	mu      sync.Mutex
	kv      *kv.Store
	tasks   []Task
	logs    []LogEntry
	version uint64

	now    func() time.Time
	newID  func() string
	logger *slog.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func NewStore(store *kv.Store, opts ...Option) *Store {
	s := &Store{
		kv:     store,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init replaces in-memory state with what the kv store holds. Absent or
// malformed entries load as empty sequences; unknown statuses load as Todo.
func (s *Store) Init() {
	var tasks []Task
	s.kv.Get(TasksKey, &tasks)
	for i := range tasks {
		if !tasks[i].Status.Valid() {
			tasks[i].Status = StatusTodo
		}
	}
	var logs []LogEntry
	s.kv.Get(LogsKey, &logs)
	if len(logs) > MaxLogEntries {
		logs = logs[:MaxLogEntries]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
	s.logs = logs
	s.version++
	s.logger.Debug("board_loaded", slog.Int("tasks", len(tasks)), slog.Int("logs", len(logs)))
}

func (s *Store) Add(in NewTask) Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Task{
		ID:          s.newID(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		Tags:        strings.TrimSpace(in.Tags),
		CreatedAt:   s.now(),
		Status:      in.Status,
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.Status.Valid() {
		t.Status = StatusTodo
	}

	s.tasks = append(s.tasks, t)
	s.persistTasks()
	s.appendLog(fmt.Sprintf(`Created task "%s"`, t.Title))
	mutationsTotal.WithLabelValues("add").Inc()
	s.logger.Info("task_created", slog.String("id", t.ID), slog.String("status", string(t.Status)))
	return t
}

// Edit merges changes into the task with the given id. The log entry names the
// title carried by changes, falling back to "Untitled" when it has none.
func (s *Store) Edit(id string, c Changes) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Task{}, false
	}
	c.apply(&s.tasks[i])
	updated := s.tasks[i]

	s.persistTasks()
	title := "Untitled"
	if c.Title != nil && *c.Title != "" {
		title = *c.Title
	}
	s.appendLog(fmt.Sprintf(`Edited task "%s"`, title))
	mutationsTotal.WithLabelValues("edit").Inc()
	s.logger.Info("task_edited", slog.String("id", id))
	return updated, true
}

func (s *Store) Delete(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return Task{}, false
	}
	removed := s.tasks[i]
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)

	s.persistTasks()
	title := removed.Title
	if title == "" {
		title = "Unknown"
	}
	s.appendLog(fmt.Sprintf(`Deleted task "%s"`, title))
	mutationsTotal.WithLabelValues("delete").Inc()
	s.logger.Info("task_deleted", slog.String("id", id))
	return removed, true
}

// Move changes a task's status. It reports false, and records nothing, when the
// id is unknown, the status is not a board column, or the task already has it.
func (s *Store) Move(id string, to Status) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !to.Valid() {
		return Task{}, false
	}
	i := s.indexOf(id)
	if i < 0 || s.tasks[i].Status == to {
		return Task{}, false
	}
	from := s.tasks[i].Status
	s.tasks[i].Status = to
	moved := s.tasks[i]

	s.persistTasks()
	s.appendLog(fmt.Sprintf(`Moved "%s" to %s`, moved.Title, to))
	mutationsTotal.WithLabelValues("move").Inc()
	s.logger.Info("task_moved", slog.String("id", id), slog.String("from", string(from)), slog.String("to", string(to)))
	return moved, true
}

// Reset clears tasks and log. No log entry is written for it.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = nil
	s.logs = nil
	s.version++
	s.kv.Set(TasksKey, []Task{})
	s.kv.Set(LogsKey, []LogEntry{})
	mutationsTotal.WithLabelValues("reset").Inc()
	s.logger.Info("board_reset")
}

func (s *Store) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return Task{}, false
}

// Tasks returns a copy of the raw task sequence in insertion order.
func (s *Store) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task(nil), s.tasks...)
}

// Logs returns a copy of the activity log, most recent first.
func (s *Store) Logs() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogEntry(nil), s.logs...)
}

// Version changes whenever the task sequence or the log changes.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Snapshot returns the tasks together with the version they belong to.
func (s *Store) Snapshot() ([]Task, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Task(nil), s.tasks...), s.version
}

func (s *Store) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) persistTasks() {
	s.version++
	out := s.tasks
	if out == nil {
		out = []Task{}
	}
	s.kv.Set(TasksKey, out)
}

func (s *Store) appendLog(action string) {
	entry := LogEntry{ID: s.newID(), Action: action, Timestamp: s.now()}
	logs := append([]LogEntry{entry}, s.logs...)
	if len(logs) > MaxLogEntries {
		logs = logs[:MaxLogEntries]
	}
	s.logs = logs
	s.version++
	s.kv.Set(LogsKey, s.logs)
}
