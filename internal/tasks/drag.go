package tasks

import (
	"log/slog"
	"sync"
)

type DragStart struct {
	ActiveID string `json:"activeId"`
}

// DragEnd reports where a drag gesture finished. OverID is empty when the
// pointer was released outside any drop target.
type DragEnd struct {
	ActiveID string `json:"activeId"`
	OverID   string `json:"overId"`
}

// DropResult describes what a completed drag gesture did.
type DropResult struct {
	Moved  bool   `json:"moved"`
	Status Status `json:"status,omitempty"`
	Task   *Task  `json:"task,omitempty"`
}

// ResolveDropTarget maps a drop target id to a destination column: a status
// name directly, or the current status of the task with that id.
func ResolveDropTarget(overID string, lookup func(id string) (Task, bool)) (Status, bool) {
	if overID == "" {
		return "", false
	}
	if s := Status(overID); s.Valid() {
		return s, true
	}
	if t, ok := lookup(overID); ok {
		return t.Status, true
	}
	return "", false
}

// Dragger turns drag events into Store.Move calls.
type Dragger struct {
	mu     sync.Mutex
	store  *Store
	active string
	logger *slog.Logger
}

func NewDragger(store *Store, logger *slog.Logger) *Dragger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dragger{store: store, logger: logger}
}

func (d *Dragger) Start(ev DragStart) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = ev.ActiveID
}

// Active returns the id recorded by the last Start, if a gesture is in flight.
func (d *Dragger) Active() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active, d.active != ""
}

// End finishes the gesture. Without a resolvable target nothing changes. An
// empty ActiveID falls back to the id recorded by Start.
func (d *Dragger) End(ev DragEnd) DropResult {
	d.mu.Lock()
	id := ev.ActiveID
	if id == "" {
		id = d.active
	}
	d.active = ""
	d.mu.Unlock()

	if id == "" {
		dragOutcomesTotal.WithLabelValues("cancelled").Inc()
		return DropResult{}
	}
	to, ok := ResolveDropTarget(ev.OverID, d.store.Get)
	if !ok {
		dragOutcomesTotal.WithLabelValues("cancelled").Inc()
		d.logger.Debug("drag_cancelled", slog.String("id", id), slog.String("over", ev.OverID))
		return DropResult{}
	}

	t, moved := d.store.Move(id, to)
	if !moved {
		dragOutcomesTotal.WithLabelValues("unchanged").Inc()
		return DropResult{Status: to}
	}
	dragOutcomesTotal.WithLabelValues("moved").Inc()
	return DropResult{Moved: true, Status: to, Task: &t}
}
