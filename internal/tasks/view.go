package tasks

import (
	"slices"
	"strings"
	"sync"
)

// Filter holds the view parameters applied by Project.
type Filter struct {
	Search        string
	Priority      Priority
	SortByDueDate bool
}

func (f Filter) normalized() Filter {
	if f.Priority == "" {
		f.Priority = PriorityAll
	}
	return f
}

// Project derives the visible task list: case-insensitive title search, then
// priority filter, then an optional stable sort by due date with undated tasks
// last. The input slice is never modified.
func Project(all []Task, f Filter) []Task {
	f = f.normalized()
	out := make([]Task, 0, len(all))

	// blank input disables the search; otherwise the raw term is matched
	search := strings.TrimSpace(f.Search) != ""
	term := strings.ToLower(f.Search)
	for _, t := range all {
		if search && !strings.Contains(strings.ToLower(t.Title), term) {
			continue
		}
		if f.Priority != PriorityAll && t.Priority != f.Priority {
			continue
		}
		out = append(out, t)
	}

	if f.SortByDueDate {
		slices.SortStableFunc(out, compareDue)
	}
	return out
}

func compareDue(a, b Task) int {
	da, okA := a.Due()
	db, okB := b.Due()
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	}
	return da.Compare(db)
}

// Columns is a projection grouped by status.
type Columns map[Status][]Task

// Partition groups a projected list by status, keeping its order within each
// column. Every status is present, possibly empty.
func Partition(view []Task) Columns {
	cols := make(Columns, len(Statuses))
	for _, s := range Statuses {
		cols[s] = []Task{}
	}
	for _, t := range view {
		cols[t.Status] = append(cols[t.Status], t)
	}
	return cols
}

func (c Columns) Counts() map[Status]int {
	out := make(map[Status]int, len(c))
	for s, ts := range c {
		out[s] = len(ts)
	}
	return out
}

// ViewState is the live filter of a board. Typing into the search box and
// submitting it both end up in SetSearch.
type ViewState struct {
	mu sync.Mutex
	f  Filter
}

func (v *ViewState) Filter() Filter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.f.normalized()
}

func (v *ViewState) Set(f Filter) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.f = f.normalized()
}

func (v *ViewState) SetSearch(term string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.f.Search = term
}

func (v *ViewState) SetPriority(p Priority) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.f.Priority = p
}

func (v *ViewState) SetSortByDueDate(on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.f.SortByDueDate = on
}

type viewKey struct {
	version uint64
	filter  Filter
}

// ViewCache memoizes one projection, keyed on the store version and the
// filter. Any change to either recomputes.
type ViewCache struct {
	mu       sync.Mutex
	key      viewKey
	valid    bool
	view     []Task
	computes int
}

func (c *ViewCache) Get(s *Store, f Filter) []Task {
	f = f.normalized()
	key := viewKey{version: s.Version(), filter: f}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.valid || c.key != key {
		tasks, version := s.Snapshot()
		c.view = Project(tasks, f)
		c.key = viewKey{version: version, filter: f}
		c.valid = true
		c.computes++
	}
	return slices.Clone(c.view)
}

func (c *ViewCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.valid = false
	c.view = nil
}

// Computes reports how many times the cache recomputed its projection.
func (c *ViewCache) Computes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.computes
}
