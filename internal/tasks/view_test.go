package tasks

import (
	"reflect"
	"testing"
)

func titles(ts []Task) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Title)
	}
	return out
}

func sampleTasks() []Task {
	return []Task{
		{ID: "1", Title: "Buy milk", Priority: PriorityLow, Status: StatusTodo},
		{ID: "2", Title: "Ship release", Priority: PriorityHigh, DueDate: "2026-01-01", Status: StatusDoing},
		{ID: "3", Title: "Buy eggs", Priority: PriorityLow, DueDate: "2025-12-01", Status: StatusTodo},
	}
}

func TestProject_SearchThenSortByDueDate(t *testing.T) {
	got := Project(sampleTasks(), Filter{Search: "buy", Priority: PriorityAll, SortByDueDate: true})

	want := []string{"Buy eggs", "Buy milk"}
	if !reflect.DeepEqual(titles(got), want) {
		t.Fatalf("expected %v, got %v", want, titles(got))
	}
}

func TestProject_Filters(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter keeps order", Filter{}, []string{"Buy milk", "Ship release", "Buy eggs"}},
		{"search is case-insensitive", Filter{Search: "SHIP"}, []string{"Ship release"}},
		{"search keeps inner spaces", Filter{Search: "BUY "}, []string{"Buy milk", "Buy eggs"}},
		{"search is not trimmed", Filter{Search: "milk "}, []string{}},
		{"blank search is ignored", Filter{Search: "   "}, []string{"Buy milk", "Ship release", "Buy eggs"}},
		{"priority", Filter{Priority: PriorityLow}, []string{"Buy milk", "Buy eggs"}},
		{"priority all", Filter{Priority: PriorityAll}, []string{"Buy milk", "Ship release", "Buy eggs"}},
		{"priority with no match", Filter{Priority: PriorityMedium}, []string{}},
		{"sort puts undated last", Filter{SortByDueDate: true}, []string{"Buy eggs", "Ship release", "Buy milk"}},
		{"search and priority", Filter{Search: "e", Priority: PriorityHigh}, []string{"Ship release"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titles(Project(sampleTasks(), tt.filter))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestProject_SortIsStableForUndated(t *testing.T) {
	in := []Task{
		{ID: "a", Title: "a"},
		{ID: "b", Title: "b", DueDate: "2025-01-02"},
		{ID: "c", Title: "c"},
		{ID: "d", Title: "d", DueDate: "2025-01-01"},
		{ID: "e", Title: "e"},
	}
	got := titles(Project(in, Filter{SortByDueDate: true}))
	want := []string{"d", "b", "a", "c", "e"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestProject_DoesNotMutateInput(t *testing.T) {
	in := sampleTasks()
	snapshot := sampleTasks()

	_ = Project(in, Filter{SortByDueDate: true})

	if !reflect.DeepEqual(in, snapshot) {
		t.Fatalf("input was mutated: %v", titles(in))
	}
}

func TestProject_Deterministic(t *testing.T) {
	f := Filter{Search: "b", SortByDueDate: true}
	first := Project(sampleTasks(), f)
	for i := 0; i < 10; i++ {
		if got := Project(sampleTasks(), f); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, titles(got), titles(first))
		}
	}
}

func TestPartition(t *testing.T) {
	view := Project(sampleTasks(), Filter{SortByDueDate: true})
	cols := Partition(view)

	if got := titles(cols[StatusTodo]); !reflect.DeepEqual(got, []string{"Buy eggs", "Buy milk"}) {
		t.Errorf("unexpected Todo column %v", got)
	}
	if got := titles(cols[StatusDoing]); !reflect.DeepEqual(got, []string{"Ship release"}) {
		t.Errorf("unexpected Doing column %v", got)
	}
	if cols[StatusDone] == nil || len(cols[StatusDone]) != 0 {
		t.Errorf("Done column should be present and empty")
	}

	counts := cols.Counts()
	if counts[StatusTodo] != 2 || counts[StatusDoing] != 1 || counts[StatusDone] != 0 {
		t.Errorf("unexpected counts %v", counts)
	}
}

func TestViewState(t *testing.T) {
	var v ViewState
	if got := v.Filter(); got.Priority != PriorityAll || got.Search != "" || got.SortByDueDate {
		t.Fatalf("unexpected zero filter %+v", got)
	}

	v.SetSearch("buy")
	v.SetPriority(PriorityLow)
	v.SetSortByDueDate(true)
	want := Filter{Search: "buy", Priority: PriorityLow, SortByDueDate: true}
	if got := v.Filter(); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	v.Set(Filter{Search: "x"})
	if got := v.Filter(); got != (Filter{Search: "x", Priority: PriorityAll}) {
		t.Fatalf("unexpected filter after Set: %+v", got)
	}
}

func TestViewCache_RecomputesOnVersionOrFilterChange(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add(NewTask{Title: "Buy milk", Priority: PriorityLow})
	var c ViewCache

	f := Filter{Search: "buy"}
	first := c.Get(s, f)
	_ = c.Get(s, f)
	if c.Computes() != 1 {
		t.Fatalf("expected a cache hit, computes=%d", c.Computes())
	}

	s.Add(NewTask{Title: "Buy eggs"})
	second := c.Get(s, f)
	if c.Computes() != 2 {
		t.Fatalf("mutation should invalidate, computes=%d", c.Computes())
	}
	if len(first) != 1 || len(second) != 2 {
		t.Fatalf("unexpected views %v / %v", titles(first), titles(second))
	}

	_ = c.Get(s, Filter{Search: "buy", Priority: PriorityLow})
	if c.Computes() != 3 {
		t.Fatalf("filter change should recompute, computes=%d", c.Computes())
	}

	c.Invalidate()
	_ = c.Get(s, Filter{Search: "buy", Priority: PriorityLow})
	if c.Computes() != 4 {
		t.Fatalf("explicit invalidation should recompute, computes=%d", c.Computes())
	}
}

func TestViewCache_ReturnsCopies(t *testing.T) {
	s, _ := newTestStore(t)
	s.Add(NewTask{Title: "keep"})
	var c ViewCache

	v := c.Get(s, Filter{})
	v[0].Title = "mutated"

	if got := c.Get(s, Filter{}); got[0].Title != "keep" {
		t.Fatalf("cache handed out its backing slice")
	}
}
