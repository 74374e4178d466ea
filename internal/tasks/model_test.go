package tasks

import (
	"reflect"
	"testing"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", []string{}},
		{" , ,", []string{}},
		{"work", []string{"work"}},
		{" work , home,work ,  urgent ", []string{"work", "home", "urgent"}},
		{"b,a,b,a", []string{"b", "a"}},
	}
	for _, tt := range tests {
		if got := ParseTags(tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseTags(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestTaskDue(t *testing.T) {
	if _, ok := (Task{}).Due(); ok {
		t.Errorf("empty due date should be absent")
	}
	if _, ok := (Task{DueDate: "next week"}).Due(); ok {
		t.Errorf("unparseable due date should be absent")
	}
	d, ok := Task{DueDate: "2025-12-01"}.Due()
	if !ok || d.Year() != 2025 || d.Month() != 12 || d.Day() != 1 {
		t.Errorf("unexpected due date %v ok=%v", d, ok)
	}
}

func TestEnums(t *testing.T) {
	for _, s := range Statuses {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("Blocked").Valid() {
		t.Errorf("unknown status accepted")
	}
	if !PriorityHigh.Valid() || PriorityAll.Valid() || Priority("Urgent").Valid() {
		t.Errorf("unexpected priority validity")
	}
}
