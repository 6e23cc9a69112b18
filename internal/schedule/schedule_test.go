package schedule

import (
	"testing"
	"time"

	"amaze/internal/models"
)

func date(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, models.Taipei)
	if err != nil {
		panic(err)
	}
	return t
}

func TestDefaultWeekdaySlots(t *testing.T) {
	w := Default()
	slots := w.SlotsForDate(date("2026-01-05")) // Monday

	if len(slots) != 17 {
		t.Fatalf("weekday slots = %d, want 17: %v", len(slots), slots)
	}
	if slots[0] != "10:00" {
		t.Errorf("first slot = %s, want 10:00", slots[0])
	}
	if slots[len(slots)-1] != "19:30" {
		t.Errorf("last slot = %s, want 19:30", slots[len(slots)-1])
	}

	excluded := []string{"12:30", "13:00", "13:30", "20:00", "20:30"}
	for _, s := range excluded {
		for _, got := range slots {
			if got == s {
				t.Errorf("slot %s should be excluded", s)
			}
		}
	}

	// 14:00 sits at the end of the lunch exclusion but is restored.
	if !w.HasSlot(date("2026-01-05"), "14:00") {
		t.Error("14:00 should be restored by the include override")
	}
}

func TestDefaultSaturdaySlots(t *testing.T) {
	w := Default()
	slots := w.SlotsForDate(date("2026-01-10")) // Saturday

	if len(slots) != 11 {
		t.Fatalf("saturday slots = %d, want 11: %v", len(slots), slots)
	}
	if slots[0] != "12:00" {
		t.Errorf("first slot = %s, want 12:00", slots[0])
	}
	if slots[len(slots)-1] != "17:00" {
		t.Errorf("last slot = %s, want 17:00", slots[len(slots)-1])
	}
}

func TestDefaultSundayClosed(t *testing.T) {
	w := Default()
	sunday := date("2026-01-11")

	if !w.IsClosed(sunday) {
		t.Error("sunday should be closed")
	}
	if slots := w.SlotsForDate(sunday); slots != nil {
		t.Errorf("sunday slots = %v, want none", slots)
	}
	if w.HasSlot(sunday, "12:00") {
		t.Error("closed day should have no slots")
	}
}

func TestSlotsAreDeterministic(t *testing.T) {
	w := Default()
	d := date("2026-01-05")

	first := w.SlotsForDate(d)
	for i := 0; i < 5; i++ {
		again := w.SlotsForDate(d)
		if len(again) != len(first) {
			t.Fatalf("run %d: %d slots, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: slot[%d] = %s, want %s", i, j, again[j], first[j])
			}
		}
	}
}

func TestSlotDuration(t *testing.T) {
	if got := Default().SlotDuration(); got != time.Hour {
		t.Errorf("SlotDuration = %v, want 1h", got)
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		spec DaySpec
	}{
		{"bad open", DaySpec{Open: "25:00", Close: "18:00"}},
		{"bad close", DaySpec{Open: "10:00", Close: "xx"}},
		{"close before open", DaySpec{Open: "18:00", Close: "10:00"}},
		{"bad exclude", DaySpec{Open: "10:00", Close: "18:00", Exclude: []RangeSpec{{From: "12:00", To: "11:00"}}}},
		{"bad include", DaySpec{Open: "10:00", Close: "18:00", Include: []string{"nope"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(map[time.Weekday]DaySpec{time.Monday: tt.spec}, 30, 60)
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewMissingWeekdaysAreClosed(t *testing.T) {
	w, err := New(map[time.Weekday]DaySpec{time.Monday: {Open: "09:00", Close: "12:00"}}, 30, 60)
	if err != nil {
		t.Fatal(err)
	}
	if w.IsClosed(date("2026-01-05")) {
		t.Error("monday should be open")
	}
	if !w.IsClosed(date("2026-01-10")) {
		t.Error("saturday should be closed when unspecified")
	}
	if got := w.SlotsForDate(date("2026-01-05")); len(got) != 6 {
		t.Errorf("slots = %v, want 6 starts from 09:00 to 11:30", got)
	}
}
