package availability

import (
	"testing"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
)

func clock(t *testing.T, s string) model.Clock {
	t.Helper()
	c, err := model.ParseClock(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return c
}

func labels(slots []model.Clock) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.String())
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSlots_SkipsOccupied(t *testing.T) {
	win := Window{Start: clock(t, "09:00"), End: clock(t, "10:00")}
	got := labels(Slots(30, []Window{win}, NewOccupied(clock(t, "09:30"))))
	if !equal(got, []string{"09:00"}) {
		t.Fatalf("expected [09:00], got %v", got)
	}
}

func TestSlots_CountMatchesFloor(t *testing.T) {
	cases := []struct {
		start, end string
		duration   int
		want       int
	}{
		{"09:00", "10:00", 30, 2},
		{"09:00", "10:00", 25, 2},
		{"09:00", "09:45", 45, 1},
		{"09:00", "09:40", 45, 0},
		{"08:00", "17:00", 60, 9},
	}
	for _, tc := range cases {
		win := Window{Start: clock(t, tc.start), End: clock(t, tc.end)}
		got := Slots(tc.duration, []Window{win}, nil)
		if len(got) != tc.want {
			t.Fatalf("%s-%s/%d: expected %d slots, got %d", tc.start, tc.end, tc.duration, tc.want, len(got))
		}
		if Capacity(tc.duration, win) != tc.want {
			t.Fatalf("%s-%s/%d: capacity mismatch", tc.start, tc.end, tc.duration)
		}
	}
}

func TestSlots_MultipleWindowsChronological(t *testing.T) {
	afternoon := Window{Start: clock(t, "14:00"), End: clock(t, "15:00")}
	morning := Window{Start: clock(t, "09:00"), End: clock(t, "10:00")}
	got := labels(Slots(30, []Window{afternoon, morning}, nil))
	want := []string{"09:00", "09:30", "14:00", "14:30"}
	if !equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSlots_OverlappingWindowsInterleave(t *testing.T) {
	a := Window{Start: clock(t, "09:00"), End: clock(t, "10:00")}
	b := Window{Start: clock(t, "09:15"), End: clock(t, "10:15")}
	got := labels(Slots(30, []Window{a, b}, nil))
	want := []string{"09:00", "09:15", "09:30", "09:45"}
	if !equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSlots_IdenticalRulesAreNotDeduplicated(t *testing.T) {
	w := Window{Start: clock(t, "09:00"), End: clock(t, "10:00")}
	got := labels(Slots(60, []Window{w, w}, nil))
	if !equal(got, []string{"09:00", "09:00"}) {
		t.Fatalf("expected duplicate emission, got %v", got)
	}
}

func TestSlots_NoWindowsOrBadDuration(t *testing.T) {
	if got := Slots(30, nil, nil); len(got) != 0 {
		t.Fatalf("expected no slots, got %v", got)
	}
	w := Window{Start: clock(t, "09:00"), End: clock(t, "10:00")}
	if got := Slots(0, []Window{w}, nil); len(got) != 0 {
		t.Fatalf("expected no slots for zero duration, got %v", got)
	}
}

func TestIter_RestartableAndStoppable(t *testing.T) {
	w := Window{Start: clock(t, "09:00"), End: clock(t, "12:00")}
	seq := Iter(30, []Window{w}, nil)

	var first []model.Clock
	for c := range seq {
		first = append(first, c)
		if len(first) == 2 {
			break
		}
	}
	if len(first) != 2 {
		t.Fatalf("expected early stop after 2, got %d", len(first))
	}

	var all []model.Clock
	for c := range seq {
		all = append(all, c)
	}
	if len(all) != 6 || all[0] != first[0] {
		t.Fatalf("expected a fresh full run of 6 slots, got %v", labels(all))
	}
}

func TestFreeFiltersCandidates(t *testing.T) {
	candidates := Slots(30, []Window{{Start: 540, End: 660}}, nil)
	var got []model.Clock
	for c := range Free(candidates, NewOccupied(570, 630)) {
		got = append(got, c)
	}
	want := []model.Clock{540, 600}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Free = %v, want %v", got, want)
	}
}
