package availability

import (
	"iter"

	"github.com/NahunMenem/TurnosLu/services/booking-service/internal/model"
)

// Window is one schedule rule's [Start, End] range for a given day.
type Window struct {
	Start model.Clock
	End   model.Clock
}

// Occupied is the set of start times already taken by booked or confirmed
// appointments for the day.
type Occupied map[model.Clock]struct{}

func NewOccupied(times ...model.Clock) Occupied {
	o := make(Occupied, len(times))
	for _, t := range times {
		o[t] = struct{}{}
	}
	return o
}

func (o Occupied) Has(c model.Clock) bool {
	_, ok := o[c]
	return ok
}

// Iter yields free slot starts for all windows in chronological order. Each
// window is stepped by durationMins from its start while start+duration fits
// within the window end. Windows are not merged with each other, so identical
// rules produce the same slot twice. Ranging over the result again re-runs the
// generation from scratch.
func Iter(durationMins int, windows []Window, occupied Occupied) iter.Seq[model.Clock] {
	return func(yield func(model.Clock) bool) {
		if durationMins <= 0 {
			return
		}
		next := make([]model.Clock, len(windows))
		for i, w := range windows {
			next[i] = w.Start
		}
		for {
			best := -1
			for i, w := range windows {
				if next[i].Add(durationMins) > w.End {
					continue
				}
				if best == -1 || next[i] < next[best] {
					best = i
				}
			}
			if best == -1 {
				return
			}
			c := next[best]
			next[best] = c.Add(durationMins)
			if occupied.Has(c) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Slots collects Iter into a slice.
func Slots(durationMins int, windows []Window, occupied Occupied) []model.Clock {
	var out []model.Clock
	for c := range Iter(durationMins, windows, occupied) {
		out = append(out, c)
	}
	return out
}

// Capacity is the number of slots a window holds before occupancy is applied.
func Capacity(durationMins int, w Window) int {
	if durationMins <= 0 || w.End <= w.Start {
		return 0
	}
	return int(w.End-w.Start) / durationMins
}

// Free yields the candidates that are not occupied, keeping their order.
func Free(candidates []model.Clock, occupied Occupied) iter.Seq[model.Clock] {
	return func(yield func(model.Clock) bool) {
		for _, c := range candidates {
			if occupied.Has(c) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}
