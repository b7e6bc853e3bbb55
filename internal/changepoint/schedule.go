package changepoint

import (
	"sort"
	"time"

	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

// transition is a schedule change observed between two consecutive samples
// exactly one step apart.
type transition struct {
	Time time.Time
	model.Slot
}

type observation struct {
	Time time.Time
	Name string
}

// discrepancy is a difference between the active program and one window of
// observed transitions.
type discrepancy struct {
	Time time.Time
	Slot model.Slot
	// Observed is true for a transition the program lacks, false for a
	// program slot that did not recur.
	Observed bool
}

// scheduleScan holds the non-null schedule samples and the transitions
// derived from them.
type scheduleScan struct {
	step        time.Duration
	obs         []observation
	byTime      map[int64]string
	transitions []transition
}

// ExtractSchedules reconstructs the weekly program timeline from the
// categorical schedule column of f, sampled at step.
func ExtractSchedules(f *frame.Frame, step time.Duration) model.Series[model.WeeklyProgram] {
	s := newScheduleScan(f, step)
	if len(s.obs) == 0 {
		return nil
	}
	first := s.obs[0]
	if len(s.transitions) == 0 {
		return model.Series[model.WeeklyProgram]{{Time: first.Time, Value: model.AllWeek(first.Name)}}
	}

	start := s.transitions[0].Time
	active := s.derive(start)
	series := model.Series[model.WeeklyProgram]{{Time: first.Time, Value: active.Clone()}}
	last := s.transitions[len(s.transitions)-1].Time

	for ws := start; !ws.After(last); {
		changed := false
		patched := make(map[[2]int]bool)

		for _, d := range compare(active, s.window(ws), ws) {
			key := [2]int{d.Slot.Day, d.Slot.Minute}
			if d.Observed {
				if s.gapExplained(active, d) || !d.Time.After(series[len(series)-1].Time) {
					active.Mark(d.Slot.Name, d.Slot.Minute, d.Slot.Day)
					series[len(series)-1].Value = active.Clone()
					patched[key] = true
					continue
				}
			} else {
				if patched[key] || !s.replaced(d) || !d.Time.After(series[len(series)-1].Time) {
					continue
				}
			}

			active = s.derive(d.Time)
			series = append(series, model.ChangePoint[model.WeeklyProgram]{Time: d.Time, Value: active.Clone()})
			ws = d.Time
			changed = true
			break
		}

		if !changed {
			ws = ws.AddDate(0, 0, model.DaysPerWeek)
		}
	}
	return series
}

func newScheduleScan(f *frame.Frame, step time.Duration) *scheduleScan {
	s := &scheduleScan{step: step, byTime: make(map[int64]string)}
	names := f.Text(model.SignalSchedule)
	for i, name := range names {
		if name == "" {
			continue
		}
		t := f.Time(i)
		s.obs = append(s.obs, observation{Time: t, Name: name})
		s.byTime[t.UnixNano()] = name
	}

	for i := 1; i < len(s.obs); i++ {
		prev, cur := s.obs[i-1], s.obs[i]
		if cur.Name == prev.Name || cur.Time.Sub(prev.Time) != step {
			continue
		}
		s.transitions = append(s.transitions, transition{
			Time: cur.Time,
			Slot: model.Slot{Day: model.Weekday(cur.Time), Minute: model.MinuteOfDay(cur.Time), Name: cur.Name},
		})
	}
	return s
}

// window returns the transitions within [from, from+7d).
func (s *scheduleScan) window(from time.Time) []transition {
	lo := sort.Search(len(s.transitions), func(i int) bool {
		return !s.transitions[i].Time.Before(from)
	})
	to := from.AddDate(0, 0, model.DaysPerWeek)
	hi := sort.Search(len(s.transitions), func(i int) bool {
		return !s.transitions[i].Time.Before(to)
	})
	return s.transitions[lo:hi]
}

// derive builds a program from the week of transitions starting at from.
// Days never observed in that week stay off.
func (s *scheduleScan) derive(from time.Time) model.WeeklyProgram {
	var program model.WeeklyProgram
	for _, tr := range s.window(from) {
		program.Mark(tr.Name, tr.Minute, tr.Day)
	}
	if len(program) == 0 {
		return model.AllWeek(s.nameInEffect(from))
	}
	return program
}

func (s *scheduleScan) name(t time.Time) (string, bool) {
	name, ok := s.byTime[t.UnixNano()]
	return name, ok
}

// nameInEffect returns the latest observed name at or before t.
func (s *scheduleScan) nameInEffect(t time.Time) string {
	idx := sort.Search(len(s.obs), func(i int) bool {
		return s.obs[i].Time.After(t)
	})
	if idx == 0 {
		return s.obs[0].Name
	}
	return s.obs[idx-1].Name
}

// gapExplained reports whether an unexpected transition was missed by the
// program because of a data gap: the same wall-clock slot one week earlier
// was sampled and shows a value the program would not have predicted. When
// the slot sample itself is missing, the sample one step later stands in for
// it. A week without either sample is not evidence of a gap.
func (s *scheduleScan) gapExplained(program model.WeeklyProgram, d discrepancy) bool {
	at := d.Time.AddDate(0, 0, -model.DaysPerWeek)
	earlier, ok := s.name(at)
	if !ok {
		at = at.Add(s.step)
		if earlier, ok = s.name(at); !ok {
			return false
		}
	}
	predicted, _ := program.NameAt(model.Weekday(at), model.MinuteOfDay(at))
	return earlier != predicted
}

// replaced reports whether a program slot that did not recur was observed
// to be genuinely replaced. A slot hidden by a gap, where either sample
// around the transition is missing, is assumed to continue.
func (s *scheduleScan) replaced(d discrepancy) bool {
	at, ok := s.name(d.Time)
	if !ok {
		return false
	}
	if _, ok := s.name(d.Time.Add(-s.step)); !ok {
		return false
	}
	return at != d.Slot.Name
}

// compare outer-joins the program against observed transitions of the week
// starting at ws on (day, minute, name). Results are ordered by time with
// observed transitions first at equal times.
func compare(program model.WeeklyProgram, window []transition, ws time.Time) []discrepancy {
	expected := make(map[model.Slot]bool)
	for _, slot := range program.Slots() {
		expected[slot] = true
	}
	observed := make(map[model.Slot]bool, len(window))
	for _, tr := range window {
		observed[tr.Slot] = true
	}

	var out []discrepancy
	for _, tr := range window {
		if !expected[tr.Slot] {
			out = append(out, discrepancy{Time: tr.Time, Slot: tr.Slot, Observed: true})
		}
	}
	for slot := range expected {
		if !observed[slot] {
			out = append(out, discrepancy{Time: slotTime(ws, slot), Slot: slot})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		if out[i].Observed != out[j].Observed {
			return out[i].Observed
		}
		return out[i].Slot.Name < out[j].Slot.Name
	})
	return out
}

// slotTime returns the occurrence of slot within [ws, ws+7d).
func slotTime(ws time.Time, slot model.Slot) time.Time {
	midnight := time.Date(ws.Year(), ws.Month(), ws.Day(), 0, 0, 0, 0, ws.Location())
	days := (slot.Day - model.Weekday(ws) + model.DaysPerWeek) % model.DaysPerWeek
	t := midnight.AddDate(0, 0, days).Add(time.Duration(slot.Minute) * time.Minute)
	if t.Before(ws) {
		t = t.AddDate(0, 0, model.DaysPerWeek)
	}
	return t
}
