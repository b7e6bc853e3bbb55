package frame

import (
	"errors"
	"math"
	"time"
)

// Resampler converts step-cadence output to another cadence.
type Resampler interface {
	Resample(f *Frame, step time.Duration) (*Frame, error)
}

// MeanResampler buckets rows into windows of the target step anchored at the
// first row. Numeric columns take the mean of non-null values, categorical
// columns the last non-null label. Empty buckets are dropped.
type MeanResampler struct{}

func (MeanResampler) Resample(f *Frame, step time.Duration) (*Frame, error) {
	if step <= 0 {
		return nil, errors.New("resample: step must be positive")
	}
	if f.Len() == 0 {
		return f, nil
	}

	origin := f.Time(0)
	var starts []time.Time
	var bounds [][2]int
	for i := 0; i < f.Len(); {
		k := f.Time(i).Sub(origin) / step
		start := origin.Add(k * step)
		end := start.Add(step)
		j := i
		for j < f.Len() && f.Time(j).Before(end) {
			j++
		}
		starts = append(starts, start)
		bounds = append(bounds, [2]int{i, j})
		i = j
	}

	out := New(starts)
	for _, s := range f.order {
		if col, ok := f.floats[s]; ok {
			values := make([]float64, len(bounds))
			for b, r := range bounds {
				var sum float64
				var n int
				for i := r[0]; i < r[1]; i++ {
					if !math.IsNaN(col[i]) {
						sum += col[i]
						n++
					}
				}
				if n == 0 {
					values[b] = math.NaN()
				} else {
					values[b] = sum / float64(n)
				}
			}
			out.SetFloat(s, values)
			continue
		}
		col := f.texts[s]
		values := make([]string, len(bounds))
		for b, r := range bounds {
			for i := r[0]; i < r[1]; i++ {
				if col[i] != "" {
					values[b] = col[i]
				}
			}
		}
		out.SetText(s, values)
	}
	return out, nil
}
