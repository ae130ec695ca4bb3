// internal/clock/clock.go
//
// Timestamp source for record creation and receipt times.
//
// Context
// -------
// Rows carry their timestamps as text (`created_at`, `received_at`).  The
// format is fixed-width UTC with millisecond precision, so lexical ORDER BY
// on the column equals chronological order in every storage engine.
//
// Notes
// -----
//   - Tests inject a Stepper so ordering assertions never depend on the wall
//     clock resolution.
//   - Oxford commas, two spaces after periods.
package clock

import (
	"sync"
	"time"
)

// Layout is the text form stored in every timestamp column.
const Layout = "2006-01-02 15:04:05.000Z"

// Clock supplies formatted timestamps.
type Clock interface {
	Now() string
}

// Format renders t in the storage layout.
func Format(t time.Time) string { return t.UTC().Format(Layout) }

// System reads the wall clock.
type System struct{}

func (System) Now() string { return Format(time.Now()) }

// Stepper returns Start, Start+Step, Start+2*Step, … on successive calls.
type Stepper struct {
	Start time.Time
	Step  time.Duration

	mu sync.Mutex
	n  int
}

func (s *Stepper) Now() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.Start.Add(time.Duration(s.n) * s.Step)
	s.n++
	return Format(t)
}
