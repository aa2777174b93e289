package clock

import "time"

// SystemClock reads the wall clock in UTC. Calendar dates are derived from it,
// so handlers never see local time.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }
