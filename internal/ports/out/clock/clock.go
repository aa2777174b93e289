package clock

import "time"

// Clock is the application's source of "now". Subscription expiry, invitation
// deadlines and report periods all read it.
type Clock interface {
	Now() time.Time
}
