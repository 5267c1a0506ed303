package core

import "time"

// Clock is injected rather than calling time.Now() directly, the same way
// the teacher injects its HTTP transport (fetch.WithHTTPClient) instead of
// reaching for http.DefaultClient. WithClock substitutes another source,
// such as a fixed clock.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
