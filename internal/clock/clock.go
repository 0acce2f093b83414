// Package clock lets services ask for "now" without calling time.Now
// directly, so tests can pin the current instant.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

// Real is the wall clock. Only cmd/ should construct it.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fixed always reports T.
type Fixed struct {
	T time.Time
}

func (c Fixed) Now() time.Time { return c.T }

// Func adapts a function, handy for clocks that advance during a test.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

func NewReal() Clock { return Real{} }

func NewFixed(t time.Time) Clock { return Fixed{T: t} }
