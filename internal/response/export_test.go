package response

import "time"

// NewAssemblerAt returns an assembler whose clock is fixed at t.
func NewAssemblerAt(t time.Time) *Assembler {
	return &Assembler{now: func() time.Time { return t }}
}
