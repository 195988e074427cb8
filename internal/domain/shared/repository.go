package shared

import "context"

// SequenceGenerator hands out human-readable document numbers such as
// "SINV-12". Numbers are allocated inside the caller's unit of work, so a
// rolled-back command does not consume a number.
type SequenceGenerator interface {
	Next(ctx context.Context, prefix string) (string, error)
}
