package uniqueness

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formflow/pkg/submission"
)

// Reserver records a value as taken.
type Reserver interface {
	Reserve(ctx context.Context, value string) error
}

// ReserveOnSubmit wraps next so that after an accepted submission the value
// of field is reserved. Later uniqueness checks for it then fail.
func ReserveOnSubmit(next submission.Sink, reserver Reserver, field string) submission.Sink {
	return submission.SinkFunc(func(ctx context.Context, sub submission.Submission) (submission.Receipt, error) {
		receipt, err := next.Submit(ctx, sub)
		if err != nil {
			return receipt, err
		}
		value, _ := sub.Record[field].(string)
		if value == "" {
			return receipt, nil
		}
		if err := reserver.Reserve(ctx, value); err != nil {
			return receipt, fmt.Errorf("uniqueness: reserve %s: %w", field, err)
		}
		return receipt, nil
	})
}
