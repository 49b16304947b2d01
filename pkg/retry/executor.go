package retry

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff/v4"
)

// Executor runs operations under a retry policy
type Executor struct {
	policy *Policy
}

// NewExecutor creates a new executor for the given policy
func NewExecutor(policy *Policy) *Executor {
	if policy == nil {
		policy = NewPolicy()
	}
	return &Executor{policy: policy}
}

// Policy returns the executor's policy
func (e *Executor) Policy() *Policy {
	return e.policy
}

// Execute runs operation until it succeeds, returns a permanent error, the
// attempt budget is spent or ctx is done. The last error is returned.
func (e *Executor) Execute(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.policy.InitialInterval
	b.Multiplier = e.policy.BackoffCoefficient
	b.MaxInterval = e.policy.MaximumInterval
	b.MaxElapsedTime = 0

	var policy backoff.BackOff = b
	if e.policy.MaximumAttempts > 0 {
		policy = backoff.WithMaxRetries(b, uint64(e.policy.MaximumAttempts-1))
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	return backoff.Permanent(err)
}
