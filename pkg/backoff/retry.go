/*
 * Copyright (C) 2025-2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package backoff

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const DefaultMaxTries = 3

// Retry executes an operation with exponential backoff until it succeeds or
// maxElapsedTime is reached. Used for outbound reads only; writes are never
// retried.
func Retry(op backoff.Operation, maxElapsedTime, maxInterval time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsedTime
	b.MaxInterval = maxInterval
	return backoff.Retry(op, b)
}

// RetryN executes an operation with exponential backoff and at most n
// attempts.
func RetryN(op backoff.Operation, n uint64) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	return backoff.Retry(op, backoff.WithMaxRetries(b, n-1))
}

// Permanent marks an error as non-retryable, stopping Retry/RetryN early.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
