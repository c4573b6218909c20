package retriever

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/Ayash-Bera/device-advisor/internal/metrics"
	"github.com/Ayash-Bera/device-advisor/internal/models"
	"github.com/sirupsen/logrus"
)

// RetryPolicy bounds how remote backends retry a failed search.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Sleep waits between attempts. Nil means a context aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Delay returns the wait after the given attempt (1-based):
// base*2^(attempt-1), clamped to [BaseDelay, MaxDelay].
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if d < p.BaseDelay {
		d = p.BaseDelay
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// statusError is a non-2xx answer from a search backend.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("search backend returned status %d: %s", e.Code, e.Body)
}

// permanentError stops the retry loop immediately.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

func retryable(err error) bool {
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	var status *statusError
	if errors.As(err, &status) {
		return status.Code >= 500 || status.Code == http.StatusTooManyRequests
	}
	// Transport failures and per-attempt timeouts.
	return true
}

// Do runs op until it succeeds, fails permanently, the caller's context
// ends or MaxAttempts is reached.
func (p RetryPolicy) Do(ctx context.Context, logger *logrus.Logger, backend string, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op(ctx)
		if err == nil {
			metrics.RetrievalAttempts.WithLabelValues(backend, "success").Inc()
			return nil
		}
		lastErr = err

		// The caller went away; the failure is theirs, not the backend's.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if !retryable(err) {
			metrics.RetrievalAttempts.WithLabelValues(backend, "rejected").Inc()
			return classify(err)
		}

		metrics.RetrievalAttempts.WithLabelValues(backend, "error").Inc()
		if attempt == attempts {
			break
		}

		delay := p.Delay(attempt)
		logger.WithFields(logrus.Fields{
			"backend": backend,
			"attempt": attempt,
			"delay":   delay,
			"error":   err.Error(),
		}).Warn("Retrying search request")

		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w: %s failed after %d attempts: %v", models.ErrRetrievalTransport, backend, attempts, lastErr)
}

// classify maps a non-retryable failure onto the error taxonomy.
// Rejected credentials are a configuration problem.
func classify(err error) error {
	var status *statusError
	if errors.As(err, &status) && (status.Code == http.StatusUnauthorized || status.Code == http.StatusForbidden) {
		return fmt.Errorf("%w: search credentials rejected: %v", models.ErrConfiguration, err)
	}
	if errors.Is(err, models.ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrRetrievalTransport, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
