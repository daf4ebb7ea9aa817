package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	svcmetrics "PriceCast/internal/service/metrics"
	"PriceCast/pkg/config"
	xhttp "PriceCast/pkg/http"
	applogger "PriceCast/pkg/logger"
)

// ErrServiceUnavailable is returned while the breaker is open.
var ErrServiceUnavailable = errors.New("analytics service unavailable")

// HTTPServiceBase provides a shared foundation for analytics HTTP clients:
// one HTTP client with retries and one circuit breaker per service.
type HTTPServiceBase struct {
	client  *xhttp.Client
	breaker *gobreaker.CircuitBreaker
	l       *applogger.Logger
}

// NewHTTPServiceBase builds the HTTP client and breaker from config.
func NewHTTPServiceBase(cfg *config.Config, l *applogger.Logger) *HTTPServiceBase {
	if l == nil {
		l = applogger.Nop()
	}
	a := cfg.Analytics
	svcmetrics.Register()

	st := gobreaker.Settings{
		Name:        "analytics",
		MaxRequests: a.Breaker.MaxRequests,
		Interval:    a.Breaker.Interval,
		Timeout:     a.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= a.Breaker.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			svcmetrics.BreakerState.WithLabelValues(name).Set(float64(to))
			l.Warn("analytics breaker state change",
				applogger.String("breaker", name),
				applogger.String("from", from.String()),
				applogger.String("to", to.String()))
		},
	}
	return &HTTPServiceBase{
		client: xhttp.NewClient(
			xhttp.WithBaseURL(a.PythonServiceURL),
			xhttp.WithTimeout(a.Timeout),
			xhttp.WithRetries(a.Retries, 100*time.Millisecond),
		),
		breaker: gobreaker.NewCircuitBreaker(st),
		l:       l,
	}
}

// PostJSON posts payload to path through the breaker and decodes JSON into dest.
// Client errors (4xx) do not count against the breaker.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	start := time.Now()
	var clientErr error
	_, err := b.breaker.Execute(func() (interface{}, error) {
		err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodPost,
			URL:    path,
			Body:   payload,
		}, dest)
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 {
			clientErr = err
			return nil, nil
		}
		return nil, err
	})
	svcmetrics.FitterLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err == nil {
		err = clientErr
	}
	if err != nil {
		svcmetrics.FitterErrors.WithLabelValues(path).Inc()
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("post %s: %w", path, ErrServiceUnavailable)
		}
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}
