package health

import (
	"context"
	"time"
)

// Result represents the outcome of a single health check attempt
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface all health checkers implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result
}

// Spec configures the health gate for one revision. Immutable, supplied
// by the caller.
type Spec struct {
	// BaseURL is the revision URL the endpoint paths are appended to
	BaseURL string

	// LivenessPath and ReadinessPath are checked in sequence; both must
	// independently succeed for the gate to pass
	LivenessPath  string
	ReadinessPath string

	// MaxRetries is the number of attempts per endpoint before giving up
	MaxRetries int

	// RetryDelay is the fixed delay between attempts. No backoff growth:
	// startup-probe semantics bound the expected wait.
	RetryDelay time.Duration

	// PerRequestTimeout caps each individual HTTP request
	PerRequestTimeout time.Duration
}

// DefaultSpec returns a Spec with sensible defaults for the given base URL
func DefaultSpec(baseURL string) Spec {
	return Spec{
		BaseURL:           baseURL,
		LivenessPath:      "/healthz",
		ReadinessPath:     "/readyz",
		MaxRetries:        3,
		RetryDelay:        5 * time.Second,
		PerRequestTimeout: 10 * time.Second,
	}
}
