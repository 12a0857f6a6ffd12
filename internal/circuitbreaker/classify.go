package circuitbreaker

import (
	"context"
	"errors"
	"os"
)

// httpStatusError is implemented by edge.StatusError.
type httpStatusError interface {
	HTTPStatus() int
}

// ClassifyError returns the weight an outcome adds to the error rate:
//   - nil, caller cancellation, 4xx other than 429 -> 0
//   - 429 -> 0.5
//   - 5xx, transport errors -> 1.0
//   - timeout -> 1.5
func ClassifyError(err error) float64 {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return 1.5
	}
	var he httpStatusError
	if errors.As(err, &he) {
		return classifyStatus(he.HTTPStatus())
	}
	return 1.0
}

func classifyStatus(code int) float64 {
	switch {
	case code == 429:
		return 0.5
	case code >= 500:
		return 1.0
	default:
		return 0
	}
}
