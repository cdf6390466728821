package fetcher

import "github.com/cloo-solutions/docqa/internal/domain"

type resultKind int

const (
	resultOK resultKind = iota
	resultRetryable
	resultFatal
)

type failureKind int

const (
	failureConnection failureKind = iota
	failureTimeout
	failureStatus
)

// attemptResult is the outcome of a single download attempt.
type attemptResult struct {
	kind    resultKind
	failure failureKind
	body    []byte
	err     error
}

func retryable(failure failureKind, err error) attemptResult {
	return attemptResult{kind: resultRetryable, failure: failure, err: err}
}

func fatal(err error) attemptResult {
	return attemptResult{kind: resultFatal, err: err}
}

// terminal converts a retryable failure into the error reported once the
// attempt budget is spent.
func (r attemptResult) terminal() error {
	switch r.failure {
	case failureTimeout:
		return domain.ErrSourceTimeout.Wrap(r.err)
	case failureConnection:
		return domain.ErrUnreachableSource.Wrap(r.err)
	default:
		return domain.ErrUpstream.Wrap(r.err)
	}
}
