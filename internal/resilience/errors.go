package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/jackc/pgx/v5/pgconn"
)

// TransientError marks an error as retryable regardless of its cause.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient marks err as retryable. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

var awsRetryables = retry.IsErrorRetryables(retry.DefaultRetryables)

var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"i/o timeout",
	"temporary failure in name resolution",
	"the database system is starting up",
	"too many clients already",
}

// IsTransient reports whether err is worth retrying: marked errors, network
// timeouts, refused or reset connections, Postgres errors pgconn deems safe
// to retry, and errors the AWS SDK would retry itself.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}
	if awsRetryables.IsErrorRetryable(err) == aws.TrueTernary {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientMessages {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
