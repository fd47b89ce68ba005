package gotap

import "fmt"

// TapError is an error type carrying TAP-service specific information:
// the local error code, the failed job (if any) and the HTTP status the
// service answered with.
type TapError struct {
	Number     int
	HTTPStatus int
	JobID      string
	Message    string
	MessageArgs []interface{}
}

func (te *TapError) Error() string {
	message := te.Message
	if len(te.MessageArgs) > 0 {
		message = fmt.Sprintf(te.Message, te.MessageArgs...)
	}
	if te.JobID != "" {
		return fmt.Sprintf("%06d: job %s: %s", te.Number, te.JobID, message)
	}
	return fmt.Sprintf("%06d: %s", te.Number, message)
}

const (
	// connection

	// ErrCodeEmptyHost is an error code for the case where a DSN doesn't include a host
	ErrCodeEmptyHost = 260001
	// ErrCodeFailedToParsePort is an error code for the case where a DSN includes an invalid port number
	ErrCodeFailedToParsePort = 260002
	// ErrCodeEmptyServerContext is an error code for the case where a DSN doesn't include a server context
	ErrCodeEmptyServerContext = 260003
	// ErrCodeIdleConnection is an error code for the case where a request is issued on a closed connection
	ErrCodeIdleConnection = 260004

	// request/response

	// ErrCodeServiceError is an error code for a non-2xx HTTP answer from the service
	ErrCodeServiceError = 261001
	// ErrCodeQueryStatusError is an error code for a VOTable QUERY_STATUS=ERROR response
	ErrCodeQueryStatusError = 261002
	// ErrCodeMalformedResponse is an error code for a response body that cannot be parsed
	ErrCodeMalformedResponse = 261003
	// ErrCodeRedirectLimit is an error code for a redirect chain longer than the cap
	ErrCodeRedirectLimit = 261004
	// ErrCodeUnsupportedFormat is an error code for an output format the client cannot decode
	ErrCodeUnsupportedFormat = 261005

	// job lifecycle

	// ErrCodeJobFailed is an error code for a job that reached the ERROR phase
	ErrCodeJobFailed = 262001
	// ErrCodeJobAborted is an error code for a job that reached the ABORTED phase
	ErrCodeJobAborted = 262002
	// ErrCodeJobNotFinished is an error code for fetching results of a non-terminal job
	ErrCodeJobNotFinished = 262003
	// ErrCodeMissingJobID is an error code for a job submission answer without a job identifier
	ErrCodeMissingJobID = 262004

	// auth

	// ErrCodeLoginRejected is an error code for rejected credentials
	ErrCodeLoginRejected = 263001
	// ErrCodeNotLoggedIn is an error code for an authenticated-only operation on an anonymous connection
	ErrCodeNotLoggedIn = 263002
)

var (
	// preformatted errors

	// ErrInvalidConn is returned if a request is issued on a closed connection.
	ErrInvalidConn = &TapError{
		Number:  ErrCodeIdleConnection,
		Message: "invalid connection",
	}
	// ErrEmptyHost is returned if a DSN doesn't include a host.
	ErrEmptyHost = &TapError{
		Number:  ErrCodeEmptyHost,
		Message: "host is empty",
	}
	// ErrEmptyServerContext is returned if a DSN doesn't include a server context.
	ErrEmptyServerContext = &TapError{
		Number:  ErrCodeEmptyServerContext,
		Message: "server context is empty",
	}
	// ErrNotLoggedIn is returned if an operation requires a session and none is held.
	ErrNotLoggedIn = &TapError{
		Number:  ErrCodeNotLoggedIn,
		Message: "not logged in",
	}
)
