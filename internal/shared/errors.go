package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// Executor errors
	ErrTransport          = fmt.Errorf("executor request failed")
	ErrJobReported        = fmt.Errorf("sync job reported failure")
	ErrJobNotFound        = fmt.Errorf("sync job not found")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrRateLimited        = fmt.Errorf("too many sync requests")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrProtocol           = fmt.Errorf("malformed executor response")

	// Orchestration errors. ErrSuperseded is only ever logged.
	ErrSuperseded = fmt.Errorf("sync job superseded")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
