package exitcode

import (
	"os"
	"strings"

	"github.com/felixgeelhaar/auditd/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// AuthError indicates an authentication or authorization failure
	AuthError = 5

	// NetworkError indicates a network connectivity issue, such as a port already in use
	NetworkError = 6

	// ConfigError indicates an invalid configuration or sites file
	ConfigError = 7

	// Interrupted indicates the process was stopped by a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	switch errors.CodeOf(err) {
	case errors.ErrCodeUnauthorized:
		return AuthError
	case errors.ErrCodeConfigInvalid, errors.ErrCodeRegistryInvalid, errors.ErrCodeRegistryDuplicateID,
		errors.ErrCodeFileNotFound, errors.ErrCodeFileReadFailed, errors.ErrCodeFileUnmarshal:
		return ConfigError
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "address already in use") || strings.Contains(errMsg, "connection refused") {
		return NetworkError
	}

	if strings.Contains(errMsg, "unknown command") || strings.Contains(errMsg, "unknown flag") ||
		strings.Contains(errMsg, "invalid argument") || strings.Contains(errMsg, "required flag") {
		return UsageError
	}

	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case ConfigError:
		return "Configuration error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
