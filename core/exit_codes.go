package core

import "errors"

// Exit codes for the application.
// These follow Unix conventions where signal-based exits are 128 + signal number.
const (
	// ExitCodeSuccess indicates the command completed (exit code 0)
	ExitCodeSuccess = 0

	// ExitCodeError indicates an unclassified error (exit code 1)
	ExitCodeError = 1

	// ExitCodeConfig indicates invalid or unreadable configuration
	ExitCodeConfig = 2

	// ExitCodeGeneration indicates a variant could not be generated
	ExitCodeGeneration = 3

	// ExitCodeRewrite indicates an HTML document could not be read or written
	ExitCodeRewrite = 4

	// ExitCodeSIGINT indicates termination due to SIGINT (Ctrl+C)
	// Convention: 128 + 2 (SIGINT) = 130
	ExitCodeSIGINT = 130

	// ExitCodeSIGTERM indicates termination due to SIGTERM
	// Convention: 128 + 15 (SIGTERM) = 143
	ExitCodeSIGTERM = 143
)

// ExitCodeName returns a human-readable name for an exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitCodeSuccess:
		return "success"
	case ExitCodeError:
		return "error"
	case ExitCodeConfig:
		return "configuration error"
	case ExitCodeGeneration:
		return "variant generation failed"
	case ExitCodeRewrite:
		return "html rewrite failed"
	case ExitCodeSIGINT:
		return "interrupted (SIGINT)"
	case ExitCodeSIGTERM:
		return "terminated (SIGTERM)"
	default:
		return "unknown"
	}
}

// ExitCodeFor maps an error returned by a command to its exit code.
// A nil error maps to ExitCodeSuccess.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var configErr *ConfigError
	var genErr *GenerationError
	var rewriteErr *RewriteError
	switch {
	case errors.As(err, &configErr):
		return ExitCodeConfig
	case errors.As(err, &genErr):
		return ExitCodeGeneration
	case errors.As(err, &rewriteErr):
		return ExitCodeRewrite
	default:
		return ExitCodeError
	}
}

// IsSignalExit returns true if the exit code indicates a signal-based termination.
func IsSignalExit(code int) bool {
	return code == ExitCodeSIGINT || code == ExitCodeSIGTERM
}
