package core

import (
	"errors"
	"fmt"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeConfigFileUnreadable = "CONFIG_FILE_UNREADABLE"
	ErrCodeConfigFileInvalid    = "CONFIG_FILE_INVALID"
	ErrCodeMissingConfig        = "MISSING_CONFIG"
	ErrCodeInvalidSize          = "INVALID_SIZE"
	ErrCodeInvalidFormat        = "INVALID_FORMAT"
	ErrCodeInvalidPattern       = "INVALID_PATTERN"
	ErrCodeInvalidConcurrency   = "INVALID_CONCURRENCY"
	ErrCodeInvalidAlgorithm     = "INVALID_FINGERPRINT_ALGORITHM"
)

// ErrConfigFileUnreadable returns an error for a config file that cannot be read
func ErrConfigFileUnreadable(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeConfigFileUnreadable,
		Message: fmt.Sprintf("Cannot read configuration file %s: %s", path, reason),
		Action:  "Check the --config path or remove the flag to use defaults",
	}
}

// ErrConfigFileInvalid returns an error for a config file that is not valid YAML
func ErrConfigFileInvalid(path string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeConfigFileInvalid,
		Message: fmt.Sprintf("Invalid configuration file %s: %s", path, reason),
		Action:  "Fix the YAML syntax; directory keys accept a string or a list of strings",
	}
}

// ErrMissingConfig returns an error for missing required configuration
func ErrMissingConfig(key string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeMissingConfig,
		Message: fmt.Sprintf("Missing required configuration: %s", key),
		Action:  fmt.Sprintf("Set %s in the configuration file or environment", key),
	}
}

// ErrInvalidSize returns an error for a non-positive conversion size
func ErrInvalidSize(size int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidSize,
		Message: fmt.Sprintf("Invalid conversion size %d", size),
		Action:  "Set conversionSizes to positive pixel values, e.g. [240, 480, 768]",
	}
}

// ErrInvalidFormat returns an error for an output format no encoder handles
func ErrInvalidFormat(format string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidFormat,
		Message: fmt.Sprintf("Unsupported output file type %q: %s", format, reason),
		Action:  "Use one of .avif, .webp, .jpg, .jpeg, .png, .gif, .tiff, .bmp",
	}
}

// ErrInvalidPattern returns an error for an unusable image tag pattern
func ErrInvalidPattern(pattern string, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidPattern,
		Message: fmt.Sprintf("Invalid imgTagRegex %q: %s", pattern, reason),
		Action:  "Use a pattern whose first capture group is the src attribute value",
	}
}

// ErrInvalidConcurrency returns an error for a concurrency bound below one
func ErrInvalidConcurrency(n int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidConcurrency,
		Message: fmt.Sprintf("Invalid maxConcurrency %d", n),
		Action:  "Set maxConcurrency to 1 or more",
	}
}

// ErrInvalidAlgorithm returns an error for an unknown fingerprint algorithm
func ErrInvalidAlgorithm(name string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidAlgorithm,
		Message: fmt.Sprintf("Unknown fingerprintAlgorithm %q", name),
		Action:  "Use string31 (default) or blake3",
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so
func IsConfigError(err error) (*ConfigError, bool) {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}

// GenerationError reports a variant that could not be decoded, encoded or
// written. Variants written before the failure stay on disk.
type GenerationError struct {
	Source string // Source image path
	Target string // Variant path being produced, empty when the source itself failed
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("generate variants of %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("generate %s from %s: %v", e.Target, e.Source, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// RewriteError reports an HTML document that could not be read or written.
type RewriteError struct {
	Path string // Document path
	Op   string // "read", "write", "resolve"
	Err  error
}

func (e *RewriteError) Error() string {
	return fmt.Sprintf("%s html %s: %v", e.Op, e.Path, e.Err)
}

func (e *RewriteError) Unwrap() error { return e.Err }
