package core

import (
	"regexp"

	"imgresponsiver/codec"
	"imgresponsiver/fingerprint"
)

// ValidationResult represents the result of a configuration validation check.
type ValidationResult struct {
	Valid   bool
	Message string
	Error   error
}

func valid(message string) ValidationResult {
	return ValidationResult{Valid: true, Message: message}
}

func invalid(message string, err error) ValidationResult {
	return ValidationResult{Valid: false, Message: message, Error: err}
}

// ConfigValidator composes validation atoms to provide comprehensive configuration checking.
// This is a molecule that checks each group of settings independently.
type ConfigValidator struct {
	cfg *Config
}

// NewConfigValidator creates a ConfigValidator for cfg.
func NewConfigValidator(cfg *Config) *ConfigValidator {
	return &ConfigValidator{cfg: cfg}
}

// CheckImageSources validates the image directories and extensions.
func (v *ConfigValidator) CheckImageSources() ValidationResult {
	if len(v.cfg.ImagesDirs) == 0 {
		return invalid("Image directories not configured", ErrMissingConfig("imagesDirs"))
	}
	if len(v.cfg.ImageExtensions) == 0 {
		return invalid("Image extensions not configured", ErrMissingConfig("imageExtensions"))
	}
	return valid("Image sources configured")
}

// CheckConversionSizes validates that at least one size is configured and
// every size is positive.
func (v *ConfigValidator) CheckConversionSizes() ValidationResult {
	if len(v.cfg.ConversionSizes) == 0 {
		return invalid("Conversion sizes not configured", ErrMissingConfig("conversionSizes"))
	}
	for _, size := range v.cfg.ConversionSizes {
		if size <= 0 {
			return invalid("Conversion size invalid", ErrInvalidSize(size))
		}
	}
	return valid("Conversion sizes valid")
}

// CheckOutputFormats validates that every output file type has an encoder.
func (v *ConfigValidator) CheckOutputFormats() ValidationResult {
	for _, ext := range v.cfg.OutputFileTypes {
		if _, err := codec.ParseFormat(ext); err != nil {
			return invalid("Output file type unsupported", ErrInvalidFormat(ext, err.Error()))
		}
	}
	if v.cfg.OutputDir == "" {
		return invalid("Output directory not configured", ErrMissingConfig("outputDir"))
	}
	return valid("Output formats valid")
}

// CheckHTML validates the HTML file type and the image tag pattern. The
// pattern must compile and expose at least one capture group for the src.
func (v *ConfigValidator) CheckHTML() ValidationResult {
	if v.cfg.HTMLFileType == "" {
		return invalid("HTML file type not configured", ErrMissingConfig("htmlFileType"))
	}
	re, err := regexp.Compile(v.cfg.ImgTagRegex)
	if err != nil {
		return invalid("Image tag pattern invalid", ErrInvalidPattern(v.cfg.ImgTagRegex, err.Error()))
	}
	if re.NumSubexp() < 1 {
		return invalid("Image tag pattern invalid", ErrInvalidPattern(v.cfg.ImgTagRegex, "no capture group"))
	}
	return valid("HTML settings valid")
}

// CheckProcessing validates the concurrency bound and fingerprint algorithm.
func (v *ConfigValidator) CheckProcessing() ValidationResult {
	if v.cfg.MaxConcurrency < 1 {
		return invalid("Concurrency invalid", ErrInvalidConcurrency(v.cfg.MaxConcurrency))
	}
	if _, err := fingerprint.ForAlgorithm(v.cfg.FingerprintAlgorithm); err != nil {
		return invalid("Fingerprint algorithm unknown", ErrInvalidAlgorithm(v.cfg.FingerprintAlgorithm))
	}
	return valid("Processing settings valid")
}

// ValidateAll runs all configuration checks and returns all results.
func (v *ConfigValidator) ValidateAll() []ValidationResult {
	return []ValidationResult{
		v.CheckImageSources(),
		v.CheckConversionSizes(),
		v.CheckOutputFormats(),
		v.CheckHTML(),
		v.CheckProcessing(),
	}
}

// GetFirstError returns the first validation error, or nil if all checks pass.
func (v *ConfigValidator) GetFirstError() error {
	for _, result := range v.ValidateAll() {
		if !result.Valid {
			return result.Error
		}
	}
	return nil
}

// CountInvalid returns the number of failing checks.
func (v *ConfigValidator) CountInvalid() int {
	count := 0
	for _, result := range v.ValidateAll() {
		if !result.Valid {
			count++
		}
	}
	return count
}

// Validate returns the first *ConfigError found in c, or nil.
func (c *Config) Validate() error {
	return NewConfigValidator(c).GetFirstError()
}
