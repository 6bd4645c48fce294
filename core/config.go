package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when no --config flag is given and the file exists.
const DefaultConfigFile = "responsiver.yaml"

// DefaultImgTagRegex locates <img> tags; group 1 captures the src value.
const DefaultImgTagRegex = `<img\s+[^>]*src=["']([^"']+)["'][^>]*>`

// StringList is a list of strings that also accepts a single YAML scalar,
// so `htmlDirs: ./public` and `htmlDirs: [./public, ./src]` both work.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		if single == "" {
			*s = nil
			return nil
		}
		*s = StringList{single}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

// Config holds all configuration values
type Config struct {
	// Source images
	ImagesDirs      StringList `yaml:"imagesDirs"`
	ImageExtensions StringList `yaml:"imageExtensions"`

	// Variants
	ConversionSizes []int      `yaml:"conversionSizes"`
	OutputFileTypes StringList `yaml:"outputFileTypes"`
	OutputDir       string     `yaml:"outputDir"`

	// HTML rewriting
	HTMLDirs     StringList `yaml:"htmlDirs"`
	HTMLFileType string     `yaml:"htmlFileType"`
	ImgTagRegex  string     `yaml:"imgTagRegex"`

	// Processing
	MaxConcurrency       int    `yaml:"maxConcurrency"`
	FingerprintAlgorithm string `yaml:"fingerprintAlgorithm"`

	// Run history (empty disables it)
	HistoryDB string `yaml:"historyDB"`

	// Logging
	LogFile  string `yaml:"logFile"`
	LogLevel string `yaml:"logLevel"`
	DevMode  bool   `yaml:"devMode"`
}

// DefaultConfig returns the zero-config defaults.
func DefaultConfig() *Config {
	return &Config{
		ImagesDirs:           StringList{"src/assets/imgs"},
		ImageExtensions:      StringList{".png", ".jpg", ".jpeg", ".gif", ".webp"},
		ConversionSizes:      []int{240, 480, 768, 1280, 1920},
		OutputFileTypes:      StringList{".avif", ".webp", ".jpg"},
		OutputDir:            "img-responsiver-output",
		HTMLDirs:             StringList{"./", "./src"},
		HTMLFileType:         ".html",
		ImgTagRegex:          DefaultImgTagRegex,
		MaxConcurrency:       runtime.NumCPU(),
		FingerprintAlgorithm: "string31",
		LogLevel:             "info",
	}
}

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return ErrConfigFileUnreadable(path, err.Error())
	}
	return nil
}

// LoadConfig builds the configuration from defaults, then the YAML file at
// path (or DefaultConfigFile when path is empty and the file exists), then
// environment variables. The result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := cfg.mergeFile(path, explicit); err != nil {
		return nil, err
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the keys present in the YAML file onto c.
func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return ErrConfigFileUnreadable(path, err.Error())
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return ErrConfigFileInvalid(path, err.Error())
	}
	return nil
}

// applyEnv overrides c with any RESPONSIVER_* variables that are set.
func (c *Config) applyEnv() {
	c.ImagesDirs = ParseListEnv("RESPONSIVER_IMAGES_DIRS", c.ImagesDirs)
	c.ImageExtensions = ParseListEnv("RESPONSIVER_IMAGE_EXTENSIONS", c.ImageExtensions)
	c.ConversionSizes = ParseIntListEnv("RESPONSIVER_CONVERSION_SIZES", c.ConversionSizes)
	c.OutputFileTypes = ParseListEnv("RESPONSIVER_OUTPUT_FILE_TYPES", c.OutputFileTypes)
	c.OutputDir = GetEnvOrDefault("RESPONSIVER_OUTPUT_DIR", c.OutputDir)
	c.HTMLDirs = ParseListEnv("RESPONSIVER_HTML_DIRS", c.HTMLDirs)
	c.HTMLFileType = GetEnvOrDefault("RESPONSIVER_HTML_FILE_TYPE", c.HTMLFileType)
	c.ImgTagRegex = GetEnvOrDefault("RESPONSIVER_IMG_TAG_REGEX", c.ImgTagRegex)
	c.MaxConcurrency = ParseIntEnv("RESPONSIVER_MAX_CONCURRENCY", c.MaxConcurrency)
	c.FingerprintAlgorithm = GetEnvOrDefault("RESPONSIVER_FINGERPRINT", c.FingerprintAlgorithm)
	c.HistoryDB = GetEnvOrDefault("RESPONSIVER_HISTORY_DB", c.HistoryDB)
	c.LogFile = GetEnvOrDefault("RESPONSIVER_LOG_FILE", c.LogFile)
	c.LogLevel = GetEnvOrDefault("RESPONSIVER_LOG_LEVEL", c.LogLevel)
	c.DevMode = ParseBoolEnv("DEV_MODE", c.DevMode)
}

// HistoryEnabled reports whether runs are recorded to a history database.
func (c *Config) HistoryEnabled() bool {
	return c.HistoryDB != ""
}
