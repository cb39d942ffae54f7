package config

import "errors"

// Loading and decoding errors. Wrapped errors carry the underlying cause.
var (
	// ErrEmptyPath means New was called without a file path.
	ErrEmptyPath = errors.New("config: empty config path")

	// ErrUnsupportedFormat means the file extension or format is not YAML or JSON.
	ErrUnsupportedFormat = errors.New("config: unsupported config format")

	// ErrLoadFailed means the file could not be read.
	ErrLoadFailed = errors.New("config: failed to load config")

	// ErrParseFailed means the content is not valid for its format.
	ErrParseFailed = errors.New("config: failed to parse config")

	// ErrUnmarshalFailed means a section could not be decoded into a struct.
	ErrUnmarshalFailed = errors.New("config: failed to unmarshal config")

	// ErrNotReloadable means the properties were not loaded from a file.
	ErrNotReloadable = errors.New("config: properties have no backing file")
)
