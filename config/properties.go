// Package config is the process settings store: a typed view over a YAML or
// JSON file with defaults, in-memory overrides, reloading and file watching.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Properties holds configuration values. Layers, lowest first: defaults,
// file (or bytes) content, values written with Set.
// All methods are safe for concurrent use.
type Properties struct {
	mu        sync.RWMutex
	k         *koanf.Koanf
	overrides map[string]any

	path   string
	data   []byte
	format Format
	opts   *options
}

// New loads properties from a file. The format follows the extension
// (.yaml, .yml or .json).
func New(path string, opts ...Option) (*Properties, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	format, err := detectFormat(path)
	if err != nil {
		return nil, err
	}
	p := &Properties{path: path, format: format, opts: applyOptions(opts)}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewFromBytes loads properties from memory. Empty data yields properties
// holding only the defaults.
func NewFromBytes(data []byte, format Format, opts ...Option) (*Properties, error) {
	if !isValidFormat(format) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	p := &Properties{data: data, format: format, opts: applyOptions(opts)}
	k, err := p.build()
	if err != nil {
		return nil, err
	}
	p.k = k
	return p, nil
}

// Reload re-reads the backing file and swaps the new values in atomically.
// Overrides written with Set are kept. On error the old values stay.
func (p *Properties) Reload() error {
	if p.path == "" {
		return ErrNotReloadable
	}
	k, err := p.build()
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.k = k
	for key, v := range p.overrides {
		_ = p.k.Set(key, v)
	}
	p.mu.Unlock()
	return nil
}

// Path returns the backing file, or "" for properties built from bytes.
func (p *Properties) Path() string { return p.path }

// Exists reports whether key has a value in any layer.
func (p *Properties) Exists(key string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.k.Exists(key)
}

// String returns the value of key, or dflt when it is not set.
func (p *Properties) String(key, dflt string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.k.Exists(key) {
		return dflt
	}
	return p.k.String(key)
}

// Int returns the value of key as an int. dflt is returned when the key is
// not set or its value is not an integer.
func (p *Properties) Int(key string, dflt int) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch v := p.k.Get(key).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return dflt
}

// Float64 returns the value of key as a float64, or dflt when it is not
// set or not a number.
func (p *Properties) Float64(key string, dflt float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch v := p.k.Get(key).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return dflt
}

// Bool returns the value of key. Strings count as true only when they are
// "true" or "1"; dflt is returned when the key is not set.
func (p *Properties) Bool(key string, dflt bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch v := p.k.Get(key).(type) {
	case nil:
		return dflt
	case bool:
		return v
	default:
		s := strings.TrimSpace(fmt.Sprint(v))
		return s == "true" || s == "1"
	}
}

// Duration returns the value of key. Strings use time.ParseDuration
// syntax ("250ms", "2s"); bare numbers are milliseconds. dflt is returned
// when the key is not set or malformed.
func (p *Properties) Duration(key string, dflt time.Duration) time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch v := p.k.Get(key).(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Millisecond
	case int64:
		return time.Duration(v) * time.Millisecond
	case float64:
		return time.Duration(v * float64(time.Millisecond))
	case string:
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return dflt
}

// File returns the value of key as an OS path, converting "/" separators.
func (p *Properties) File(key string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.k.Exists(key) {
		return "", false
	}
	return filepath.FromSlash(p.k.String(key)), true
}

// Set stores an override for key. Overrides win over file content and
// survive Reload.
func (p *Properties) Set(key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.k.Set(key, value); err != nil {
		return fmt.Errorf("config: set %s: %w", key, err)
	}
	if p.overrides == nil {
		p.overrides = make(map[string]any)
	}
	p.overrides[key] = value
	return nil
}

// Keys returns every leaf key, sorted.
func (p *Properties) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.k.Keys()
}

// Unmarshal decodes the section at path ("" for everything) into target.
func (p *Properties) Unmarshal(path string, target any) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if err := p.k.UnmarshalWithConf(path, target, koanf.UnmarshalConf{Tag: p.opts.tag}); err != nil {
		return fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	return nil
}

// ---- helpers ----

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// build assembles a fresh koanf instance from defaults and content.
func (p *Properties) build() (*koanf.Koanf, error) {
	k := koanf.New(p.opts.delim)
	if len(p.opts.defaults) > 0 {
		if err := k.Load(confmap.Provider(p.opts.defaults, p.opts.delim), nil); err != nil {
			return nil, fmt.Errorf("%w: defaults: %w", ErrParseFailed, err)
		}
	}

	parser := parserFor(p.format)
	if p.path != "" {
		if _, err := os.Stat(p.path); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}
		if err := k.Load(file.Provider(p.path), parser); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrParseFailed, p.path, err)
		}
		return k, nil
	}
	if len(p.data) > 0 {
		if err := k.Load(rawbytes.Provider(p.data), parser); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}
	return k, nil
}

func detectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %q", ErrUnsupportedFormat, ext)
	}
}

func isValidFormat(format Format) bool {
	return format == FormatYAML || format == FormatJSON
}

func parserFor(format Format) koanf.Parser {
	if format == FormatJSON {
		return json.Parser()
	}
	return yaml.Parser()
}
