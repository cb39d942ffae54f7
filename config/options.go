package config

// Format names a supported configuration encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

type options struct {
	delim    string
	tag      string
	defaults map[string]any
}

// Option configures Properties.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		delim: ".",
		tag:   "koanf",
	}
}

// WithDelim sets the key path delimiter, "." by default ("cache.size").
func WithDelim(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.delim = delim
		}
	}
}

// WithTag sets the struct tag used by Unmarshal, "koanf" by default.
func WithTag(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.tag = tag
		}
	}
}

// WithDefaults layers values underneath the loaded content. Keys use the
// delimiter, e.g. {"cache.size": 1000}. Defaults survive Reload.
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) {
		if o.defaults == nil {
			o.defaults = make(map[string]any, len(defaults))
		}
		for k, v := range defaults {
			o.defaults[k] = v
		}
	}
}
