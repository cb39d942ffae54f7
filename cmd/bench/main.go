// Command bench runs a synthetic Zipf workload against the cache and exposes
// optional pprof/Prometheus endpoints.
//
// Settings come from flags first, then from the --config file (YAML or
// JSON), then from built-in defaults:
//
//	cache:
//	  size: 100000
//	  partitions: 16
//	  ordered: false
//	bench:
//	  workers: 8
//	  duration: 10s
//	  reads: 80
//	log:
//	  level: info
//
// log.level is re-read whenever the config file changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/IvanBrykalov/arccache/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(run).Run(ctx, os.Args); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "bench:", err)
		os.Exit(1)
	}
}

// settings is the fully resolved configuration of one run.
type settings struct {
	ConfigPath string

	Capacity   int
	Partitions int
	Ordered    bool

	Workers  int
	Duration time.Duration
	ReadPct  int
	Keys     int
	ZipfS    float64
	ZipfV    float64
	Seed     int64
	Preload  int

	PprofAddr   string
	MetricsAddr string

	LogLevel string
	LogFile  string
	LogJSON  bool
}

// newApp builds the CLI; action receives the resolved settings and the
// loaded properties.
func newApp(action func(ctx context.Context, s settings, p *config.Properties) error) *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "load-test the partitioned ARC cache",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML or JSON settings file", Sources: cli.EnvVars("ARCCACHE_CONFIG")},

			&cli.IntFlag{Name: "cap", Value: config.DefaultCacheSize, Usage: "cache capacity (entries)"},
			&cli.IntFlag{Name: "partitions", Value: 0, Usage: "partition count (0 = auto)"},
			&cli.BoolFlag{Name: "ordered", Usage: "use the ordered (B-tree indexed) variant"},

			&cli.IntFlag{Name: "workers", Value: 2 * runtime.GOMAXPROCS(0), Usage: "number of worker goroutines"},
			&cli.DurationFlag{Name: "duration", Value: 10 * time.Second, Usage: "benchmark duration"},
			&cli.IntFlag{Name: "reads", Value: 80, Usage: "read percentage [0..100]"},
			&cli.IntFlag{Name: "keys", Value: 1_000_000, Usage: "keyspace size"},
			&cli.Float64Flag{Name: "zipf-s", Value: 1.1, Usage: "Zipf s > 1 (skew)"},
			&cli.Float64Flag{Name: "zipf-v", Value: 1.0, Usage: "Zipf v >= 1"},
			&cli.IntFlag{Name: "seed", Value: 0, Usage: "random seed (0 = time based)"},
			&cli.IntFlag{Name: "preload", Value: 0, Usage: "preload entries (0 = cap/2)"},

			&cli.StringFlag{Name: "pprof", Usage: "serve pprof at addr (e.g. :6060); empty = disabled"},
			&cli.StringFlag{Name: "http", Value: ":8080", Usage: "serve Prometheus metrics at addr; empty = disabled"},

			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "debug | info | warn | error"},
			&cli.StringFlag{Name: "log-file", Usage: "write logs to a rotated file instead of stderr"},
			&cli.BoolFlag{Name: "log-json", Usage: "emit JSON logs"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := loadProperties(cmd.String("config"))
			if err != nil {
				return err
			}
			return action(ctx, resolve(cmd, p), p)
		},
	}
}

func loadProperties(path string) (*config.Properties, error) {
	if path == "" {
		return config.NewFromBytes(nil, config.FormatYAML)
	}
	return config.New(path)
}

// resolve merges flags over properties: an explicitly set flag wins,
// otherwise the config value, otherwise the flag default.
func resolve(cmd *cli.Command, p *config.Properties) settings {
	cc := config.LoadCacheConfig(p, "cache")

	intOf := func(flag, key string) int {
		if cmd.IsSet(flag) {
			return cmd.Int(flag)
		}
		return p.Int(key, cmd.Int(flag))
	}
	strOf := func(flag, key string) string {
		if cmd.IsSet(flag) {
			return cmd.String(flag)
		}
		return p.String(key, cmd.String(flag))
	}
	floatOf := func(flag, key string) float64 {
		if cmd.IsSet(flag) {
			return cmd.Float64(flag)
		}
		return p.Float64(key, cmd.Float64(flag))
	}

	s := settings{
		ConfigPath: cmd.String("config"),
		Capacity:   cc.Size,
		Partitions: cc.Partitions,
		Ordered:    cc.Ordered,

		Workers:  intOf("workers", "bench.workers"),
		ReadPct:  intOf("reads", "bench.reads"),
		Keys:     intOf("keys", "bench.keys"),
		ZipfS:    floatOf("zipf-s", "bench.zipf_s"),
		ZipfV:    floatOf("zipf-v", "bench.zipf_v"),
		Seed:     int64(intOf("seed", "bench.seed")),
		Preload:  intOf("preload", "bench.preload"),
		Duration: cmd.Duration("duration"),

		PprofAddr:   strOf("pprof", "bench.pprof"),
		MetricsAddr: strOf("http", "bench.http"),

		LogLevel: strOf("log-level", "log.level"),
		LogFile:  strOf("log-file", "log.file"),
		LogJSON:  cmd.Bool("log-json") || p.Bool("log.json", false),
	}
	if !cmd.IsSet("duration") {
		s.Duration = p.Duration("bench.duration", s.Duration)
	}

	if cmd.IsSet("cap") || !p.Exists("cache.size") {
		s.Capacity = cmd.Int("cap")
	}
	if cmd.IsSet("partitions") && cmd.Int("partitions") > 0 {
		s.Partitions = cmd.Int("partitions")
	}
	if cmd.IsSet("ordered") {
		s.Ordered = cmd.Bool("ordered")
	}
	return s
}
