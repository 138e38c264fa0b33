// Command ev-checker reports whether the certificates served by the given
// targets are Extended Validation certificates. Findings are written to
// stdout as one JSON object per target, in the order the targets were given.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/letsencrypt/evcheck/blog"
	"github.com/letsencrypt/evcheck/cmd"
	"github.com/letsencrypt/evcheck/evaluator"
	"github.com/letsencrypt/evcheck/evoids"
	"github.com/letsencrypt/evcheck/report"
	"github.com/letsencrypt/evcheck/tlsprobe"
)

const defaultParallelism = 4

// Config is the YAML configuration of ev-checker. Every field is optional.
type Config struct {
	EVChecker struct {
		tlsprobe.Config `yaml:",inline"`

		// ExtraPolicyOIDs are EV policies to recognize in addition to the
		// built-in list, in dotted-decimal form.
		ExtraPolicyOIDs []string `yaml:"extraPolicyOIDs" validate:"dive,required"`

		// FurtherInfo replaces the links attached to EV and NotEV findings.
		FurtherInfo []report.Reference `yaml:"furtherInfo" validate:"dive"`

		// Parallelism is how many targets are evaluated at once. Default 4.
		Parallelism int `yaml:"parallelism" validate:"min=0,max=256"`
	} `yaml:"evChecker"`

	Syslog blog.Config `yaml:"syslog"`

	// DebugAddr is the address to serve /metrics on, such as
	// "localhost:8010". The debug server is off when empty.
	DebugAddr string `yaml:"debugAddr" validate:"omitempty,hostname_port"`
}

// defaultConfig is used as-is without -config, and is the base a config
// file is decoded over.
func defaultConfig() Config {
	var c Config
	c.Syslog.SyslogLevel = -1
	return c
}

type targetList []string

func (tl *targetList) String() string {
	return strings.Join(*tl, ",")
}

func (tl *targetList) Set(v string) error {
	*tl = append(*tl, v)
	return nil
}

type targetReport struct {
	Target   string           `json:"target"`
	Status   string           `json:"status"`
	Findings []report.Finding `json:"findings"`
}

func loadConfig(path string) (Config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()
	err = cmd.ValidateYAMLConfig(&cmd.ConfigValidator{Config: &c}, f)
	if err != nil {
		return c, err
	}
	_, err = newRegistry(c)
	if err != nil {
		return c, err
	}
	_, err = tlsprobe.New(c.EVChecker.Config, clock.New())
	return c, err
}

func newRegistry(c Config) (*evoids.Registry, error) {
	if len(c.EVChecker.ExtraPolicyOIDs) == 0 {
		return evoids.Default(), nil
	}
	return evoids.Default().WithExtra(c.EVChecker.ExtraPolicyOIDs)
}

// run evaluates targets concurrently and writes one report line per target
// to out, in input order.
func run(ctx context.Context, c Config, targets []string, stats prometheus.Registerer, out io.Writer) error {
	registry, err := newRegistry(c)
	if err != nil {
		return err
	}
	clk := clock.New()
	prober, err := tlsprobe.New(c.EVChecker.Config, clk)
	if err != nil {
		return err
	}
	ev := evaluator.New(registry, prober, stats, clk)

	furtherInfo := c.EVChecker.FurtherInfo
	if len(furtherInfo) == 0 {
		furtherInfo = report.DefaultFurtherInfo
	}
	parallelism := c.EVChecker.Parallelism
	if parallelism == 0 {
		parallelism = defaultParallelism
	}

	reports := make([]targetReport, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, raw := range targets {
		g.Go(func() error {
			res := ev.Evaluate(gctx, raw)
			reports[i] = targetReport{
				Target:   raw,
				Status:   res.Status.String(),
				Findings: report.FromResult(res, furtherInfo),
			}
			return nil
		})
	}
	err = g.Wait()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for _, r := range reports {
		err := enc.Encode(r)
		if err != nil {
			return err
		}
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to ev-checker YAML configuration file")
	validate := flag.Bool("validate", false, "Validate the configuration file and exit")
	var targets targetList
	flag.Var(&targets, "target", "URL to check, such as https://example.com (may be repeated)")
	flag.Parse()
	targets = append(targets, flag.Args()...)

	c, err := loadConfig(*configPath)
	cmd.FailOnError(err, "Failed to load config")
	if *validate {
		fmt.Fprintln(os.Stderr, "Config is valid")
		return
	}
	if len(targets) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-config file] -target URL [URL...]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger, err := blog.New(c.Syslog, "ev-checker")
	cmd.FailOnError(err, "Failed to set up logging")
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = blog.NewContext(ctx, logger)

	stats := cmd.NewStatsRegistry()
	if c.DebugAddr != "" {
		addr, err := cmd.DebugServer(ctx, c.DebugAddr, stats)
		cmd.FailOnError(err, "Failed to start debug server")
		blog.Debug(ctx, "Debug server listening", slog.String("addr", addr.String()))
	}

	blog.AuditInfo(ctx, "Starting EV checks", slog.Int("targets", len(targets)))
	err = run(ctx, c, targets, stats, os.Stdout)
	cmd.FailOnError(err, "Failed to run EV checks")
}
