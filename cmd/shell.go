// Package cmd provides utilities that underlie the specific commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/letsencrypt/evcheck/blog"
)

// FailOnError exits and prints an error message if we encountered a problem
func FailOnError(err error, msg string) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%s: %s\n", msg, err)
	os.Exit(1)
}

// NewStatsRegistry returns a prometheus registry carrying the standard Go
// runtime and process collectors.
func NewStatsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// debugShutdownTimeout bounds how long in-flight debug requests may delay exit.
var debugShutdownTimeout = 5 * time.Second

// DebugServer serves /metrics for reg on addr until ctx is done. It returns
// the bound address once the listener is up, so a bad address is reported to
// the caller.
func DebugServer(ctx context.Context, addr string, reg *prometheus.Registry) (net.Addr, error) {
	if addr == "" {
		return nil, errors.New("no address given for debug server; set debugAddr")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("unable to boot debug server on %q: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	blog.Info(ctx, "Booting debug server", slog.String("addr", ln.Addr().String()))
	go func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			blog.Error(ctx, "Debug server failed", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), debugShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if err != nil {
			blog.Warn(ctx, "Debug server shutdown failed", blog.Cause(err))
		}
	}()
	return ln.Addr(), nil
}
