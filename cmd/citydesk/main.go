// Command citydesk is a line-oriented front end for managing cities against a
// running citydesk-server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"citydesk/internal/blob"
	"citydesk/internal/client"
	"citydesk/internal/config"
	"citydesk/internal/core"
	"citydesk/internal/export"
	"citydesk/internal/form"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "citydesk:", err)
		stop()
		exitFunc(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("citydesk", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to a YAML config file")
	apiURL := fs.String("api", "", "backend base URL (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *apiURL != "" {
		cfg.Client.BaseURL = *apiURL
	}
	logger := cfg.Log.NewLogger(stderr)

	store, err := blob.Open(ctx, cfg.Export.Blob)
	if err != nil {
		return fmt.Errorf("open export store: %w", err)
	}
	exporter := export.New(store, export.WithPrefix(cfg.Export.Prefix), export.WithLogger(logger))

	metrics := core.NewMetricsCollector(cfg.Metrics)
	api := client.New(cfg.Client.BaseURL, client.WithTimeout(cfg.Client.Timeout))
	input := bufio.NewScanner(stdin)
	manager := form.New(api,
		promptConfirmer{in: input, out: stdout},
		newStyledNotifier(stdout),
		form.WithLogger(logger),
		form.WithMetricsRecorder(metrics.ForComponent("form")),
	)

	sh := &shell{manager: manager, exporter: exporter, metrics: metrics, in: input, out: stdout}
	return sh.run(ctx)
}
