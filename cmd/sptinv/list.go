package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sigreer/sptinv/internal/inventory"
	"github.com/sigreer/sptinv/internal/metrics"
	"github.com/sigreer/sptinv/internal/version"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List disks and enclosures",
	Long: `Discover disks and enclosures, query each one and print the inventory.

Devices that fail a required query are left out and reported at the end;
the run carries on with the rest. A command timeout or an interrupt ends
the run without output.

Exit status: 0 success, 1 error, 3 no devices found, 7 command timeout,
130 interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(int(runList(cmd)))
	},
}

func init() {
	addListFlags(listCmd)
}

func outputOptions(cmd *cobra.Command) renderOptions {
	jsonOut, _ := cmd.Flags().GetBool("json")
	yamlOut, _ := cmd.Flags().GetBool("yaml")
	long, _ := cmd.Flags().GetBool("long")
	noheader, _ := cmd.Flags().GetBool("noheader")

	opts := renderOptions{format: formatTable, header: !noheader}
	switch {
	case jsonOut:
		opts.format = formatJSON
	case yamlOut:
		opts.format = formatYAML
	case long:
		opts.format = formatLong
	}
	return opts
}

func runList(cmd *cobra.Command) inventory.ExitCode {
	a, err := setup(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return inventory.ExitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := inventory.NewBuilder(a.env(a.executor(ctx)))
	if err != nil {
		a.log.Error().Err(err).Msg("failed to create inventory builder")
		a.close(inventory.ExitError, 0)
		return inventory.ExitError
	}

	res, err := b.Build(ctx)
	code := inventory.ExitCodeFor(err)

	if res == nil {
		a.log.Error().Err(err).Msg("inventory aborted")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		a.close(code, 0)
		return code
	}

	devs := res.Devices()
	if res.Errors != nil {
		a.log.Warn().Err(res.Errors).Int("failed", res.NumberFailed()).Msg("some devices were left out")
		fmt.Fprintf(os.Stderr, "Warning: %v\n", res.Errors)
	}

	if a.cfg.Metrics != "" {
		hits, misses := a.cache.Stats()
		m := metrics.New(a.runID, version.String())
		m.Observe(devs, metrics.Summary{
			Failed:      res.NumberFailed(),
			Duration:    res.Finished.Sub(res.Started),
			Finished:    res.Finished,
			CacheHits:   hits,
			CacheMisses: misses,
		})
		if err := m.WriteTextfile(a.cfg.Metrics); err != nil {
			a.log.Warn().Err(err).Str("path", a.cfg.Metrics).Msg("failed to write metrics")
		}
	}

	if code == inventory.ExitNoDevices {
		fmt.Fprintln(os.Stderr, "No devices found.")
		a.close(code, 0)
		return code
	}

	opts := outputOptions(cmd)
	opts.enclosures = a.cfg.IncludeEnclosures && res.HasEnclosures()
	if err := render(os.Stdout, devs, opts); err != nil {
		a.log.Error().Err(err).Msg("failed to write output")
		code = inventory.ExitError
	}

	a.close(code, len(devs))
	return code
}
