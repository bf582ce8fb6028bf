package main

import (
	"github.com/sigreer/sptinv/internal/config"
	"github.com/spf13/cobra"
)

func addListFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Bool("json", false, "Output as JSON")
	f.Bool("yaml", false, "Output as YAML")
	f.Bool("long", false, "One key/value block per device")
	f.Bool("noheader", false, "Omit table headers")
	f.Bool("noencs", false, "Skip enclosures")
	f.Bool("power-on-hours", false, "Include power on hours of ATA drives (needs smartctl)")
	f.Bool("use-lsscsi", false, "Find devices via lsscsi instead of spt")
	f.Bool("no-session", false, "Run every spt command as its own process")
	f.String("metrics", "", "Write Prometheus metrics to this textfile")
	addFilterFlags(cmd)
	f.String("vendor", "", "Only drives whose vendor contains this")
	f.String("product", "", "Only drives whose product contains this")
	f.String("serial", "", "Only drives whose serial number contains this")
	f.String("target-port", "", "Only drives whose SAS address contains this")
	f.String("sas-address", "", "Alias for --target-port")
	f.String("fw-version", "", "Only drives whose firmware version contains this")
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("drives", nil, "Only these block devices, comma separated")
	cmd.Flags().StringSlice("exclude", nil, "Skip these block devices, comma separated")
}

// applyFlags overlays the flags set on the command line onto cfg. Flags
// a command does not define are ignored.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	changed := func(name string) bool {
		return f.Lookup(name) != nil && f.Changed(name)
	}
	str := func(name string, dst *string) {
		if changed(name) {
			*dst, _ = f.GetString(name)
		}
	}

	if changed("debug") {
		cfg.Log.Debug, _ = f.GetBool("debug")
	}
	str("log-level", &cfg.Log.Level)
	str("log-file", &cfg.Log.File)
	str("spt-path", &cfg.Tool)
	if changed("timeout") {
		cfg.Timeout, _ = f.GetDuration("timeout")
	}

	if changed("noencs") {
		noencs, _ := f.GetBool("noencs")
		cfg.IncludeEnclosures = !noencs
	}
	if changed("power-on-hours") {
		cfg.PowerOnHours, _ = f.GetBool("power-on-hours")
	}
	if changed("use-lsscsi") {
		if lsscsi, _ := f.GetBool("use-lsscsi"); lsscsi {
			cfg.Discovery = config.DiscoveryLsscsi
		}
	}
	if changed("no-session") {
		noSession, _ := f.GetBool("no-session")
		cfg.Session.Enabled = !noSession
	}
	str("metrics", &cfg.Metrics)

	if changed("drives") {
		cfg.Filters.Drives, _ = f.GetStringSlice("drives")
	}
	if changed("exclude") {
		cfg.Filters.Exclude, _ = f.GetStringSlice("exclude")
	}
	str("vendor", &cfg.Filters.Vendor)
	str("product", &cfg.Filters.Product)
	str("serial", &cfg.Filters.Serial)
	str("sas-address", &cfg.Filters.TargetPort)
	str("target-port", &cfg.Filters.TargetPort)
	str("fw-version", &cfg.Filters.FirmwareVersion)

	if changed("workers") {
		cfg.ProbeWorkers, _ = f.GetInt("workers")
	}
	if changed("probe-timeout") {
		cfg.ProbeTimeout, _ = f.GetDuration("probe-timeout")
	}
}
