package main

import (
	"testing"
	"time"

	"github.com/sigreer/sptinv/internal/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg config.Config)
	}{
		{
			name: "nothing set keeps config",
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, config.Default(), cfg)
			},
		},
		{
			name: "discovery and enclosures",
			args: []string{"--use-lsscsi", "--noencs", "--power-on-hours", "--no-session"},
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, config.DiscoveryLsscsi, cfg.Discovery)
				assert.False(t, cfg.IncludeEnclosures)
				assert.True(t, cfg.PowerOnHours)
				assert.False(t, cfg.Session.Enabled)
			},
		},
		{
			name: "filters",
			args: []string{"--drives", "/dev/sda,/dev/sdb", "--exclude", "/dev/sdc",
				"--vendor", "HGST", "--product", "HUH72", "--serial", "7PG3", "--fw-version", "A21D"},
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, []string{"/dev/sda", "/dev/sdb"}, cfg.Filters.Drives)
				assert.Equal(t, []string{"/dev/sdc"}, cfg.Filters.Exclude)
				assert.Equal(t, "HGST", cfg.Filters.Vendor)
				assert.Equal(t, "HUH72", cfg.Filters.Product)
				assert.Equal(t, "7PG3", cfg.Filters.Serial)
				assert.Equal(t, "A21D", cfg.Filters.FirmwareVersion)
			},
		},
		{
			name: "sas address alias",
			args: []string{"--sas-address", "0x5000cca23b359649"},
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, "0x5000cca23b359649", cfg.Filters.TargetPort)
			},
		},
		{
			name: "target port wins over alias",
			args: []string{"--sas-address", "5000a", "--target-port", "5000b"},
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, "5000b", cfg.Filters.TargetPort)
			},
		},
		{
			name: "tool and timeout",
			args: []string{"--spt-path", "/opt/spt/spt", "--timeout", "2m", "--log-level", "debug"},
			check: func(t *testing.T, cfg config.Config) {
				assert.Equal(t, "/opt/spt/spt", cfg.Tool)
				assert.Equal(t, 2*time.Minute, cfg.Timeout)
				assert.Equal(t, "debug", cfg.Log.Level)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test"}
			cmd.Flags().String("spt-path", "", "")
			cmd.Flags().Duration("timeout", 0, "")
			cmd.Flags().String("log-level", "", "")
			addListFlags(cmd)
			require.NoError(t, cmd.ParseFlags(tt.args))

			cfg := config.Default()
			applyFlags(cmd, &cfg)
			tt.check(t, cfg)
		})
	}
}

func TestApplyProbeFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "probe"}
	addFilterFlags(cmd)
	cmd.Flags().Int("workers", 0, "")
	cmd.Flags().Duration("probe-timeout", 0, "")
	require.NoError(t, cmd.ParseFlags([]string{"--workers", "4", "--probe-timeout", "30s", "--exclude", "/dev/sda"}))

	cfg := config.Default()
	applyFlags(cmd, &cfg)
	assert.Equal(t, 4, cfg.ProbeWorkers)
	assert.Equal(t, 30*time.Second, cfg.ProbeTimeout)
	assert.Equal(t, []string{"/dev/sda"}, cfg.Filters.Exclude)
	assert.Equal(t, config.DiscoverySPT, cfg.Discovery, "list-only flags are ignored")
}
