package inventory

import (
	"context"
	"fmt"

	"github.com/sigreer/sptinv/internal/config"
	"github.com/sigreer/sptinv/internal/device"
	"github.com/sigreer/sptinv/internal/parser"
	"github.com/sigreer/sptinv/internal/runner"
)

// Discover lists disks, and enclosures when configured, without querying
// them. Failures here end the run.
func (b *Builder) Discover(ctx context.Context) ([]*device.Device, error) {
	var (
		devs []*device.Device
		err  error
	)
	if b.cfg.Discovery == config.DiscoveryLsscsi {
		devs, err = b.discoverLsscsi(ctx, b.cfg.IncludeEnclosures)
	} else {
		devs, err = b.discoverSPT(ctx)
	}
	if err != nil {
		if fatal(ctx, err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	b.log.Info().Int("devices", len(devs)).Str("via", b.cfg.Discovery).Msg("discovery finished")
	return devs, nil
}

func (b *Builder) discoverLsscsi(ctx context.Context, enclosures bool) ([]*device.Device, error) {
	res, err := b.env.Exec.Run(ctx, b.lsscsiCmd())
	if err != nil {
		return nil, err
	}
	return parser.ParseLsscsi(b.log, res.Stdout, parser.LsscsiOptions{
		IncludeEnclosures: enclosures,
		Drives:            b.cfg.Filters.Drives,
		Exclude:           b.cfg.Filters.Exclude,
	}), nil
}

// discoverSPT asks spt for everything in one scan unless selection filters
// are set, in which case enclosures are listed by a separate query the
// filters can't hide.
func (b *Builder) discoverSPT(ctx context.Context) ([]*device.Device, error) {
	f := b.cfg.Filters
	filtered := len(f.Drives) > 0 || !f.Filters.Empty()

	var devs []*device.Device
	dtypes := "direct,hostmanaged"

	if b.cfg.IncludeEnclosures {
		if filtered {
			encs, err := b.showDevices(ctx, b.showDevicesCmd("enclosure", false, false),
				parser.DevicesOptions{IncludeEnclosures: true})
			if err != nil {
				return nil, err
			}
			devs = append(devs, encs...)
		} else {
			dtypes += ",enclosure"
		}
	}

	disks, err := b.showDevices(ctx, b.showDevicesCmd(dtypes, filtered, true), parser.DevicesOptions{
		Filters:           f.Filters,
		IncludeEnclosures: b.cfg.IncludeEnclosures && !filtered,
	})
	if err != nil {
		return nil, err
	}
	return append(devs, disks...), nil
}

// showDevices runs one enumeration. spt exits nonzero with no output when
// nothing matches, which is zero devices rather than an error.
func (b *Builder) showDevices(ctx context.Context, c runner.Command, opts parser.DevicesOptions) ([]*device.Device, error) {
	res, err := b.env.Exec.Run(ctx, c)
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		b.log.Warn().Int("exit_code", res.ExitCode).Str("cmd", c.String()).Msg("no devices reported")
		return nil, nil
	}
	return parser.ParseDevices(b.log, []byte(res.Stdout), opts)
}
