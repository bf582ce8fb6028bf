package inventory

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sigreer/sptinv/internal/device"
	"github.com/sigreer/sptinv/internal/parser"
	"golang.org/x/sync/errgroup"
)

// ProbeStatus is what one probe worker saw of its drive.
type ProbeStatus struct {
	Device device.Device
	Err    error
}

func (s ProbeStatus) ExitCode() ExitCode { return ExitCodeFor(s.Err) }

// Probe finds disks through lsscsi and exercises every one on its own
// worker: Test Unit Ready, inquiry, serial page and read capacity. All
// workers share the probe timeout. The executor must be safe for
// concurrent use; a runner.Runner is, a session only serializes.
//
// The returned error joins the failed workers' errors, so ExitCodeFor
// gives the run's status.
func (b *Builder) Probe(ctx context.Context) ([]ProbeStatus, error) {
	devs, err := b.discoverLsscsi(ctx, false)
	if err != nil {
		if fatal(ctx, err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrDiscovery, err)
	}
	if len(devs) == 0 {
		return nil, ErrNoDevices
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.ProbeTimeout)
	defer cancel()

	// Each worker owns its device and its slot in statuses.
	statuses := make([]ProbeStatus, len(devs))
	var g errgroup.Group
	if b.cfg.ProbeWorkers > 0 {
		g.SetLimit(b.cfg.ProbeWorkers)
	}
	for i, d := range devs {
		g.Go(func() error {
			b.log.Info().Str("device", d.Name()).Msg("starting probe worker")
			err := b.probeOne(ctx, d)
			statuses[i] = ProbeStatus{Device: *d, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs *multierror.Error
	for _, s := range statuses {
		if s.Err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", s.Device.Name(), s.Err))
		}
	}
	return statuses, errs.ErrorOrNil()
}

func (b *Builder) probeOne(ctx context.Context, d *device.Device) error {
	if _, err := b.env.Exec.Run(ctx, b.probeReadyCmd(d)); err != nil {
		return err
	}

	res, err := b.env.Exec.Run(ctx, b.inquiryCmd(d))
	if err != nil {
		return err
	}
	inq, err := parser.ParseInquiry([]byte(res.Stdout))
	if err != nil {
		return err
	}
	d.Description = inq.Description
	d.Vendor = inq.Vendor
	d.Product = inq.Product
	d.FirmwareRevision = inq.Revision

	err = b.soft(ctx, d, b.serialPageCmd(d), func(out []byte) error {
		serial, err := parser.ParseSerialPage(out)
		d.SerialNumber = serial
		return err
	})
	if err != nil {
		return err
	}

	res, err = b.env.Exec.Run(ctx, b.readCapacityCmd(d))
	if err != nil {
		return err
	}
	d.CapacityBlocks, d.BlockLength, err = parser.ParseReadCapacity([]byte(res.Stdout))
	return err
}
