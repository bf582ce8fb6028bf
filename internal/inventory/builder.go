package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/sigreer/sptinv/internal/cache"
	"github.com/sigreer/sptinv/internal/config"
	"github.com/sigreer/sptinv/internal/device"
	"github.com/sigreer/sptinv/internal/logging"
	"github.com/sigreer/sptinv/internal/parser"
	"github.com/sigreer/sptinv/internal/runner"
	"github.com/sigreer/sptinv/internal/ses"
)

// Builder runs one inventory pass. Devices are queried one at a time, in
// discovery order.
type Builder struct {
	env    *Env
	cfg    *config.Config
	log    zerolog.Logger
	spt    string
	policy ses.SlotIndexPolicy
}

func NewBuilder(env *Env) (*Builder, error) {
	policy, err := ses.PolicyByName(env.Config.SlotPolicy)
	if err != nil {
		return nil, err
	}
	return &Builder{
		env:    env,
		cfg:    env.Config,
		log:    logging.WithComponent(env.Log, "inventory"),
		spt:    env.Config.ResolveTool(),
		policy: policy,
	}, nil
}

// Build discovers, queries and correlates every device. Per-device
// failures are collected in Result.Errors. Timeouts, a dead session and
// cancellation end the run and no records are returned. A run that ends
// with no complete disk returns its Result together with ErrNoDevices.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	res := &Result{RunID: b.env.RunID, Started: time.Now()}

	devs, err := b.Discover(ctx)
	if err != nil {
		return nil, err
	}
	res.records = devs

	var errs *multierror.Error
	drop := func(d *device.Device, err error) {
		d.Fail()
		b.log.Error().Err(err).Str("device", d.Name()).Msg("dropping device")
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", d.Name(), err))
	}

	b.log.Info().Msg("gathering drive information")
	for _, d := range devs {
		if !d.IsDisk() {
			continue
		}
		if err := b.queryDisk(ctx, d); err != nil {
			if fatal(ctx, err) {
				return nil, err
			}
			drop(d, err)
		}
	}

	b.log.Info().Msg("gathering enclosure information")
	var encs []*ses.Enclosure
	for _, d := range devs {
		if !d.IsEnclosure() {
			continue
		}
		enc, err := b.queryEnclosure(ctx, d)
		if err != nil {
			if fatal(ctx, err) {
				return nil, err
			}
			drop(d, err)
			continue
		}
		encs = append(encs, enc)
	}

	corr := ses.NewCorrelator(b.log, encs, b.policy)
	for _, d := range devs {
		var err error
		switch {
		case d.IsDisk() && d.State == device.TemperatureQueried:
			if !corr.Correlate(d) && d.TargetPort != "" {
				b.log.Debug().Str("device", d.Name()).Str("sas_address", d.TargetPort).Msg("drive not in any enclosure slot")
			}
			err = advance(d, device.Correlated, device.Complete)
		case d.IsEnclosure() && d.State == device.IdentityQueried:
			err = advance(d, device.Complete)
		}
		if err != nil {
			drop(d, err)
		}
	}

	res.Finished = time.Now()
	res.Errors = errs.ErrorOrNil()

	b.log.Info().
		Int("drives", res.NumberDrives()).
		Int("enclosures", res.NumberEnclosures()).
		Int("failed", res.NumberFailed()).
		Dur("elapsed", res.Finished.Sub(res.Started)).
		Msg("inventory complete")

	if res.NumberDrives() == 0 {
		return res, ErrNoDevices
	}
	return res, nil
}

func advance(d *device.Device, states ...device.State) error {
	for _, s := range states {
		if err := d.Advance(s); err != nil {
			return err
		}
	}
	return nil
}

// queryDisk walks a disk from Discovered to TemperatureQueried.
func (b *Builder) queryDisk(ctx context.Context, d *device.Device) error {
	// Devices found through lsscsi carry no inquiry data yet.
	var inq *parser.Inquiry
	if d.Description == "" {
		res, err := b.env.Exec.Run(ctx, b.inquiryCmd(d))
		if err != nil {
			return err
		}
		i, err := parser.ParseInquiry([]byte(res.Stdout))
		if err != nil {
			return err
		}
		inq = &i
		d.Description = i.Description
		d.Vendor = i.Vendor
		d.Product = i.Product
		// ATA drives report their firmware version here.
		if d.FirmwareRevision == "" {
			d.FirmwareRevision = i.Revision
		}
	}
	if err := d.Advance(device.IdentityQueried); err != nil {
		return err
	}

	if err := b.testUnitReady(ctx, d); err != nil {
		return err
	}
	if err := d.Advance(device.ReadyChecked); err != nil {
		return err
	}

	if inq != nil {
		if err := b.lookupSerial(ctx, d, *inq); err != nil {
			return err
		}
		if d.TargetPort == "" {
			err := b.soft(ctx, d, b.deviceIDCmd(d), func(out []byte) error {
				addr, err := parser.ParseDeviceIDPage(out)
				d.TargetPort = addr
				return err
			})
			if err != nil {
				return err
			}
		}
	}

	if d.IsATA() {
		if d.FirmwareVersion == "" {
			res, err := b.env.Exec.Run(ctx, b.ataIdentifyCmd(d))
			if err != nil {
				return err
			}
			serial, fw, err := parser.ParseIdentifyUnpack(res.Stdout)
			if err != nil {
				return err
			}
			d.FirmwareVersion = fw
			d.SerialNumber = serial
		}
		if b.cfg.PowerOnHours {
			if err := b.powerOnHours(ctx, d); err != nil {
				return err
			}
		}
	} else if d.FirmwareVersion == "" {
		// SAS disks and HGST/Sandisk SDL parts have nothing richer.
		d.FirmwareVersion = d.FirmwareRevision
	}

	res, err := b.env.Exec.Run(ctx, b.readCapacityCmd(d))
	if err != nil {
		return err
	}
	blocks, blockLen, err := parser.ParseReadCapacity([]byte(res.Stdout))
	if err != nil {
		return err
	}
	if blocks == 0 || blockLen == 0 {
		return fmt.Errorf("%w: %s reports zero capacity", parser.ErrMalformedOutput, d.Name())
	}
	d.CapacityBlocks = blocks
	d.BlockLength = blockLen
	if err := d.Advance(device.CapacityQueried); err != nil {
		return err
	}

	if err := b.temperature(ctx, d); err != nil {
		return err
	}
	return d.Advance(device.TemperatureQueried)
}

// testUnitReady clears unit attentions. A drive still not ready after the
// configured retries fails with ErrTransientNotReady.
func (b *Builder) testUnitReady(ctx context.Context, d *device.Device) error {
	delay := b.cfg.TURRetryDelay
	if delay <= 0 {
		delay = time.Nanosecond
	}
	backoff := retry.WithMaxRetries(b.cfg.TURRetries, retry.NewConstant(delay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := b.env.Exec.Run(ctx, b.turCmd(d))
		if err != nil {
			return err
		}
		if res.ExitCode != 0 {
			return retry.RetryableError(fmt.Errorf("%w: %s: test unit ready exit status %d",
				ErrTransientNotReady, d.Name(), res.ExitCode))
		}
		return nil
	})
}

// lookupSerial fills the serial of a disk found without one: from the
// inquiry data when the vendor appends it there (HGST, Sandisk), else from
// the serial page. ATA serials come later from IDENTIFY.
func (b *Builder) lookupSerial(ctx context.Context, d *device.Device, inq parser.Inquiry) error {
	if d.SerialNumber != "" {
		return nil
	}
	if inq.Serial != "" {
		d.SerialNumber = inq.Serial
		return nil
	}
	if d.IsATA() {
		return nil
	}
	// Some VM disks have no serial page.
	return b.soft(ctx, d, b.serialPageCmd(d), func(out []byte) error {
		serial, err := parser.ParseSerialPage(out)
		d.SerialNumber = serial
		return err
	})
}

func (b *Builder) powerOnHours(ctx context.Context, d *device.Device) error {
	if h, ok := b.env.Cache.Get(cache.PowerOnHours, d.SerialNumber); ok {
		d.PowerOnHours = h
		return nil
	}
	err := b.soft(ctx, d, b.powerOnHoursCmd(d), func(out []byte) error {
		d.PowerOnHours = parser.ParsePowerOnHours(string(out))
		return nil
	})
	if err == nil && d.PowerOnHours != "" {
		b.env.Cache.Set(cache.PowerOnHours, d.SerialNumber, d.PowerOnHours)
	}
	return err
}

func (b *Builder) temperature(ctx context.Context, d *device.Device) error {
	if t, ok := b.env.Cache.Get(cache.Temperature, d.SerialNumber); ok {
		d.Temperature = t
		return nil
	}

	var err error
	if d.IsATA() {
		err = b.soft(ctx, d, b.ataTemperatureCmd(d), func(out []byte) error {
			d.Temperature = parser.ParseUnpackTemperature(string(out))
			return nil
		})
	} else {
		// Some VM disks support no log pages.
		err = b.soft(ctx, d, b.logSenseTemperatureCmd(d), func(out []byte) error {
			t, err := parser.ParseLogSenseTemperature(out)
			d.Temperature = t
			return err
		})
	}
	if err == nil && d.Temperature != "" {
		b.env.Cache.Set(cache.Temperature, d.SerialNumber, d.Temperature)
	}
	return err
}

// soft runs an optional query and hands its output to parse. Nonzero
// exits, empty output and parse errors leave the record as it was; only
// run-ending errors are returned.
func (b *Builder) soft(ctx context.Context, d *device.Device, c runner.Command, parse func([]byte) error) error {
	res, err := b.env.Exec.Run(ctx, c)
	if err == nil && !res.OK() {
		err = fmt.Errorf("%w: %s: exit status %d", ErrExpectedQueryFailure, c.Message, res.ExitCode)
	}
	if err == nil {
		err = parse([]byte(res.Stdout))
	}
	if err != nil {
		if fatal(ctx, err) {
			return err
		}
		b.log.Debug().Err(err).Str("device", d.Name()).Msg("optional query skipped")
	}
	return nil
}

// queryEnclosure fetches identity and both SES array pages.
func (b *Builder) queryEnclosure(ctx context.Context, d *device.Device) (*ses.Enclosure, error) {
	res, err := b.env.Exec.Run(ctx, b.inquiryCmd(d))
	if err != nil {
		return nil, err
	}
	inq, err := parser.ParseInquiry([]byte(res.Stdout))
	if err != nil {
		return nil, err
	}
	d.Description = inq.Description
	d.Vendor = inq.Vendor
	d.Product = inq.Product
	d.FirmwareRevision = inq.Revision
	d.FirmwareVersion = inq.Revision

	// HGST enclosures have a serial page, Quanta enclosures don't.
	if d.SerialNumber == "" {
		err := b.soft(ctx, d, b.serialPageCmd(d), func(out []byte) error {
			serial, err := parser.ParseSerialPage(out)
			d.SerialNumber = serial
			return err
		})
		if err != nil {
			return nil, err
		}
	}

	enc := &ses.Enclosure{Device: d.Path()}

	res, err = b.env.Exec.Run(ctx, b.elementPageCmd(d))
	if err != nil {
		return nil, err
	}
	if enc.Elements, err = ses.ParseElementDescriptors([]byte(res.Stdout)); err != nil {
		return nil, err
	}

	res, err = b.env.Exec.Run(ctx, b.additionalPageCmd(d))
	if err != nil {
		return nil, err
	}
	if enc.Additional, err = ses.ParseAdditionalElementStatus([]byte(res.Stdout)); err != nil {
		return nil, err
	}

	if err := d.Advance(device.IdentityQueried); err != nil {
		return nil, err
	}
	return enc, nil
}
