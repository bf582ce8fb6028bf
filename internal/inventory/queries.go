package inventory

import (
	"strings"

	"github.com/sigreer/sptinv/internal/device"
	"github.com/sigreer/sptinv/internal/runner"
)

// Raw SAT pass-through CDBs for ATA drives behind a SAS HBA.
const (
	// ATA IDENTIFY DEVICE; words 10-19 hold the serial, 23-26 the firmware.
	ataIdentifyCDB    = "85 08 0e 00 00 00 01 00 00 00 00 00 00 40 ec 00"
	ataIdentifyUnpack = `%C:20:20 %C:46:8\n`
	// SMART READ LOG, SCT status; byte 200 is the current temperature.
	ataTemperatureCDB    = "85,08,0e,00,d5,00,01,00,e0,00,4f,00,c2,00,b0,00"
	ataTemperatureUnpack = `%B:200\n`
)

func (b *Builder) tool(msg string, args ...string) runner.Command {
	return runner.Command{
		Args:    append([]string{b.spt}, args...),
		Message: msg,
		Timeout: b.cfg.Timeout,
	}
}

// dsf addresses one device. emit= keeps spt's status block out of the JSON.
func (b *Builder) dsf(d *device.Device, msg string, args ...string) runner.Command {
	a := make([]string, 0, len(args)+2)
	a = append(a, "dsf="+d.Path())
	a = append(a, args...)
	a = append(a, "emit=")
	return b.tool(msg, a...)
}

func (b *Builder) inquiryCmd(d *device.Device) runner.Command {
	return b.dsf(d, "Get Inquiry Information", "inquiry", "ofmt=json")
}

func (b *Builder) serialPageCmd(d *device.Device) runner.Command {
	c := b.dsf(d, "Get Serial Number", "inquiry", "page=serial", "ofmt=json")
	c.ExpectFailure = true
	return c
}

func (b *Builder) deviceIDCmd(d *device.Device) runner.Command {
	c := b.dsf(d, "Get Target Port Address", "inquiry", "page=deviceid", "ofmt=json")
	c.ExpectFailure = true
	return c
}

func (b *Builder) turCmd(d *device.Device) runner.Command {
	c := b.dsf(d, "Test Unit Ready w/retries to clear errors", "cdb=0", "enable=recovery")
	c.ExpectFailure = true
	return c
}

func (b *Builder) ataIdentifyCmd(d *device.Device) runner.Command {
	return b.tool("Get ATA Firmware Version & Serial Number",
		"dsf="+d.Path(), "cdb="+ataIdentifyCDB, "dir=read", "length=512",
		"enable=sata", "disable=verbose", "unpack="+ataIdentifyUnpack)
}

func (b *Builder) ataTemperatureCmd(d *device.Device) runner.Command {
	c := b.tool("Get Current Drive Temperature",
		"dsf="+d.Path(), "cdb="+ataTemperatureCDB, "dir=read", "length=512",
		"disable=verbose", "unpack="+ataTemperatureUnpack)
	c.ExpectFailure = true
	return c
}

func (b *Builder) powerOnHoursCmd(d *device.Device) runner.Command {
	dev := d.LogicalPath
	if dev == "" {
		dev = d.Path()
	}
	return runner.Command{
		Args:          []string{b.cfg.Smartctl, "--attributes", "--log=error", dev},
		Message:       "Get ATA Power On Hours",
		Timeout:       b.cfg.Timeout,
		ExpectFailure: true,
		QuietStdout:   true,
	}
}

func (b *Builder) readCapacityCmd(d *device.Device) runner.Command {
	return b.dsf(d, "Get Disk Capacity", "readcapacity16", "ofmt=json")
}

func (b *Builder) logSenseTemperatureCmd(d *device.Device) runner.Command {
	c := b.dsf(d, "Get Current Drive Temperature", "logsense", "page=temperature", "ofmt=json", "rfmt=brief")
	c.ExpectFailure = true
	return c
}

func (b *Builder) elementPageCmd(d *device.Device) runner.Command {
	c := b.dsf(d, "Get SES Element Information", "rcvdiag", "page=element", "etype=array", "ofmt=json")
	c.QuietStdout = true
	return c
}

func (b *Builder) additionalPageCmd(d *device.Device) runner.Command {
	c := b.dsf(d, "Get SES Additional Element Information", "rcvdiag", "page=addl_element_status", "etype=array", "ofmt=json")
	c.QuietStdout = true
	return c
}

func (b *Builder) lsscsiCmd() runner.Command {
	return runner.Command{
		Args:    []string{b.cfg.Lsscsi, "--generic", "--transport"},
		Message: "Find SCSI devices",
		Timeout: b.cfg.Timeout,
	}
}

// showDevicesCmd lists devices through spt. dtypes is e.g.
// "direct,hostmanaged,enclosure". Selection filters go out only when
// filtered is set; the exclude list whenever exclude is.
func (b *Builder) showDevicesCmd(dtypes string, filtered, exclude bool) runner.Command {
	f := b.cfg.Filters
	var args []string
	if filtered && len(f.Drives) > 0 {
		args = []string{"show", "edt", "dtype=" + dtypes, "devices=" + strings.Join(f.Drives, ",")}
	} else {
		args = []string{"show", "devices", "dtype=" + dtypes}
	}
	if filtered {
		for _, kv := range []struct{ key, val string }{
			{"pid", f.Product},
			{"vid", f.Vendor},
			{"serial", f.Serial},
			{"tport", f.TargetPort},
			{"fw_version", f.FirmwareVersion},
		} {
			if kv.val != "" {
				args = append(args, kv.key+"="+kv.val)
			}
		}
	}
	if exclude && len(f.Exclude) > 0 {
		args = append(args, "exclude="+strings.Join(f.Exclude, ","))
	}
	args = append(args, "ofmt=json")

	c := b.tool("Finding devices", args...)
	c.ExpectFailure = true
	c.QuietStdout = true
	return c
}

// probeReadyCmd lets spt itself wait for the unit: up to 100 retries
// 100ms apart until GOOD status.
func (b *Builder) probeReadyCmd(d *device.Device) runner.Command {
	return b.dsf(d, "Test Unit Ready, waiting for GOOD status",
		"cdb=0", "status=good", "retry=100", "msleep=100", "enable=wait")
}
