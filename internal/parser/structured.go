package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sigreer/sptinv/internal/device"
)

const notAvailable = "<not available>"

// Filters narrow disk records by substring match. Empty fields match
// everything.
type Filters struct {
	Vendor          string `yaml:"vendor"`
	Product         string `yaml:"product"`
	Serial          string `yaml:"serial"`
	TargetPort      string `yaml:"target_port"`
	FirmwareVersion string `yaml:"firmware_version"`
}

func (f Filters) Empty() bool {
	return f == Filters{}
}

type DevicesOptions struct {
	Filters
	IncludeEnclosures bool
}

type sptDeviceList struct {
	SCSIDevices struct {
		DeviceList []json.RawMessage `json:"Device List"`
	} `json:"SCSI Devices"`
}

type sptDevice struct {
	PeripheralType string    `json:"Peripheral Device Type Description"`
	Product        string    `json:"Product Identification"`
	Vendor         string    `json:"Vendor Identification"`
	Revision       string    `json:"Firmware Revision Level"`
	FullFirmware   *string   `json:"Full Firmware Version"`
	Serial         string    `json:"Product Serial Number"`
	WWN            string    `json:"Device World Wide Name"`
	TargetPort     string    `json:"Device Target Port"`
	PathTypes      []sptPath `json:"Path Types"`
}

// sptPath is one entry of "Path Types". Exactly one of the device fields
// is normally set.
type sptPath struct {
	LinuxDevice string  `json:"Linux Device"`
	SCSIDevice  string  `json:"SCSI Device"`
	DMMPDevice  *string `json:"DMMP Device"`
	Nexus       string  `json:"SCSI Nexus"`
	TargetPort  string  `json:"Device Target Port"`
}

// ParseDevices parses `spt show devices ... ofmt=json`. One record per
// OS path is returned, so a dual-ported disk seen over two HBAs yields two
// devices sharing serial number and target port. Records that fail to
// decode are logged and skipped; an undecodable document is an error.
func ParseDevices(log zerolog.Logger, data []byte, opts DevicesOptions) ([]*device.Device, error) {
	var list sptDeviceList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("%w: show devices: %v", ErrMalformedOutput, err)
	}

	var devices []*device.Device
	for i, raw := range list.SCSIDevices.DeviceList {
		var rec sptDevice
		if err := json.Unmarshal(raw, &rec); err != nil {
			log.Warn().Err(err).Int("index", i).Msg("skipping malformed device record")
			continue
		}
		devices = append(devices, parseRecord(log, rec, opts)...)
	}
	return devices, nil
}

func parseRecord(log zerolog.Logger, rec sptDevice, opts DevicesOptions) []*device.Device {
	t, ok := device.ParseType(rec.PeripheralType)
	if !ok {
		return nil
	}
	if t == device.TypeEnclosure && !opts.IncludeEnclosures {
		return nil
	}

	d := device.New(t)
	d.Description = rec.PeripheralType
	d.Product = strings.TrimSpace(rec.Product)
	d.Vendor = strings.TrimSpace(rec.Vendor)
	d.FirmwareRevision = strings.TrimSpace(rec.Revision)
	if rec.FullFirmware != nil && !strings.HasPrefix(*rec.FullFirmware, notAvailable) {
		d.FirmwareVersion = strings.TrimSpace(*rec.FullFirmware)
	}
	d.SerialNumber = strings.TrimSpace(rec.Serial)
	if !strings.HasPrefix(rec.WWN, notAvailable) {
		d.WWN = strings.TrimSpace(rec.WWN)
	}
	d.TargetPort = device.NormalizeAddress(rec.TargetPort)

	if t == device.TypeDisk && !matches(d, opts.Filters) {
		return nil
	}

	var out []*device.Device
	for _, p := range rec.PathTypes {
		switch {
		case p.LinuxDevice != "":
			// Another sd path for a unit already holding one: emit what
			// we have and carry on with the copy.
			if d.LogicalPath != "" && p.Nexus != "" && p.Nexus != d.LinuxNexus {
				out = append(out, d.Clone())
			}
			d.LogicalPath = p.LinuxDevice
			d.LinuxNexus = p.Nexus
			if p.SCSIDevice != "" {
				d.RawPath = p.SCSIDevice
				d.Nexus = p.Nexus
			}
			if addr := device.NormalizeAddress(p.TargetPort); addr != "" {
				d.TargetPort = addr
			}

		case p.SCSIDevice != "":
			if d.RawPath != "" && p.Nexus != "" && p.Nexus != d.Nexus {
				out = append(out, d.Clone())
			}
			d.RawPath = p.SCSIDevice
			d.Nexus = p.Nexus
			if addr := device.NormalizeAddress(p.TargetPort); addr != "" {
				d.TargetPort = addr
			}

		case p.DMMPDevice != nil:
			d.MultipathAlias = *p.DMMPDevice
		}
	}

	// Seen on VMs whose disks report neither serial nor WWN.
	if d.RawPath == "" && d.LogicalPath == "" {
		log.Debug().Str("product", d.Product).Str("serial", d.SerialNumber).Msg("dropping device without an addressable path")
		return out
	}
	return append(out, d)
}

func matches(d *device.Device, f Filters) bool {
	if f.Product != "" && !strings.Contains(d.Product, f.Product) {
		return false
	}
	if f.Vendor != "" && !strings.Contains(d.Vendor, f.Vendor) {
		return false
	}
	if f.Serial != "" && !strings.Contains(d.SerialNumber, f.Serial) {
		return false
	}
	if f.TargetPort != "" && !strings.Contains(d.TargetPort, device.NormalizeAddress(f.TargetPort)) {
		return false
	}
	if f.FirmwareVersion != "" {
		fw := d.FirmwareVersion
		if fw == "" {
			fw = d.FirmwareRevision
		}
		if !strings.Contains(fw, f.FirmwareVersion) {
			return false
		}
	}
	return true
}
