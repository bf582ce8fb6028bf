package parser

import (
	"regexp"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sigreer/sptinv/internal/device"
)

// LsscsiOptions selects which lines of lsscsi output become devices.
type LsscsiOptions struct {
	IncludeEnclosures bool
	// Drives, when set, keeps only these block devices.
	Drives []string
	// Exclude drops these block devices.
	Exclude []string
}

// gluedType finds a device type run together with the H:C:T:L column, as
// lsscsi prints once the target number gets wide:
//
//	[15:0:53597:0]disk    sas:0x5000cca23b359649  /dev/sdg   /dev/sg6
var gluedType = regexp.MustCompile(`(disk|\(0x14\)|enclosu)`)

// column positions within one lsscsi line
type layout struct {
	kind      string
	transport int
	block     int
	generic   int
}

// ParseLsscsi parses `lsscsi --generic --transport` output:
//
//	[0:0:0:0]    disk    sas:0x5000cca25103b471  /dev/sda   /dev/sg0
//	[0:0:14:0]   enclosu sas:0x5001636001caa0bd  -          /dev/sg14
//	[1:0:0:0]    disk                            /dev/sdk   /dev/sg11
//	[15:0:53597:0]disk   sas:0x5000cca23b359649  /dev/sdg   /dev/sg6
//	[15:0:1:0]disk                               /dev/sdk   /dev/sg11
//
// Lines matching no known layout are logged and skipped.
func ParseLsscsi(log zerolog.Logger, out string, opts LsscsiOptions) []*device.Device {
	var devices []*device.Device

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		l, ok := lsscsiLayout(fields)
		if !ok {
			log.Debug().Str("line", line).Msg("skipping unrecognised lsscsi line")
			continue
		}

		t, ok := device.ParseType(l.kind)
		if !ok {
			continue
		}
		if t == device.TypeEnclosure && !opts.IncludeEnclosures {
			continue
		}

		d := device.New(t)

		if l.transport >= 0 && strings.HasPrefix(fields[l.transport], "sas:") {
			d.TargetPort = device.NormalizeAddress(fields[l.transport][4:])
		}

		// Enclosures have no block driver and show "-".
		if block := fields[l.block]; strings.HasPrefix(block, "/dev/") {
			if len(opts.Drives) > 0 && !slices.Contains(opts.Drives, block) {
				continue
			}
			if slices.Contains(opts.Exclude, block) {
				continue
			}
			d.LogicalPath = block
		} else if t == device.TypeDisk && len(opts.Drives) > 0 {
			continue
		}

		if generic := fields[l.generic]; strings.HasPrefix(generic, "/dev/sg") {
			d.RawPath = generic
		}

		devices = append(devices, d)
	}

	return devices
}

// lsscsiLayout tries the fixed column layouts first and falls back to
// scanning the first token for a glued device type.
func lsscsiLayout(fields []string) (layout, bool) {
	switch {
	case len(fields) >= 5:
		return layout{kind: fields[1], transport: 2, block: 3, generic: 4}, true
	case len(fields) == 4 && isType(fields[1]) && !strings.Contains(fields[2], ":"):
		// Blank transport column, as for some SATA disks on an AHCI port.
		return layout{kind: fields[1], transport: -1, block: 2, generic: 3}, true
	case len(fields) == 4:
		if m := gluedType.FindString(fields[0]); m != "" {
			return layout{kind: m, transport: 1, block: 2, generic: 3}, true
		}
	case len(fields) == 3:
		if m := gluedType.FindString(fields[0]); m != "" {
			return layout{kind: m, transport: -1, block: 1, generic: 2}, true
		}
	}
	return layout{}, false
}

func isType(s string) bool {
	_, ok := device.ParseType(s)
	return ok
}
