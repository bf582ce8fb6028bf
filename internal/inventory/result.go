package inventory

import (
	"time"

	"github.com/sigreer/sptinv/internal/device"
)

// Result is the outcome of one Build.
type Result struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	// Errors aggregates the per-device failures; nil when there were none.
	Errors error

	records []*device.Device
}

// Devices returns copies of the complete records in discovery order.
// Failed and partially queried records are never included.
func (r *Result) Devices() []device.Device {
	var out []device.Device
	for _, d := range r.records {
		if d.IsComplete() {
			out = append(out, *d)
		}
	}
	return out
}

// HasEnclosures reports whether any complete enclosure record exists.
func (r *Result) HasEnclosures() bool {
	return r.NumberEnclosures() > 0
}

// NumberDrives counts physical drives: paths sharing a serial number, or
// failing that a WWN or target port, count once.
func (r *Result) NumberDrives() int {
	seen := make(map[string]bool)
	n := 0
	for _, d := range r.records {
		if !d.IsDisk() || !d.IsComplete() {
			continue
		}
		key := driveKey(d)
		if key == "" {
			n++
			continue
		}
		if !seen[key] {
			seen[key] = true
			n++
		}
	}
	return n
}

func driveKey(d *device.Device) string {
	switch {
	case d.SerialNumber != "":
		return "serial:" + d.SerialNumber
	case d.WWN != "":
		return "wwn:" + d.WWN
	case d.TargetPort != "":
		return "sas:" + d.TargetPort
	default:
		return ""
	}
}

func (r *Result) NumberEnclosures() int {
	n := 0
	for _, d := range r.records {
		if d.IsEnclosure() && d.IsComplete() {
			n++
		}
	}
	return n
}

func (r *Result) NumberFailed() int {
	n := 0
	for _, d := range r.records {
		if d.State == device.Failed {
			n++
		}
	}
	return n
}
