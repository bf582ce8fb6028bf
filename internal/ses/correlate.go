// Package ses locates disks in SES enclosures by matching a disk's SAS
// address against the phy descriptors an enclosure reports per slot.
package ses

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sigreer/sptinv/internal/device"
)

// Location is where a disk was found.
type Location struct {
	Enclosure string
	Slot      int
	// ElementIndex is the policy-adjusted index into the enclosure's
	// Element Descriptor page.
	ElementIndex int
}

type Correlator struct {
	log        zerolog.Logger
	enclosures []*Enclosure
	policy     SlotIndexPolicy
}

// NewCorrelator walks enclosures in the order given. A nil policy means
// OverallAdjust.
func NewCorrelator(log zerolog.Logger, enclosures []*Enclosure, policy SlotIndexPolicy) *Correlator {
	if policy == nil {
		policy = OverallAdjust
	}
	return &Correlator{log: log, enclosures: enclosures, policy: policy}
}

// LocateSlot finds the slot whose phy list carries addr. A disk outside
// any managed enclosure, such as a boot disk, is not found. So is an
// address reported in two different bays, which is logged.
func (c *Correlator) LocateSlot(addr string) (Location, bool) {
	want := device.NormalizeAddress(addr)
	if want == "" {
		return Location{}, false
	}

	var found Location
	var hits int
	for _, enc := range c.enclosures {
		for _, slot := range enc.Additional {
			for _, phy := range slot.Phys {
				if device.NormalizeAddress(phy.SASAddress) != want {
					continue
				}
				loc := Location{Enclosure: enc.Device, Slot: slot.SlotNumber, ElementIndex: c.policy(enc, slot)}
				if hits == 0 {
					found = loc
				} else if !c.sameBay(found, loc) {
					c.log.Warn().Str("sas_address", want).
						Str("first", found.Enclosure).Int("first_slot", found.Slot).
						Str("second", loc.Enclosure).Int("second_slot", loc.Slot).
						Msg("SAS address reported in more than one bay, leaving disk unlocated")
					return Location{}, false
				}
				hits++
			}
		}
	}
	return found, hits > 0
}

// sameBay reports whether two matches describe the same physical bay, as
// happens when both IOMs of one shelf expose an SES device.
func (c *Correlator) sameBay(a, b Location) bool {
	if a.Enclosure == b.Enclosure {
		return a.Slot == b.Slot && a.ElementIndex == b.ElementIndex
	}
	return a.Slot == b.Slot &&
		c.SlotDescription(a.Enclosure, a.ElementIndex) == c.SlotDescription(b.Enclosure, b.ElementIndex)
}

// SlotDescription returns the descriptor text at elementIndex in the
// named enclosure's Element Descriptor page, or "" when out of range.
func (c *Correlator) SlotDescription(enclosure string, elementIndex int) string {
	for _, enc := range c.enclosures {
		if enc.Device != enclosure {
			continue
		}
		if elementIndex < 0 || elementIndex >= len(enc.Elements) {
			return ""
		}
		return strings.TrimSpace(enc.Elements[elementIndex].Text)
	}
	return ""
}

// Correlate fills in the enclosure fields of a disk. It reports whether
// the disk was located; unlocated disks keep empty enclosure fields.
func (c *Correlator) Correlate(d *device.Device) bool {
	loc, ok := c.LocateSlot(d.TargetPort)
	if !ok {
		d.SetElementIndex(-1)
		return false
	}
	d.EnclosureDevice = loc.Enclosure
	d.EnclosureSlot = strconv.Itoa(loc.Slot)
	d.SlotDescription = c.SlotDescription(loc.Enclosure, loc.ElementIndex)
	d.SetElementIndex(loc.ElementIndex)
	return true
}
