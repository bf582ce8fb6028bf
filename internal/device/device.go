// Package device holds the inventory record and its lifecycle.
package device

import (
	"fmt"
	"strings"
)

// Device is one OS-visible path to a disk or enclosure. A disk reachable
// over N paths appears as N records sharing SerialNumber and TargetPort.
type Device struct {
	Type        Type   `json:"device_type" yaml:"device_type"`
	Description string `json:"device_type_description,omitempty" yaml:"device_type_description,omitempty"`
	State       State  `json:"state" yaml:"state"`

	LogicalPath    string `json:"linux_device_name" yaml:"linux_device_name"`
	RawPath        string `json:"scsi_device_name" yaml:"scsi_device_name"`
	MultipathAlias string `json:"dmmp_device_name,omitempty" yaml:"dmmp_device_name,omitempty"`
	LinuxNexus     string `json:"linux_scsi_nexus,omitempty" yaml:"linux_scsi_nexus,omitempty"`
	Nexus          string `json:"scsi_nexus,omitempty" yaml:"scsi_nexus,omitempty"`

	Vendor           string `json:"vendor_identification" yaml:"vendor_identification"`
	Product          string `json:"product_identification" yaml:"product_identification"`
	FirmwareRevision string `json:"revision_level" yaml:"revision_level"`
	FirmwareVersion  string `json:"firmware_version,omitempty" yaml:"firmware_version,omitempty"`
	SerialNumber     string `json:"serial_number" yaml:"serial_number"`
	WWN              string `json:"device_world_wide_name,omitempty" yaml:"device_world_wide_name,omitempty"`
	TargetPort       string `json:"sas_address" yaml:"sas_address"`

	CapacityBlocks uint64 `json:"drive_capacity,omitempty" yaml:"drive_capacity,omitempty"`
	BlockLength    uint32 `json:"block_length,omitempty" yaml:"block_length,omitempty"`
	Temperature    string `json:"current_temperature,omitempty" yaml:"current_temperature,omitempty"`
	PowerOnHours   string `json:"power_on_hours,omitempty" yaml:"power_on_hours,omitempty"`

	EnclosureDevice string `json:"enclosure_device,omitempty" yaml:"enclosure_device,omitempty"`
	EnclosureSlot   string `json:"enclosure_slot,omitempty" yaml:"enclosure_slot,omitempty"`
	SlotDescription string `json:"slot_description,omitempty" yaml:"slot_description,omitempty"`

	// slot is the element index plus one, so the zero value and a decoded
	// record both read as not located. It is never serialized.
	slot int
}

// New returns a freshly discovered record.
func New(t Type) *Device {
	return &Device{Type: t, State: Discovered}
}

func (d *Device) IsDisk() bool      { return d.Type == TypeDisk }
func (d *Device) IsEnclosure() bool { return d.Type == TypeEnclosure }
func (d *Device) IsComplete() bool  { return d.State == Complete }

// IsATA reports whether the device sits behind a SAT layer, which
// reports "ATA" as its vendor.
func (d *Device) IsATA() bool {
	return strings.Contains(d.Vendor, "ATA")
}

// Path returns the path tool queries should be addressed to: the generic
// device when known, otherwise the block device.
func (d *Device) Path() string {
	if d.RawPath != "" {
		return d.RawPath
	}
	return d.LogicalPath
}

// Name is a short label for logs.
func (d *Device) Name() string {
	if d.LogicalPath != "" {
		return d.LogicalPath
	}
	return d.RawPath
}

// ElementIndex is the adjusted enclosure element index found during slot
// correlation, or -1 when the disk was not located in this process.
func (d *Device) ElementIndex() int { return d.slot - 1 }

// SetElementIndex records i; any negative i means not located.
func (d *Device) SetElementIndex(i int) {
	if i < 0 {
		i = -1
	}
	d.slot = i + 1
}

// Advance moves the device to the immediate successor state.
func (d *Device) Advance(to State) error {
	want, ok := next(d.Type, d.State)
	if !ok || want != to {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, d.Name(), d.State, to)
	}
	d.State = to
	return nil
}

// Fail marks the record as abandoned. Failed records never reach output.
func (d *Device) Fail() {
	d.State = Failed
}

// Clone returns an independent copy of the record.
func (d *Device) Clone() *Device {
	c := *d
	return &c
}
