package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/sigreer/sptinv/internal/device"
	"gopkg.in/yaml.v3"
)

type outputFormat int

const (
	formatTable outputFormat = iota
	formatLong
	formatJSON
	formatYAML
)

type renderOptions struct {
	format outputFormat
	header bool
	// enclosures adds the enclosure columns to the table.
	enclosures bool
}

func render(w io.Writer, devs []device.Device, opts renderOptions) error {
	switch opts.format {
	case formatJSON:
		return writeJSON(w, devs)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(devs); err != nil {
			return err
		}
		return enc.Close()
	case formatLong:
		return renderLong(w, devs)
	default:
		_, err := fmt.Fprintln(w, renderTable(devs, opts))
		return err
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderTable lists disks only. The SAS address column is dropped when no
// disk has one, as on an all-SATA host.
func renderTable(devs []device.Device, opts renderOptions) string {
	sas := false
	for _, d := range devs {
		if d.IsDisk() && d.TargetPort != "" {
			sas = true
			break
		}
	}

	header := table.Row{"Linux Device", "SCSI Device", "Vendor", "Product", "Firmware", "Capacity", "Block", "Temp", "Serial Number"}
	if sas || opts.enclosures {
		header = append(header, "SAS Address")
	}
	if opts.enclosures {
		header = append(header, "Enc Device", "Slot", "Slot Description")
	}

	t := table.NewWriter()
	if opts.header {
		t.AppendHeader(header)
	}
	for _, d := range devs {
		if !d.IsDisk() {
			continue
		}
		row := table.Row{
			orDash(d.LogicalPath),
			orDash(d.RawPath),
			d.Vendor,
			d.Product,
			d.FirmwareVersion,
			capacity(d),
			d.BlockLength,
			orDash(d.Temperature),
			d.SerialNumber,
		}
		if sas || opts.enclosures {
			row = append(row, orDash(d.TargetPort))
		}
		if opts.enclosures {
			row = append(row, orDash(d.EnclosureDevice), orDash(d.EnclosureSlot), d.SlotDescription)
		}
		t.AppendRow(row)
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	styleTable(t, opts.header)
	return t.Render()
}

func capacity(d device.Device) string {
	if d.CapacityBlocks == 0 {
		return "-"
	}
	return humanize.IBytes(d.CapacityBlocks * uint64(d.BlockLength))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

type field struct {
	label string
	value string
}

// renderLong prints one block of right-aligned labels per device. Empty
// fields are left out.
func renderLong(w io.Writer, devs []device.Device) error {
	for _, d := range devs {
		for _, f := range longFields(d) {
			if f.value == "" {
				continue
			}
			if _, err := fmt.Fprintf(w, "%32s: %s\n", f.label, f.value); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func longFields(d device.Device) []field {
	fields := []field{
		{"Device Type", string(d.Type)},
		{"Device Description", d.Description},
	}
	if d.IsDisk() {
		fields = append(fields, field{"Linux Device Name", d.LogicalPath})
	}
	fields = append(fields,
		field{"SCSI Device Name", d.RawPath},
		field{"Multipath Device", d.MultipathAlias},
		field{"Product Identification", d.Product},
		field{"Vendor Identification", d.Vendor},
		field{"Firmware Version", d.FirmwareVersion},
		field{"Serial Number", d.SerialNumber},
		field{"World Wide Name", d.WWN},
	)
	if d.IsEnclosure() {
		return append(fields, field{"SAS Address", d.TargetPort})
	}

	var blocks, blockLen string
	if d.CapacityBlocks > 0 {
		blocks = fmt.Sprintf("%d (%s)", d.CapacityBlocks, capacity(d))
		blockLen = strconv.FormatUint(uint64(d.BlockLength), 10)
	}
	return append(fields,
		field{"Drive Capacity", blocks},
		field{"Block Length", blockLen},
		field{"Power On Hours", d.PowerOnHours},
		field{"Current Temperature", d.Temperature},
		field{"SAS Address", d.TargetPort},
		field{"Enclosure Device", d.EnclosureDevice},
		field{"Enclosure Slot", d.EnclosureSlot},
		field{"Slot Description", d.SlotDescription},
	)
}

// styleTable keeps header text as written; StyleLight would upper-case it.
func styleTable(t table.Writer, header bool) {
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	if !header {
		t.Style().Options = table.OptionsNoBordersAndSeparators
	}
}
