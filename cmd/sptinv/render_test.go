package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sigreer/sptinv/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func fixtureDevices() []device.Device {
	disk := *device.New(device.TypeDisk)
	disk.State = device.Complete
	disk.Description = "Direct Access Block Device"
	disk.LogicalPath = "/dev/sdg"
	disk.RawPath = "/dev/sg6"
	disk.Vendor = "HGST"
	disk.Product = "HUH721010AL4200"
	disk.FirmwareRevision = "A21D"
	disk.FirmwareVersion = "A21D"
	disk.SerialNumber = "7PG3KX9R"
	disk.TargetPort = "5000cca23b359649"
	disk.CapacityBlocks = 19532873728
	disk.BlockLength = 512
	disk.Temperature = "39 C"
	disk.EnclosureDevice = "/dev/sg165"
	disk.EnclosureSlot = "0"
	disk.SlotDescription = "SLOT 000,7PG3KX9R"

	enc := *device.New(device.TypeEnclosure)
	enc.State = device.Complete
	enc.RawPath = "/dev/sg165"
	enc.Vendor = "HGST"
	enc.Product = "H4060-J"
	enc.FirmwareVersion = "3010"
	enc.SerialNumber = "USWSJ03918EZ0069"

	return []device.Device{disk, enc}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, fixtureDevices(), renderOptions{header: true, enclosures: true}))
	out := buf.String()

	assert.Contains(t, out, "Slot Description")
	assert.NotContains(t, out, "SLOT DESCRIPTION")
	assert.Contains(t, out, "/dev/sdg")
	assert.Contains(t, out, "9.1 TiB")
	assert.Contains(t, out, "SLOT 000,7PG3KX9R")
	assert.NotContains(t, out, "USWSJ03918EZ0069", "enclosures are not table rows")
}

func TestRenderTableWithoutEnclosures(t *testing.T) {
	devs := fixtureDevices()[:1]
	devs[0].TargetPort = ""

	var buf bytes.Buffer
	require.NoError(t, render(&buf, devs, renderOptions{header: true}))
	out := buf.String()

	assert.NotContains(t, out, "Enc Device")
	assert.NotContains(t, out, "SAS Address", "no disk has a SAS address")
	assert.Contains(t, out, "7PG3KX9R")
}

func TestRenderNoHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, fixtureDevices(), renderOptions{enclosures: true}))
	out := buf.String()

	assert.NotContains(t, out, "Linux Device")
	assert.Contains(t, out, "/dev/sg6")
	assert.NotContains(t, out, "─")
}

func TestRenderLong(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, fixtureDevices(), renderOptions{format: formatLong}))
	out := buf.String()

	assert.Contains(t, out, "               Linux Device Name: /dev/sdg\n")
	assert.Contains(t, out, "                  Drive Capacity: 19532873728 (9.1 TiB)\n")
	assert.Contains(t, out, "                Slot Description: SLOT 000,7PG3KX9R\n")
	assert.NotContains(t, out, "Power On Hours", "empty fields are skipped")

	blocks := strings.Split(strings.TrimSpace(out), "\n\n")
	require.Len(t, blocks, 2)
	assert.Contains(t, blocks[1], "Device Type: enclosure")
	assert.NotContains(t, blocks[1], "Linux Device Name")
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, fixtureDevices(), renderOptions{format: formatJSON}))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "/dev/sg6", got[0]["scsi_device_name"])
	assert.Equal(t, "SLOT 000,7PG3KX9R", got[0]["slot_description"])
	assert.Equal(t, "enclosure", got[1]["device_type"])
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, fixtureDevices(), renderOptions{format: formatYAML}))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "7PG3KX9R", got[0]["serial_number"])
	assert.Equal(t, "0", got[0]["enclosure_slot"])
}

func TestProbeTable(t *testing.T) {
	records := []probeRecord{
		{Device: "/dev/sg6", Serial: "7PG3KX9R", Product: "HUH721010AL4200", Capacity: 19532873728},
		{Device: "/dev/sg34", ExitCode: 1, Error: "readcapacity16 failed"},
	}

	out := probeTable(records, true)
	assert.Contains(t, out, "Serial Number")
	assert.NotContains(t, out, "SERIAL NUMBER")
	assert.Contains(t, out, "readcapacity16 failed")

	bare := probeTable(records, false)
	assert.NotContains(t, bare, "Serial Number")
	assert.Contains(t, bare, "/dev/sg34")
}
