package parser

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/sigreer/sptinv/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lsscsiOutput = `[0:0:0:0]    disk    sas:0x5000cca25103b471          /dev/sda   /dev/sg0
[0:0:1:0]    disk    sas:0x5000cca251029301          /dev/sdb   /dev/sg1
[0:0:14:0]   enclosu sas:0x5001636001caa0bd          -          /dev/sg14
[1:0:0:0]    disk                                    /dev/sdk   /dev/sg11
[7:0:0:0]    cd/dvd  usb: 1-1.3:1.2                  /dev/sr0   /dev/sg15
[15:0:53597:0]disk    sas:0x5000cca23b359649          /dev/sdg   /dev/sg6
[15:0:53686:0]enclosu sas:0x5000ccab040001bc          -          /dev/sg165
[16:0:2:0]   (0x14)  sas:0x5000cca0bc0a1d22          /dev/sdz   /dev/sg30
garbage
`

func TestParseLsscsi(t *testing.T) {
	devices := ParseLsscsi(zerolog.Nop(), lsscsiOutput, LsscsiOptions{IncludeEnclosures: true})
	require.Len(t, devices, 7)

	byRaw := map[string]*device.Device{}
	for _, d := range devices {
		byRaw[d.RawPath] = d
	}

	t.Run("fixed columns", func(t *testing.T) {
		d := byRaw["/dev/sg0"]
		require.NotNil(t, d)
		assert.Equal(t, device.TypeDisk, d.Type)
		assert.Equal(t, "5000cca25103b471", d.TargetPort)
		assert.Equal(t, "/dev/sda", d.LogicalPath)
	})

	t.Run("glued type column", func(t *testing.T) {
		d := byRaw["/dev/sg6"]
		require.NotNil(t, d)
		assert.Equal(t, device.TypeDisk, d.Type)
		assert.Equal(t, "5000cca23b359649", d.TargetPort)
		assert.Equal(t, "/dev/sdg", d.LogicalPath)
		assert.Equal(t, "/dev/sg6", d.RawPath)
	})

	t.Run("glued enclosure", func(t *testing.T) {
		d := byRaw["/dev/sg165"]
		require.NotNil(t, d)
		assert.Equal(t, device.TypeEnclosure, d.Type)
		assert.Empty(t, d.LogicalPath)
		assert.Equal(t, "5000ccab040001bc", d.TargetPort)
	})

	t.Run("missing transport", func(t *testing.T) {
		d := byRaw["/dev/sg11"]
		require.NotNil(t, d)
		assert.Equal(t, device.TypeDisk, d.Type)
		assert.Empty(t, d.TargetPort)
		assert.Equal(t, "/dev/sdk", d.LogicalPath)
	})

	t.Run("host managed", func(t *testing.T) {
		d := byRaw["/dev/sg30"]
		require.NotNil(t, d)
		assert.Equal(t, device.TypeDisk, d.Type)
	})

	t.Run("non storage skipped", func(t *testing.T) {
		assert.Nil(t, byRaw["/dev/sg15"])
	})
}

func TestParseLsscsiGluedWithoutTransport(t *testing.T) {
	out := "[15:0:1:0]disk                               /dev/sdk   /dev/sg11\n" +
		"[15:0:2:0]enclosu                            -          /dev/sg12\n" +
		"[15:0:3:0]cd/dvd                             /dev/sr0   /dev/sg13\n"

	devices := ParseLsscsi(zerolog.Nop(), out, LsscsiOptions{IncludeEnclosures: true})
	require.Len(t, devices, 2)

	assert.Equal(t, device.TypeDisk, devices[0].Type)
	assert.Equal(t, "/dev/sdk", devices[0].LogicalPath)
	assert.Equal(t, "/dev/sg11", devices[0].RawPath)
	assert.Empty(t, devices[0].TargetPort)

	assert.Equal(t, device.TypeEnclosure, devices[1].Type)
	assert.Empty(t, devices[1].LogicalPath)
	assert.Equal(t, "/dev/sg12", devices[1].RawPath)
}

func TestParseLsscsiOptions(t *testing.T) {
	t.Run("without enclosures", func(t *testing.T) {
		devices := ParseLsscsi(zerolog.Nop(), lsscsiOutput, LsscsiOptions{})
		for _, d := range devices {
			assert.Equal(t, device.TypeDisk, d.Type)
		}
		assert.Len(t, devices, 5)
	})

	t.Run("drives", func(t *testing.T) {
		devices := ParseLsscsi(zerolog.Nop(), lsscsiOutput, LsscsiOptions{Drives: []string{"/dev/sdb", "/dev/sdg"}, IncludeEnclosures: true})
		var names []string
		for _, d := range devices {
			if d.IsDisk() {
				names = append(names, d.LogicalPath)
			}
		}
		assert.Equal(t, []string{"/dev/sdb", "/dev/sdg"}, names)
	})

	t.Run("exclude", func(t *testing.T) {
		devices := ParseLsscsi(zerolog.Nop(), lsscsiOutput, LsscsiOptions{Exclude: []string{"/dev/sda"}})
		for _, d := range devices {
			assert.NotEqual(t, "/dev/sda", d.LogicalPath)
		}
		assert.Len(t, devices, 4)
	})
}

func TestLsscsiLayout(t *testing.T) {
	tests := []struct {
		name string
		line []string
		ok   bool
		want layout
	}{
		{"five columns", []string{"[0:0:0:0]", "disk", "sas:0x1", "/dev/sda", "/dev/sg0"}, true, layout{"disk", 2, 3, 4}},
		{"glued", []string{"[15:0:1:0]disk", "sas:0x1", "/dev/sda", "/dev/sg0"}, true, layout{"disk", 1, 2, 3}},
		{"blank transport", []string{"[1:0:0:0]", "disk", "/dev/sdk", "/dev/sg11"}, true, layout{"disk", -1, 2, 3}},
		{"unknown", []string{"[1:0:0:0]cd/dvd", "usb:", "/dev/sr0", "/dev/sg1"}, false, layout{}},
		{"too short", []string{"[1:0:0:0]disk", "/dev/sg1"}, false, layout{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := lsscsiLayout(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
