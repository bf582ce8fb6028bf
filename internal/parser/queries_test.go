package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInquiry(t *testing.T) {
	inq, err := ParseInquiry([]byte(`{"Inquiry": {
		"Peripheral Device Type Description": "Direct Access Block Device",
		"Product Identification": "HUSMR1650ASS204 ",
		"Vendor Identification": "HGST    ",
		"Firmware Revision Level": "C27E",
		"Serial Number": "0MV0ABCD "}}`))
	require.NoError(t, err)
	assert.Equal(t, Inquiry{
		Description: "Direct Access Block Device",
		Product:     "HUSMR1650ASS204",
		Vendor:      "HGST",
		Revision:    "C27E",
		Serial:      "0MV0ABCD",
	}, inq)

	_, err = ParseInquiry([]byte(`{"Capacity": {}}`))
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestParseSerialPage(t *testing.T) {
	serial, err := ParseSerialPage([]byte(`{"Serial Number": {"Product Serial Number": "  ZC11ABCD"}}`))
	require.NoError(t, err)
	assert.Equal(t, "ZC11ABCD", serial)

	_, err = ParseSerialPage([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestParseReadCapacity(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		blocks uint64
		length uint32
	}{
		{"numbers", `{"Read Capacity(16)": {"Maximum Capacity": 2441609216, "Block Length": 4096}}`, 2441609216, 4096},
		{"strings", `{"Read Capacity(16)": {"Maximum Capacity": "7814037168", "Block Length": "512"}}`, 7814037168, 512},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, length, err := ParseReadCapacity([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.blocks, blocks)
			assert.Equal(t, tt.length, length)
		})
	}

	_, _, err := ParseReadCapacity([]byte(`{"Read Capacity(16)": {"Maximum Capacity": "lots"}}`))
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestParseLogSenseTemperature(t *testing.T) {
	temp, err := ParseLogSenseTemperature([]byte(`{"Temperature": {"Current Temperature": "39 Celsius", "Reference Temperature": "60 Celsius"}}`))
	require.NoError(t, err)
	assert.Equal(t, "39 C", temp)

	_, err = ParseLogSenseTemperature([]byte(`{}`))
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestParseDeviceIDPage(t *testing.T) {
	page := `{"Device Identification": {"Identifier Descriptor List": [
		{"Protocol Identifier Description": "Fibre Channel", "IEEE Registered Identifier": "0x1"},
		{"Protocol Identifier Description": "SAS Serial SCSI Protocol", "IEEE Registered Identifier": "0x5000CCA23B359649"}
	]}}`
	addr, err := ParseDeviceIDPage([]byte(page))
	require.NoError(t, err)
	assert.Equal(t, "5000cca23b359649", addr)

	addr, err = ParseDeviceIDPage([]byte(`{"Device Identification": {"Identifier Descriptor List": []}}`))
	require.NoError(t, err)
	assert.Empty(t, addr)

	_, err = ParseDeviceIDPage([]byte(`{"Inquiry": {}}`))
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestParseIdentifyUnpack(t *testing.T) {
	serial, fw, err := ParseIdentifyUnpack("ZC11ABCD             TN03    \n")
	require.NoError(t, err)
	assert.Equal(t, "ZC11ABCD", serial)
	assert.Equal(t, "TN03", fw)

	for _, bad := range []string{"", "ONLYONE\n", "A B C\n"} {
		_, _, err := ParseIdentifyUnpack(bad)
		assert.ErrorIs(t, err, ErrMalformedOutput, bad)
	}
}

func TestParseUnpackTemperature(t *testing.T) {
	assert.Equal(t, "34 C", ParseUnpackTemperature("34\n"))
	assert.Equal(t, "", ParseUnpackTemperature("\n"))
}

func TestParsePowerOnHours(t *testing.T) {
	out := `ID# ATTRIBUTE_NAME          FLAG     VALUE WORST THRESH TYPE      UPDATED  WHEN_FAILED RAW_VALUE
  1 Raw_Read_Error_Rate     0x000b   100   100   016    Pre-fail  Always       -       0
  9 Power_On_Hours          0x0032   100   100   000    Old_age   Always       -       13796
`
	assert.Equal(t, "13796", ParsePowerOnHours(out))
	assert.Equal(t, "", ParsePowerOnHours("SMART support is: Unavailable\n"))
}
