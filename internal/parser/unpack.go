package parser

import (
	"fmt"
	"strings"
)

// ParseIdentifyUnpack parses the output of an ATA IDENTIFY DEVICE passed
// through SAT and unpacked with "%C:20:20 %C:46:8": the serial number
// (bytes 20-39) and firmware revision (bytes 46-53), space separated.
func ParseIdentifyUnpack(out string) (serial, firmware string, err error) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return "", "", fmt.Errorf("%w: identify unpack: want 2 tokens, got %d in %q", ErrMalformedOutput, len(fields), out)
	}
	return fields[0], fields[1], nil
}

// ParseUnpackTemperature parses the single byte unpacked with "%B:200"
// from the SMART SCT status log. Empty output yields "".
func ParseUnpackTemperature(out string) string {
	t := strings.TrimSpace(out)
	if t == "" {
		return ""
	}
	return t + " C"
}

// ParsePowerOnHours pulls RAW_VALUE out of the Power_On_Hours row of
// `smartctl --attributes`:
//
//	  9 Power_On_Hours          0x0032   100   100   000    Old_age   Always       -       13796
func ParsePowerOnHours(out string) string {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "Power_On_Hours") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 10 {
			return fields[9]
		}
	}
	return ""
}
