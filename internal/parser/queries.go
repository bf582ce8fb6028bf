package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sigreer/sptinv/internal/device"
)

// Inquiry is the subset of standard INQUIRY data kept in the inventory.
type Inquiry struct {
	Description string `json:"Peripheral Device Type Description"`
	Product     string `json:"Product Identification"`
	Vendor      string `json:"Vendor Identification"`
	Revision    string `json:"Firmware Revision Level"`
	// Some vendors (HGST, Sandisk) append the serial number to the
	// standard inquiry data.
	Serial string `json:"Serial Number"`
}

// ParseInquiry parses `spt dsf=<dev> inquiry ofmt=json`.
func ParseInquiry(data []byte) (Inquiry, error) {
	var doc struct {
		Inquiry *Inquiry `json:"Inquiry"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return Inquiry{}, fmt.Errorf("%w: inquiry: %v", ErrMalformedOutput, err)
	}
	if doc.Inquiry == nil {
		return Inquiry{}, fmt.Errorf("%w: inquiry: missing Inquiry object", ErrMalformedOutput)
	}
	inq := *doc.Inquiry
	inq.Product = strings.TrimSpace(inq.Product)
	inq.Vendor = strings.TrimSpace(inq.Vendor)
	inq.Revision = strings.TrimSpace(inq.Revision)
	inq.Serial = strings.TrimSpace(inq.Serial)
	return inq, nil
}

// ParseSerialPage parses `inquiry page=serial` (VPD page 0x80).
func ParseSerialPage(data []byte) (string, error) {
	var doc struct {
		SerialNumber *struct {
			Serial string `json:"Product Serial Number"`
		} `json:"Serial Number"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: serial page: %v", ErrMalformedOutput, err)
	}
	if doc.SerialNumber == nil {
		return "", fmt.Errorf("%w: serial page: missing Serial Number object", ErrMalformedOutput)
	}
	return strings.TrimSpace(doc.SerialNumber.Serial), nil
}

// number decodes JSON numbers that some tool versions print as strings.
type number uint64

func (n *number) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return err
	}
	*n = number(v)
	return nil
}

// ParseReadCapacity parses `readcapacity16 ofmt=json` into the block count
// and logical block length.
func ParseReadCapacity(data []byte) (blocks uint64, blockLength uint32, err error) {
	var doc struct {
		Capacity *struct {
			Maximum     number `json:"Maximum Capacity"`
			BlockLength number `json:"Block Length"`
		} `json:"Read Capacity(16)"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return 0, 0, fmt.Errorf("%w: read capacity: %v", ErrMalformedOutput, err)
	}
	if doc.Capacity == nil {
		return 0, 0, fmt.Errorf("%w: read capacity: missing Read Capacity(16) object", ErrMalformedOutput)
	}
	return uint64(doc.Capacity.Maximum), uint32(doc.Capacity.BlockLength), nil
}

// ParseLogSenseTemperature parses `logsense page=temperature ofmt=json
// rfmt=brief` and returns e.g. "39 C".
func ParseLogSenseTemperature(data []byte) (string, error) {
	var doc struct {
		Temperature *struct {
			Current string `json:"Current Temperature"`
		} `json:"Temperature"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: temperature page: %v", ErrMalformedOutput, err)
	}
	if doc.Temperature == nil {
		return "", fmt.Errorf("%w: temperature page: missing Temperature object", ErrMalformedOutput)
	}
	// "39 Celsius"
	fields := strings.Fields(doc.Temperature.Current)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0] + " C", nil
}

// ParseDeviceIDPage returns the first SAS identifier from `inquiry
// page=deviceid ofmt=json` (VPD page 0x83), normalized. Pages without a
// SAS descriptor yield "".
func ParseDeviceIDPage(data []byte) (string, error) {
	var doc struct {
		DeviceID *struct {
			Descriptors []struct {
				Protocol string `json:"Protocol Identifier Description"`
				IEEE     string `json:"IEEE Registered Identifier"`
			} `json:"Identifier Descriptor List"`
		} `json:"Device Identification"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("%w: device id page: %v", ErrMalformedOutput, err)
	}
	if doc.DeviceID == nil {
		return "", fmt.Errorf("%w: device id page: missing Device Identification object", ErrMalformedOutput)
	}
	for _, desc := range doc.DeviceID.Descriptors {
		if desc.Protocol == "SAS Serial SCSI Protocol" && desc.IEEE != "" {
			return device.NormalizeAddress(desc.IEEE), nil
		}
	}
	return "", nil
}
