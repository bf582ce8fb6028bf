package ses

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var (
	ErrMalformedPage = errors.New("malformed SES page")
	ErrUnknownPolicy = errors.New("unknown slot index policy")
)

// Enclosure holds the two array-device-slot pages fetched from one SES
// device.
type Enclosure struct {
	// Device is the enclosure's generic path, e.g. /dev/sg165.
	Device     string
	Elements   []ElementDescriptor
	Additional []ArraySlot
}

// ElementDescriptor is one entry of the Element Descriptor page, in element
// index order. Index 0 is the overall descriptor for the element type.
type ElementDescriptor struct {
	Text string `json:"Descriptor Text"`
}

// ArraySlot is one array device slot of the Additional Element Status page.
type ArraySlot struct {
	ElementIndex int `json:"Element Index"`
	// IncludesOverall is the EIIOE bit: set when ElementIndex already
	// counts the overall descriptor.
	IncludesOverall bool            `json:"Element Index Includes Overall"`
	SlotNumber      int             `json:"Device Slot Number"`
	Phys            []PhyDescriptor `json:"Descriptor List"`
}

// PhyDescriptor is a SAS phy attached to a slot.
type PhyDescriptor struct {
	SASAddress string `json:"SAS Address"`
}

// UnmarshalJSON accepts the numeric fields as numbers or strings and the
// flag as a bool or 0/1.
func (s *ArraySlot) UnmarshalJSON(b []byte) error {
	var raw struct {
		ElementIndex    json.RawMessage `json:"Element Index"`
		IncludesOverall json.RawMessage `json:"Element Index Includes Overall"`
		SlotNumber      json.RawMessage `json:"Device Slot Number"`
		Phys            []PhyDescriptor `json:"Descriptor List"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	var err error
	if s.ElementIndex, err = flexInt(raw.ElementIndex); err != nil {
		return err
	}
	if s.SlotNumber, err = flexInt(raw.SlotNumber); err != nil {
		return err
	}
	s.IncludesOverall = flexBool(raw.IncludesOverall)
	s.Phys = raw.Phys
	return nil
}

func flexInt(raw json.RawMessage) (int, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	return strconv.Atoi(strings.TrimSpace(string(bytes.Trim(raw, `"`))))
}

func flexBool(raw json.RawMessage) bool {
	switch strings.ToLower(string(bytes.Trim(raw, `"`))) {
	case "true", "1", "yes":
		return true
	}
	return false
}
