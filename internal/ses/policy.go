package ses

import "fmt"

// SlotIndexPolicy turns the element index reported in the Additional
// Element Status page into an index into the Element Descriptor page.
//
// Enclosure firmware disagrees on whether that index counts the overall
// descriptor at position 0. New enclosure families may need their own
// policy.
type SlotIndexPolicy func(enc *Enclosure, slot ArraySlot) int

// OverallAdjust adds one when the enclosure says the index does not
// include the overall descriptor. This is the default.
func OverallAdjust(_ *Enclosure, slot ArraySlot) int {
	if !slot.IncludesOverall {
		return slot.ElementIndex + 1
	}
	return slot.ElementIndex
}

// NoAdjust uses the reported index as is.
func NoAdjust(_ *Enclosure, slot ArraySlot) int {
	return slot.ElementIndex
}

// AlwaysAdjust adds one regardless of the flag, for firmware that reports
// the flag wrongly.
func AlwaysAdjust(_ *Enclosure, slot ArraySlot) int {
	return slot.ElementIndex + 1
}

// PolicyByName maps the config names auto, none and always to a policy.
func PolicyByName(name string) (SlotIndexPolicy, error) {
	switch name {
	case "", "auto":
		return OverallAdjust, nil
	case "none":
		return NoAdjust, nil
	case "always":
		return AlwaysAdjust, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
}
