package ses

import (
	"encoding/json"
	"fmt"
)

// ParseElementDescriptors parses
// `spt dsf=<enc> rcvdiag page=element etype=array ofmt=json`.
func ParseElementDescriptors(data []byte) ([]ElementDescriptor, error) {
	var doc struct {
		Page *struct {
			Array struct {
				List []ElementDescriptor `json:"Descriptor List"`
			} `json:"Array Device Slot"`
		} `json:"Element Descriptor"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: element descriptor: %v", ErrMalformedPage, err)
	}
	if doc.Page == nil {
		return nil, fmt.Errorf("%w: element descriptor: missing page", ErrMalformedPage)
	}
	return doc.Page.Array.List, nil
}

// ParseAdditionalElementStatus parses
// `spt dsf=<enc> rcvdiag page=addl_element_status etype=array ofmt=json`.
func ParseAdditionalElementStatus(data []byte) ([]ArraySlot, error) {
	var doc struct {
		Page *struct {
			Array struct {
				List []ArraySlot `json:"Descriptor List"`
			} `json:"Array Device Slot"`
		} `json:"Additional Element Status"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: additional element status: %v", ErrMalformedPage, err)
	}
	if doc.Page == nil {
		return nil, fmt.Errorf("%w: additional element status: missing page", ErrMalformedPage)
	}
	return doc.Page.Array.List, nil
}
