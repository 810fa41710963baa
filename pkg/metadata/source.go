package metadata

import (
	"fmt"
	"strings"
)

// SourceType records where an inventory batch came from.
type SourceType string

const (
	SourceDonation SourceType = "donation"
	SourcePurchase SourceType = "purchase"
	SourceTransfer SourceType = "transfer"
)

func (s SourceType) IsValid() bool {
	switch s {
	case SourceDonation, SourcePurchase, SourceTransfer:
		return true
	default:
		return false
	}
}

// NewSourceType normalizes user input; an empty value means a donation.
func NewSourceType(value string) (SourceType, error) {
	normalized := SourceType(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return SourceDonation, nil
	}
	if !normalized.IsValid() {
		return normalized, fmt.Errorf(
			"value not valid, only valid values are: %s, %s, %s",
			SourceDonation, SourcePurchase, SourceTransfer,
		)
	}

	return normalized, nil
}

func (s SourceType) String() string {
	return string(s)
}
