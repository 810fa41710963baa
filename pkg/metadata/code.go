package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	AppealPrefix    = "APP"
	InventoryPrefix = "INV"

	codeWidth = 6
)

// Code is a human readable sequential identifier such as APP000042.
type Code struct {
	prefix string
	number int64
}

func NewCode(prefix string, number int64) Code {
	return Code{prefix: prefix, number: number}
}

func NewAppealCode(number int64) Code {
	return NewCode(AppealPrefix, number)
}

func NewInventoryCode(number int64) Code {
	return NewCode(InventoryPrefix, number)
}

// String pads the number to six digits; larger numbers keep all their digits.
func (c Code) String() string {
	return fmt.Sprintf("%s%0*d", c.prefix, codeWidth, c.number)
}

func (c Code) Number() int64 {
	return c.number
}

// ParseCode splits a code produced by String back into its number.
func ParseCode(prefix, value string) (Code, error) {
	if !strings.HasPrefix(value, prefix) {
		return Code{}, fmt.Errorf("code %q does not start with %s", value, prefix)
	}
	digits := strings.TrimPrefix(value, prefix)
	if len(digits) < codeWidth {
		return Code{}, fmt.Errorf("code %q is shorter than %d digits", value, codeWidth)
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n <= 0 {
		return Code{}, fmt.Errorf("code %q has invalid number", value)
	}

	return NewCode(prefix, n), nil
}
