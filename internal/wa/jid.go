// Package wa centralizes WhatsApp identifier heuristics: classifying raw
// numbers and formatting chat JIDs. Keeping the rules in one place makes the
// linked-device detection testable instead of being inlined at call sites.
package wa

import "strings"

// Kind tags what a raw number string represents.
type Kind int

const (
	Invalid Kind = iota
	PersonalNumber
	GroupID
	LinkedDeviceArtifact
)

func (k Kind) String() string {
	switch k {
	case PersonalNumber:
		return "personal"
	case GroupID:
		return "group"
	case LinkedDeviceArtifact:
		return "linked_device"
	default:
		return "invalid"
	}
}

const (
	// Personal numbers are country code 55 + two-digit area code + 8 or 9
	// digit subscriber number.
	minPersonalDigits = 12
	maxPersonalDigits = 13

	countryCode = "55"
)

// Classification is the result of inspecting one raw number.
type Classification struct {
	Kind   Kind
	Number string // digits only
	Reason string // set when Kind == Invalid
}

// Classify normalizes a raw number to digits and tags it.
//
// Identifiers longer than 13 digits are either group ids or linked-device
// artifacts: a group chat id when the caller knows the chat is a group,
// otherwise the internal id WhatsApp mints for a secondary device. The two
// are indistinguishable from the digits alone, which is exactly why artifact
// contacts get created in the first place.
func Classify(number string, isGroup bool) Classification {
	digits := digitsOnly(number)

	if len(digits) > maxPersonalDigits {
		if isGroup {
			return Classification{Kind: GroupID, Number: digits}
		}
		return Classification{Kind: LinkedDeviceArtifact, Number: digits}
	}

	if len(digits) < minPersonalDigits {
		return Classification{
			Kind:   Invalid,
			Number: digits,
			Reason: "too short for a personal number",
		}
	}

	if !strings.HasPrefix(digits, countryCode) {
		return Classification{
			Kind:   Invalid,
			Number: digits,
			Reason: "missing country code " + countryCode,
		}
	}

	area := int(digits[2]-'0')*10 + int(digits[3]-'0')
	if area < 11 {
		return Classification{
			Kind:   Invalid,
			Number: digits,
			Reason: "invalid area code",
		}
	}

	return Classification{Kind: PersonalNumber, Number: digits}
}

// JID formats a normalized number as a chat JID.
func JID(number string, isGroup bool) string {
	if isGroup {
		return number + "@g.us"
	}
	return number + "@s.whatsapp.net"
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
