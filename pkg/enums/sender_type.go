package enums

import "fmt"

// SenderType identifies who wrote a ticket message.
type SenderType string

const (
	SenderTypeBuyer   SenderType = "buyer"
	SenderTypeSeller  SenderType = "seller"
	SenderTypeSystem  SenderType = "system"
	SenderTypeSupport SenderType = "support"
)

var validSenderTypes = []SenderType{
	SenderTypeBuyer,
	SenderTypeSeller,
	SenderTypeSystem,
	SenderTypeSupport,
}

// String implements fmt.Stringer.
func (s SenderType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SenderType.
func (s SenderType) IsValid() bool {
	for _, candidate := range validSenderTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// Display returns the label shown next to a message bubble.
func (s SenderType) Display() Display {
	switch s {
	case SenderTypeBuyer:
		return Display{Label: "买家", Tone: ToneInfo}
	case SenderTypeSeller:
		return Display{Label: "卖家", Tone: ToneProgress}
	case SenderTypeSystem:
		return Display{Label: "系统", Tone: ToneNeutral}
	case SenderTypeSupport:
		return Display{Label: "客服", Tone: ToneSuccess}
	}
	panic(fmt.Sprintf("enums: sender type %q has no display mapping", string(s)))
}

// ParseSenderType converts raw input into a SenderType.
func ParseSenderType(value string) (SenderType, error) {
	for _, candidate := range validSenderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sender type %q", value)
}
