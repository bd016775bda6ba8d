package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexBool decodes booleans that some endpoints send as "true"/"false"
// strings. It always encodes as a string so legacy consumers keep working.
type FlexBool bool

// Bool returns the plain boolean value.
func (b FlexBool) Bool() bool {
	return bool(b)
}

// MarshalJSON implements json.Marshaler.
func (b FlexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatBool(bool(b)))
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*b = false
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*b = false
			return nil
		}
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("invalid boolean string %q", raw)
		}
		*b = FlexBool(parsed)
		return nil
	}
	var parsed bool
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return fmt.Errorf("invalid boolean %s", string(trimmed))
	}
	*b = FlexBool(parsed)
	return nil
}
