package fleet

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

var errInvalidID = errors.New("identifier must be a JSON string or number")

// ID identifies a backend resource.
// The backend uses string identifiers for some resources and numeric ones for others; an ID
// remembers which JSON form it was decoded from and encodes itself back the same way.
type ID struct {
	value   string
	numeric bool
}

// StringID creates an ID that is encoded as a JSON string
func StringID(value string) ID {
	return ID{value: value}
}

// NumericID creates an ID that is encoded as a JSON number
func NumericID(value int64) ID {
	return ID{value: strconv.FormatInt(value, 10), numeric: true}
}

// ParseID creates an ID out of user input.
// Input in canonical integer form becomes a numeric ID; anything else ("007", "+5") stays a string.
func ParseID(raw string) ID {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil && strconv.FormatInt(n, 10) == raw {
		return ID{value: raw, numeric: true}
	}
	return ID{value: raw}
}

// String returns the textual representation of the ID
func (id ID) String() string {
	return id.value
}

// IsZero reports whether the ID is unset
func (id ID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON encodes the ID in the JSON form it was created with
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON decodes a JSON string or number
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ID{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*id = ID{value: str}
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return errInvalidID
	}
	*id = ID{value: num.String(), numeric: true}
	return nil
}
