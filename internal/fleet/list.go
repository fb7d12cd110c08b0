package fleet

import (
	"bytes"
	"encoding/json"
)

// List decodes a backend collection.
// Depending on the endpoint and backend version, collections are sent as a bare JSON array or
// wrapped into an object carrying the array under 'data' or 'items'.
type List[T any] []T

// UnmarshalJSON accepts a bare array as well as the 'data' and 'items' envelopes
func (list *List[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*list = List[T]{}
		return nil
	}
	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*list = items
		return nil
	}

	var envelope struct {
		Data  []T `json:"data"`
		Items []T `json:"items"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	switch {
	case envelope.Data != nil:
		*list = envelope.Data
	case envelope.Items != nil:
		*list = envelope.Items
	default:
		*list = List[T]{}
	}
	return nil
}
