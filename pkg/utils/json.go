package utils

import "encoding/json"

// MustMarshalJSON marshals v, panicking on failure. Callers only hand it
// values that round-tripped through the wire decoder already, so a failure
// here is a programming error.
func MustMarshalJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic("failed to marshal JSON: " + err.Error())
	}
	return data
}
