// Package envelope strips the response wrapper the course backend puts
// around payloads.
//
// Responses arrive either as the raw payload or wrapped as
//
//	{"success": true, "message": "...", "data": <payload>}
//
// Unwrap removes one such level. A "data" member that sits next to
// non-metadata keys (for example a paged result using "data" for its items)
// is part of the payload and is left alone.
package envelope

import (
	"bytes"
	"encoding/json"
	"strings"
)

// metadataKeys are the sibling keys an envelope may carry besides its data
// member. Matching is on the lower-cased first letter.
var metadataKeys = map[string]struct{}{
	"success":    {},
	"message":    {},
	"status":     {},
	"statusCode": {},
	"code":       {},
	"timestamp":  {},
	"errors":     {},
}

// Unwrap returns the payload inside a single "data"/"Data" envelope, or body
// unchanged when it is not an envelope.
func Unwrap(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return body
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return body
	}

	var data json.RawMessage
	found := false
	for key, value := range fields {
		if key == "data" || key == "Data" {
			if found {
				// both casings present, ambiguous
				return body
			}
			data, found = value, true
			continue
		}
		if !isMetadataKey(key) {
			return body
		}
	}

	if !found || isNull(data) {
		return body
	}
	return data
}

// UnwrapInto unwraps body and decodes the payload into v.
func UnwrapInto(body []byte, v any) error {
	return json.Unmarshal(Unwrap(body), v)
}

func isMetadataKey(key string) bool {
	if key == "" {
		return false
	}
	_, ok := metadataKeys[strings.ToLower(key[:1])+key[1:]]
	return ok
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
