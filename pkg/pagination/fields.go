package pagination

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Canonical field names of a normalized paged result.
const (
	fieldItems      = "items"
	fieldPage       = "page"
	fieldPageSize   = "pageSize"
	fieldTotalCount = "totalCount"
	fieldTotalPages = "totalPages"
	fieldHasNext    = "hasNext"
	fieldHasPrev    = "hasPrev"
	fieldStats      = "stats"
)

// fieldAliases lists, per canonical field, the source keys accepted from the
// backend in order of preference. This table is the whole casing contract.
var fieldAliases = map[string][]string{
	fieldItems:      {"items", "Items", "data", "Data"},
	fieldPage:       {"page", "Page"},
	fieldPageSize:   {"pageSize", "PageSize"},
	fieldTotalCount: {"totalCount", "TotalCount", "total", "Total"},
	fieldTotalPages: {"totalPages", "TotalPages"},
	fieldHasNext:    {"hasNext", "HasNext"},
	fieldHasPrev:    {"hasPrev", "HasPrev"},
	fieldStats:      {"stats", "Stats"},
}

// rawFields is a decoded JSON object keyed by source key.
type rawFields map[string]json.RawMessage

// lookup returns the first non-null value among the aliases of field.
func (f rawFields) lookup(field string) (json.RawMessage, bool) {
	for _, key := range fieldAliases[field] {
		raw, ok := f[key]
		if ok && !isNull(raw) {
			return raw, true
		}
	}
	return nil, false
}

// intField reads an integer given either as a JSON number or as a numeric
// string. Fractional numbers are truncated; values outside the int32 range
// are rejected.
func (f rawFields) intField(field string) (int, bool) {
	raw, ok := f.lookup(field)
	if !ok {
		return 0, false
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		n = json.Number(strings.TrimSpace(s))
	}

	if i, err := n.Int64(); err == nil {
		if i > math.MaxInt32 || i < math.MinInt32 {
			return 0, false
		}
		return int(i), true
	}
	if v, err := n.Float64(); err == nil && !math.IsNaN(v) && math.Abs(v) <= math.MaxInt32 {
		return int(v), true
	}
	return 0, false
}

// boolField reads a boolean given as a JSON bool or as "true"/"false".
func (f rawFields) boolField(field string) (bool, bool) {
	raw, ok := f.lookup(field)
	if !ok {
		return false, false
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, false
	}
	return b, true
}

// itemsField reads the items array. Anything that is not an array yields
// an empty list.
func (f rawFields) itemsField() []json.RawMessage {
	raw, ok := f.lookup(fieldItems)
	if !ok {
		return []json.RawMessage{}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return []json.RawMessage{}
	}
	return items
}

// maxNestedEnvelopes bounds how deep descend follows items held in objects.
const maxNestedEnvelopes = 4

// descend follows an items alias that holds an object rather than an array,
// as in {"data":{"data":{"Items":[...]}}}. Fields of the inner object win;
// fields it lacks are taken from the enclosing object.
func (f rawFields) descend() rawFields {
	for depth := 0; depth < maxNestedEnvelopes; depth++ {
		raw, ok := f.lookup(fieldItems)
		if !ok {
			return f
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || raw[0] != '{' {
			return f
		}

		var inner rawFields
		if err := json.Unmarshal(raw, &inner); err != nil {
			return f
		}
		for field := range fieldAliases {
			if field == fieldItems {
				continue
			}
			if _, ok := inner.lookup(field); ok {
				continue
			}
			if outer, ok := f.lookup(field); ok {
				inner[field] = outer
			}
		}
		f = inner
	}
	return f
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
