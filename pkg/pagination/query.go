package pagination

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Query parameter names understood by the backend.
const (
	ParamPage     = "page"
	ParamPageSize = "pageSize"
	ParamSearch   = "search"
)

// FilterAll is the sentinel filter value meaning "no filter applied".
const FilterAll = "all"

// Params holds extra filter parameters of a list request.
// Values may be strings, numbers, booleans, fmt.Stringers or string slices.
type Params map[string]any

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// key returns a canonical encoding of the effective (non-empty) filters.
func (p Params) key() string {
	values := url.Values{}
	p.addTo(values)
	return values.Encode()
}

func (p Params) addTo(values url.Values) {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch v := p[k].(type) {
		case []string:
			for _, s := range v {
				if !isEmptyFilter(s) {
					values.Add(k, s)
				}
			}
		default:
			if s, ok := formatParam(v); ok {
				values.Set(k, s)
			}
		}
	}
}

// BuildQuery merges pagination, the search term and the extra filters.
// The search term is sent only when non-blank. Filters whose value is nil,
// empty or "all" are omitted.
func BuildQuery(page, pageSize int, search string, params Params) url.Values {
	values := url.Values{}
	values.Set(ParamPage, strconv.Itoa(page))
	values.Set(ParamPageSize, strconv.Itoa(pageSize))
	if s := strings.TrimSpace(search); s != "" {
		values.Set(ParamSearch, s)
	}
	params.addTo(values)
	return values
}

func formatParam(v any) (string, bool) {
	var s string
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s = t
	case *string:
		if t == nil {
			return "", false
		}
		s = *t
	case fmt.Stringer:
		s = t.String()
	case bool:
		s = strconv.FormatBool(t)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		s = fmt.Sprint(t)
	}

	if isEmptyFilter(s) {
		return "", false
	}
	return s, true
}

func isEmptyFilter(s string) bool {
	return s == "" || s == FilterAll
}
