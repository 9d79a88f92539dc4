package pagination

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/course-client/pkg/envelope"
)

// Page size bounds shared by Normalize and Pager.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Meta is the pagination metadata of a result.
type Meta struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalCount int  `json:"totalCount"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// EmptyMeta is the metadata reported when no result is available.
func EmptyMeta(page, pageSize int) Meta {
	return Meta{
		Page:       page,
		PageSize:   pageSize,
		TotalCount: 0,
		TotalPages: 1,
	}
}

// PagedResult is the normalized shape of a paged response.
// Items is never nil.
type PagedResult[T any] struct {
	Items []T `json:"items"`
	Meta
	Stats json.RawMessage `json:"stats"`
}

// Normalize converts a paged response body into a PagedResult.
//
// The body may be wrapped in one or more data envelopes, may be a bare array
// of items, and may use Pascal-cased keys. Missing page and page size fall
// back to the given values. Derived fields are computed when the backend
// omits them:
//
//	totalCount = len(items)
//	totalPages = max(1, ceil(totalCount / pageSize))
//	hasNext    = page < totalPages
//	hasPrev    = page > 1
//
// Normalizing the JSON encoding of a normalized result returns it unchanged.
func Normalize(body []byte, fallbackPage, fallbackPageSize int) (PagedResult[json.RawMessage], error) {
	if fallbackPage < 1 {
		fallbackPage = 1
	}
	if fallbackPageSize < 1 {
		fallbackPageSize = DefaultPageSize
	}

	payload := bytes.TrimSpace(envelope.Unwrap(body))
	if len(payload) == 0 {
		return PagedResult[json.RawMessage]{}, fmt.Errorf("normalize paged result: empty body")
	}

	var fields rawFields
	switch payload[0] {
	case '[':
		if !json.Valid(payload) {
			return PagedResult[json.RawMessage]{}, fmt.Errorf("normalize paged result: invalid JSON array")
		}
		fields = rawFields{fieldItems: payload}
	case '{':
		if err := json.Unmarshal(payload, &fields); err != nil {
			return PagedResult[json.RawMessage]{}, fmt.Errorf("normalize paged result: %w", err)
		}
		fields = fields.descend()
	default:
		return PagedResult[json.RawMessage]{}, fmt.Errorf("normalize paged result: unexpected JSON %q", payload[:1])
	}

	items := fields.itemsField()

	page, ok := fields.intField(fieldPage)
	if !ok || page < 1 {
		page = fallbackPage
	}

	pageSize, ok := fields.intField(fieldPageSize)
	if !ok || pageSize < 1 {
		pageSize = fallbackPageSize
	}

	totalCount, ok := fields.intField(fieldTotalCount)
	if !ok || totalCount < 0 {
		totalCount = len(items)
	}

	totalPages, ok := fields.intField(fieldTotalPages)
	if !ok || totalPages < 1 {
		totalPages = pageCount(totalCount, pageSize)
	}

	hasNext, ok := fields.boolField(fieldHasNext)
	if !ok {
		hasNext = page < totalPages
	}

	hasPrev, ok := fields.boolField(fieldHasPrev)
	if !ok {
		hasPrev = page > 1
	}

	var stats json.RawMessage
	if raw, ok := fields.lookup(fieldStats); ok {
		stats = append(json.RawMessage(nil), raw...)
	}

	return PagedResult[json.RawMessage]{
		Items: items,
		Meta: Meta{
			Page:       page,
			PageSize:   pageSize,
			TotalCount: totalCount,
			TotalPages: totalPages,
			HasNext:    hasNext,
			HasPrev:    hasPrev,
		},
		Stats: stats,
	}, nil
}

// Decode normalizes body and decodes every item into T.
func Decode[T any](body []byte, fallbackPage, fallbackPageSize int) (PagedResult[T], error) {
	raw, err := Normalize(body, fallbackPage, fallbackPageSize)
	if err != nil {
		return PagedResult[T]{}, err
	}
	return DecodeItems[T](raw)
}

// DecodeItems decodes the raw items of a normalized result into T.
func DecodeItems[T any](raw PagedResult[json.RawMessage]) (PagedResult[T], error) {
	items := make([]T, len(raw.Items))
	for i, item := range raw.Items {
		if err := json.Unmarshal(item, &items[i]); err != nil {
			return PagedResult[T]{}, fmt.Errorf("decode item %d: %w", i, err)
		}
	}

	return PagedResult[T]{
		Items: items,
		Meta:  raw.Meta,
		Stats: raw.Stats,
	}, nil
}

// ClampPage returns page limited to >= 1.
func ClampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// ClampPageSize returns size limited to [1, MaxPageSize].
// Zero selects DefaultPageSize.
func ClampPageSize(size int) int {
	switch {
	case size == 0:
		return DefaultPageSize
	case size < 1:
		return 1
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}

func pageCount(totalCount, pageSize int) int {
	if pageSize < 1 {
		return 1
	}
	pages := (totalCount + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}
