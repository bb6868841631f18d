// Package utils provides small, generic helper functions used across
// different layers of the application. These utilities are independent
// of domain or business logic.
package utils

import "strconv"

// AtoiDefault converts a string to a non-negative int using strconv.Atoi.
// If the string is empty, cannot be parsed, or is negative, it returns the
// provided default value instead. Callers feed it query parameters such as
// page numbers, where a negative value is as meaningless as a malformed one.
//
// Example:
//
//	n := utils.AtoiDefault("42", 0) // returns 42
//	n = utils.AtoiDefault("", 10)   // returns 10
//	n = utils.AtoiDefault("-3", 5)  // returns 5
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return def
}

// Page carries pagination metadata for list responses. The same shape is
// returned by every paginated endpoint.
type Page struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

// NewPage computes pagination metadata for a 1-based page over total rows.
//
// Invariants:
//   - TotalPages = max(1, ceil(total/pageSize)), so an empty result set still
//     reports one (empty) page.
//   - HasMore is true iff page*pageSize < total.
//
// pageSize and page are assumed already clamped to >= 1 by the caller.
func NewPage(page, pageSize int, total int64) Page {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if totalPages < 1 {
		totalPages = 1
	}
	return Page{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasMore:    int64(page)*int64(pageSize) < total,
	}
}
