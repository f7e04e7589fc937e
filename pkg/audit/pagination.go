package audit

import "fmt"

// PageStart converts a (limit, offset) pair into the index of the first row
// to return. The page index is offset/limit, so an offset that is not a
// multiple of limit snaps down to the start of its page:
//
//	PageStart(10, 20) == 20 // page 2
//	PageStart(10, 25) == 20 // still page 2
//	PageStart(15, 20) == 15 // page 1 with a larger page size
//
// Callers must keep limit stable across pages to get stable boundaries.
func PageStart(limit, offset int) (int, error) {
	if limit <= 0 {
		return 0, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if offset < 0 {
		return 0, fmt.Errorf("offset must be non-negative, got %d", offset)
	}
	return (offset / limit) * limit, nil
}
