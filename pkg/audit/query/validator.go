package query

import (
	"errors"
	"fmt"

	"mercator-hq/callaudit/pkg/audit"
)

const (
	// DefaultLimit is the page size used when a listing does not specify one.
	DefaultLimit = 50

	// MaxLimit is the largest page a single listing may request.
	MaxLimit = 1000
)

// Validate checks a filter against the access pattern it names and returns a
// *audit.QueryError describing the first problem found.
func Validate(f *audit.Filter, maxLimit int) error {
	if f == nil {
		return nil
	}
	if maxLimit <= 0 {
		maxLimit = MaxLimit
	}

	switch f.Kind {
	case audit.FilterAll:
		return nil

	case audit.FilterByID:
		if f.ID <= 0 {
			return audit.NewQueryError(f, fmt.Errorf("id must be positive, got %d", f.ID))
		}

	case audit.FilterPaginated:
		if f.Limit <= 0 {
			return audit.NewQueryError(f, fmt.Errorf("limit must be positive, got %d", f.Limit))
		}
		if f.Limit > maxLimit {
			return audit.NewQueryError(f, fmt.Errorf("limit must be <= %d, got %d", maxLimit, f.Limit))
		}
		if f.Offset < 0 {
			return audit.NewQueryError(f, fmt.Errorf("offset must be non-negative, got %d", f.Offset))
		}

	case audit.FilterByDateRange:
		if f.From == nil || f.To == nil {
			return audit.NewQueryError(f, errors.New("from and to are required"))
		}
		if f.From.After(*f.To) {
			return audit.NewQueryError(f, errors.New("from must not be after to"))
		}

	case audit.FilterByCorrelationID:
		if f.CorrelationID == "" {
			return audit.NewQueryError(f, errors.New("correlation id is required"))
		}

	case audit.FilterByPath:
		if f.Path == "" {
			return audit.NewQueryError(f, errors.New("path is required"))
		}

	case audit.FilterBySuccess:
		if f.Success == nil {
			return audit.NewQueryError(f, errors.New("success flag is required"))
		}

	default:
		return audit.NewQueryError(f, fmt.Errorf("unknown filter kind: %s", f.Kind))
	}

	return nil
}

// ApplyDefaults fills in the page size of a paginated filter when it was
// left unset or non-positive.
func ApplyDefaults(f *audit.Filter, defaultLimit int) {
	if f == nil || f.Kind != audit.FilterPaginated {
		return
	}
	if defaultLimit <= 0 {
		defaultLimit = DefaultLimit
	}
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
}
