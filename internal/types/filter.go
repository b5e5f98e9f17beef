package types

import (
	"time"

	ierr "github.com/duemate/duemate/internal/errors"
)

const (
	FILTER_DEFAULT_PAGE  = 1
	FILTER_DEFAULT_LIMIT = 10
	FILTER_MAX_LIMIT     = 100

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// InvoiceFilter carries the optional listing filters and pagination/sort
// parameters bound from query strings
type InvoiceFilter struct {
	Page        *int           `json:"page,omitempty" form:"page" validate:"omitempty,min=1"`
	Limit       *int           `json:"limit,omitempty" form:"limit" validate:"omitempty,min=1,max=100"`
	Status      *InvoiceStatus `json:"status,omitempty" form:"status"`
	ClientEmail *string        `json:"clientEmail,omitempty" form:"clientEmail" validate:"omitempty,email"`
	StartDate   *time.Time     `json:"startDate,omitempty" form:"startDate" time_format:"2006-01-02T15:04:05Z07:00"`
	EndDate     *time.Time     `json:"endDate,omitempty" form:"endDate" time_format:"2006-01-02T15:04:05Z07:00"`
	SortBy      *InvoiceSortBy `json:"sortBy,omitempty" form:"sortBy"`
	SortOrder   *string        `json:"sortOrder,omitempty" form:"sortOrder" validate:"omitempty,oneof=asc desc"`
}

func NewDefaultInvoiceFilter() *InvoiceFilter {
	return &InvoiceFilter{}
}

// GetPage returns the 1-based page or the default
func (f *InvoiceFilter) GetPage() int {
	if f.Page == nil || *f.Page < 1 {
		return FILTER_DEFAULT_PAGE
	}
	return *f.Page
}

// GetLimit returns the page size or the default
func (f *InvoiceFilter) GetLimit() int {
	if f.Limit == nil || *f.Limit < 1 {
		return FILTER_DEFAULT_LIMIT
	}
	return *f.Limit
}

// GetSortBy returns the sort field or the default createdAt
func (f *InvoiceFilter) GetSortBy() InvoiceSortBy {
	if f.SortBy == nil {
		return InvoiceSortByCreatedAt
	}
	return *f.SortBy
}

// GetSortOrder returns asc or desc, defaulting to desc
func (f *InvoiceFilter) GetSortOrder() string {
	if f.SortOrder == nil {
		return OrderDesc
	}
	return *f.SortOrder
}

func (f *InvoiceFilter) Validate() error {
	if f.Page != nil && *f.Page < 1 {
		return ierr.NewError("invalid page").
			WithHint("Page must be at least 1").
			Mark(ierr.ErrValidation)
	}
	if f.Limit != nil && (*f.Limit < 1 || *f.Limit > FILTER_MAX_LIMIT) {
		return ierr.NewError("invalid limit").
			WithHintf("Limit must be between 1 and %d", FILTER_MAX_LIMIT).
			Mark(ierr.ErrValidation)
	}
	if f.Status != nil {
		if err := f.Status.Validate(); err != nil {
			return err
		}
	}
	if f.SortBy != nil {
		if err := f.SortBy.Validate(); err != nil {
			return err
		}
	}
	if f.SortOrder != nil && *f.SortOrder != OrderAsc && *f.SortOrder != OrderDesc {
		return ierr.NewError("invalid sort order").
			WithHint("Sort order must be asc or desc").
			Mark(ierr.ErrValidation)
	}
	if f.StartDate != nil && f.EndDate != nil && f.EndDate.Before(*f.StartDate) {
		return ierr.NewError("invalid date range").
			WithHint("endDate must not be before startDate").
			Mark(ierr.ErrValidation)
	}
	return nil
}
