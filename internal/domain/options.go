package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// CursorStart is the start-of-stream sentinel. An empty cursor in a response
// means the stream is exhausted.
const CursorStart = "*"

const (
	DefaultLanguage     = "english"
	DefaultFilter       = "recent"
	DefaultPurchaseType = "all"
	DefaultNumPerPage   = 20
)

// FetchOptions shapes one appreviews request. Zero values (and nil pointers)
// mean "not set": they are filled by WithDefaults or left out of the query.
type FetchOptions struct {
	Language      string `json:"language,omitempty" yaml:"language"`
	Filter        string `json:"filter,omitempty" yaml:"filter"`
	PurchaseType  string `json:"purchase_type,omitempty" yaml:"purchase_type"`
	DayRange      *int   `json:"day_range,omitempty" yaml:"day_range"`
	ReviewType    string `json:"review_type,omitempty" yaml:"review_type"`
	NumPerPage    int    `json:"num_per_page,omitempty" yaml:"num_per_page"`
	IncludeReview *bool  `json:"include_review,omitempty" yaml:"include_review"`
	Cursor        string `json:"cursor,omitempty" yaml:"cursor"`
	FetchOnMount  *bool  `json:"fetch_on_mount,omitempty" yaml:"fetch_on_mount"`
}

// DefaultFetchOptions returns every default explicitly.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Language:      DefaultLanguage,
		Filter:        DefaultFilter,
		PurchaseType:  DefaultPurchaseType,
		NumPerPage:    DefaultNumPerPage,
		IncludeReview: ptr(true),
		Cursor:        CursorStart,
		FetchOnMount:  ptr(true),
	}
}

// WithDefaults returns a copy with every unset field filled from
// DefaultFetchOptions. DayRange and ReviewType have no default.
func (o FetchOptions) WithDefaults() FetchOptions {
	d := DefaultFetchOptions()
	if o.Language == "" {
		o.Language = d.Language
	}
	if o.Filter == "" {
		o.Filter = d.Filter
	}
	if o.PurchaseType == "" {
		o.PurchaseType = d.PurchaseType
	}
	if o.NumPerPage <= 0 {
		o.NumPerPage = d.NumPerPage
	}
	if o.IncludeReview == nil {
		o.IncludeReview = d.IncludeReview
	}
	if o.Cursor == "" {
		o.Cursor = d.Cursor
	}
	if o.FetchOnMount == nil {
		o.FetchOnMount = d.FetchOnMount
	}
	return o
}

// ShouldFetchOnMount reports the fetch-on-mount flag (default true).
func (o FetchOptions) ShouldFetchOnMount() bool {
	return o.FetchOnMount == nil || *o.FetchOnMount
}

// Key identifies the request-shaping options. Two option sets with the same
// key produce the same stream; FetchOnMount is not part of it.
func (o FetchOptions) Key() string {
	day := "-"
	if o.DayRange != nil {
		day = strconv.Itoa(*o.DayRange)
	}
	inc := "-"
	if o.IncludeReview != nil {
		inc = strconv.FormatBool(*o.IncludeReview)
	}
	return strings.Join([]string{
		o.Language,
		o.Filter,
		o.PurchaseType,
		day,
		o.ReviewType,
		strconv.Itoa(o.NumPerPage),
		inc,
		o.Cursor,
	}, "|")
}

// Validate rejects values the storefront is known not to accept.
func (o FetchOptions) Validate() error {
	switch o.Filter {
	case "", "recent", "updated", "all":
	default:
		return fmt.Errorf("%w: filter %q", ErrInvalidOptions, o.Filter)
	}
	switch o.PurchaseType {
	case "", "all", "steam", "non_steam_purchase":
	default:
		return fmt.Errorf("%w: purchase_type %q", ErrInvalidOptions, o.PurchaseType)
	}
	switch o.ReviewType {
	case "", "all", "positive", "negative":
	default:
		return fmt.Errorf("%w: review_type %q", ErrInvalidOptions, o.ReviewType)
	}
	if o.NumPerPage < 0 || o.NumPerPage > 100 {
		return fmt.Errorf("%w: num_per_page must be between 1 and 100", ErrInvalidOptions)
	}
	if o.DayRange != nil && *o.DayRange <= 0 {
		return fmt.Errorf("%w: day_range must be positive", ErrInvalidOptions)
	}
	return nil
}

func ptr[T any](v T) *T { return &v }
