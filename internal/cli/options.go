package cli

import (
	"github.com/spf13/cobra"

	"steam_reviews/internal/domain"
)

// Request shaping flags, shared by browse and page
var (
	flagLanguage      string
	flagFilter        string
	flagPurchaseType  string
	flagDayRange      int
	flagReviewType    string
	flagNumPerPage    int
	flagIncludeReview bool
	flagCursor        string
	flagFormat        string
	flagOut           string
)

func addOptionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagLanguage, "language", "", "Review language (default english)")
	cmd.Flags().StringVar(&flagFilter, "filter", "", "Ordering: recent, updated, all (default recent)")
	cmd.Flags().StringVar(&flagPurchaseType, "purchase-type", "", "all, steam, non_steam_purchase (default all)")
	cmd.Flags().IntVar(&flagDayRange, "day-range", 0, "Only reviews from the last N days")
	cmd.Flags().StringVar(&flagReviewType, "review-type", "", "all, positive, negative")
	cmd.Flags().IntVar(&flagNumPerPage, "num-per-page", 0, "Page size, 1-100 (default 20)")
	cmd.Flags().BoolVar(&flagIncludeReview, "include-review", true, "Include review text")
	cmd.Flags().StringVar(&flagCursor, "cursor", "", "Starting cursor (default *)")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format: text, json, html (default text for browse, json for page)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
}

// formatOr returns the --format value, or def when the flag was not given.
func formatOr(def string) string {
	if flagFormat == "" {
		return def
	}
	return flagFormat
}

// buildOptions turns the flags into FetchOptions; unset flags stay unset.
func buildOptions(cmd *cobra.Command) (domain.FetchOptions, error) {
	o := domain.FetchOptions{
		Language:     flagLanguage,
		Filter:       flagFilter,
		PurchaseType: flagPurchaseType,
		ReviewType:   flagReviewType,
		NumPerPage:   flagNumPerPage,
		Cursor:       flagCursor,
	}
	if cmd.Flags().Changed("day-range") {
		d := flagDayRange
		o.DayRange = &d
	}
	if cmd.Flags().Changed("include-review") {
		b := flagIncludeReview
		o.IncludeReview = &b
	}
	if err := o.Validate(); err != nil {
		return o, usageError{err}
	}
	return o, nil
}
