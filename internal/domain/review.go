package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Review is one storefront review as returned by the appreviews endpoint.
// Optional fields are pointers; absent fields are tolerated, never validated.
type Review struct {
	RecommendationID         string     `json:"recommendationid"`
	Author                   Author     `json:"author"`
	Language                 string     `json:"language"`
	Text                     string     `json:"review"`
	TimestampCreated         int64      `json:"timestamp_created"`
	TimestampUpdated         int64      `json:"timestamp_updated"`
	VotedUp                  bool       `json:"voted_up"`
	VotesUp                  *int64     `json:"votes_up,omitempty"`
	VotesFunny               *int64     `json:"votes_funny,omitempty"`
	WeightedVoteScore        *FlexFloat `json:"weighted_vote_score,omitempty"`
	CommentCount             *int64     `json:"comment_count,omitempty"`
	SteamPurchase            *bool      `json:"steam_purchase,omitempty"`
	ReceivedForFree          *bool      `json:"received_for_free,omitempty"`
	WrittenDuringEarlyAccess *bool      `json:"written_during_early_access,omitempty"`
	PrimarilySteamDeck       *bool      `json:"primarily_steam_deck,omitempty"`
}

type Author struct {
	SteamID              string `json:"steamid"`
	NumGamesOwned        int64  `json:"num_games_owned"`
	NumReviews           int64  `json:"num_reviews"`
	PlaytimeForever      int64  `json:"playtime_forever"`
	PlaytimeLastTwoWeeks int64  `json:"playtime_last_two_weeks"`
	PlaytimeAtReview     *int64 `json:"playtime_at_review,omitempty"`
	LastPlayed           *int64 `json:"last_played,omitempty"`
}

// Created returns the creation timestamp in UTC.
func (r Review) Created() time.Time { return time.Unix(r.TimestampCreated, 0).UTC() }

// Updated returns the last-edit timestamp in UTC.
func (r Review) Updated() time.Time { return time.Unix(r.TimestampUpdated, 0).UTC() }

// QuerySummary is the aggregate block sent with every page. It is replaced
// wholesale by each fetch, never merged.
type QuerySummary struct {
	NumReviews      int64  `json:"num_reviews"`
	ReviewScore     int64  `json:"review_score"`
	ReviewScoreDesc string `json:"review_score_desc"`
	TotalPositive   int64  `json:"total_positive"`
	TotalNegative   int64  `json:"total_negative"`
	TotalReviews    int64  `json:"total_reviews"`
}

// Page is the raw response of one appreviews request.
type Page struct {
	Success      int           `json:"success"`
	QuerySummary *QuerySummary `json:"query_summary,omitempty"`
	Reviews      []Review      `json:"reviews"`
	Cursor       string        `json:"cursor"`
}

// HasMore reports whether the page cursor points at further data.
func (p Page) HasMore() bool { return p.Cursor != "" }

// FlexFloat decodes from a JSON number or a JSON string ("0.52", "0,52").
// The storefront sends weighted_vote_score in both forms.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(float64(f), 'f', -1, 64)), nil
}

// FeedState is the observable state of one paginated feed.
type FeedState struct {
	Reviews     []Review      `json:"reviews"`
	Summary     *QuerySummary `json:"query_summary,omitempty"`
	Loading     bool          `json:"loading"`
	Error       string        `json:"error,omitempty"`
	HasMore     bool          `json:"has_more"`
	LastUpdated time.Time     `json:"last_updated"`
}
