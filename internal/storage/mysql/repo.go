package mysql

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"steam_reviews/internal/domain"
)

func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valFlex(p *domain.FlexFloat) any {
	if p == nil {
		return nil
	}
	return float64(*p)
}
func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Open connects and pings. Pool limits follow a small service footprint.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

func (r *Repo) UpsertReviews(ctx context.Context, appID string, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*12) // 12 params per row
	for _, rv := range rs {
		raw, err := json.Marshal(rv)
		if err != nil {
			return fmt.Errorf("encode review %s: %w", rv.RecommendationID, err)
		}
		values = append(values, "(?,?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			appID,                                // app_id
			rv.RecommendationID,                  // recommendation_id
			valStr(rv.Author.SteamID),            // author_steamid
			valStr(rv.Language),                  // lang
			rv.Text,                              // text
			rv.VotedUp,                           // voted_up
			valInt64(rv.VotesUp),                 // votes_up
			valFlex(rv.WeightedVoteScore),        // weighted_vote_score
			valInt64(rv.Author.PlaytimeAtReview), // playtime_at_review
			rv.TimestampCreated,                  // created_ts
			rv.TimestampUpdated,                  // updated_ts
			string(raw),                          // raw
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) UpsertSummary(ctx context.Context, appID string, s domain.QuerySummary) error {
	_, err := r.db.ExecContext(ctx, upsertSummarySQL,
		appID,
		s.NumReviews,
		s.ReviewScore,
		s.ReviewScoreDesc,
		s.TotalPositive,
		s.TotalNegative,
		s.TotalReviews,
	)
	return err
}

func (r *Repo) LogMiss(ctx context.Context, appID string, status int, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, appID, status, reason)
	return err
}

// ListReviews returns archived reviews newest first. NextCursor is set when
// another page exists.
func (r *Repo) ListReviews(ctx context.Context, appID string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	limit := pg.Limit
	if limit <= 0 {
		limit = 50
	}
	q := listReviewsHead
	args := []any{appID}
	if pg.Cursor != nil && *pg.Cursor != "" {
		ts, id, err := decodeCursor(*pg.Cursor)
		if err != nil {
			return domain.ReviewsPage{}, err
		}
		q += listReviewsAfter
		args = append(args, ts, ts, id)
	}
	q += listReviewsTail
	args = append(args, limit+1)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	defer rows.Close()

	out := make([]domain.Review, 0, limit)
	var lastTS int64
	var lastID string
	more := false
	for rows.Next() {
		if len(out) == limit {
			more = true
			break
		}
		var (
			id  string
			ts  int64
			raw []byte
		)
		if err := rows.Scan(&id, &ts, &raw); err != nil {
			return domain.ReviewsPage{}, err
		}
		var rv domain.Review
		if err := json.Unmarshal(raw, &rv); err != nil {
			return domain.ReviewsPage{}, fmt.Errorf("decode archived review %s: %w", id, err)
		}
		out = append(out, rv)
		lastTS, lastID = ts, id
	}
	if err := rows.Err(); err != nil {
		return domain.ReviewsPage{}, err
	}

	page := domain.ReviewsPage{Items: out}
	if more {
		c := encodeCursor(lastTS, lastID)
		page.NextCursor = &c
	}
	return page, nil
}

func (r *Repo) GetSummary(ctx context.Context, appID string) (domain.QuerySummary, error) {
	var s domain.QuerySummary
	err := r.db.QueryRowContext(ctx, getSummarySQL, appID).Scan(
		&s.NumReviews,
		&s.ReviewScore,
		&s.ReviewScoreDesc,
		&s.TotalPositive,
		&s.TotalNegative,
		&s.TotalReviews,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.QuerySummary{}, domain.ErrNotFound
	}
	return s, err
}

// ---- keyset cursor ----

func encodeCursor(ts int64, id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(ts, 10) + ":" + id))
}

func decodeCursor(c string) (int64, string, error) {
	b, err := base64.RawURLEncoding.DecodeString(c)
	if err != nil {
		return 0, "", fmt.Errorf("%w: malformed cursor", domain.ErrInvalidOptions)
	}
	tsStr, id, ok := strings.Cut(string(b), ":")
	if !ok || id == "" {
		return 0, "", fmt.Errorf("%w: malformed cursor", domain.ErrInvalidOptions)
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: malformed cursor", domain.ErrInvalidOptions)
	}
	return ts, id, nil
}
