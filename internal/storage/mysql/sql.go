package mysql

// Note: `text` is reserved; keep it quoted everywhere.
const insertReviewsPrefix = "INSERT INTO reviews\n  (app_id, recommendation_id, author_steamid, lang, `text`, voted_up, votes_up, weighted_vote_score, playtime_at_review, created_ts, updated_ts, raw)\nVALUES "

// An edited review keeps its row; everything but the key is replaced.
const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  author_steamid      = VALUES(author_steamid),\n" +
	"  lang                = VALUES(lang),\n" +
	"  `text`              = VALUES(`text`),\n" +
	"  voted_up            = VALUES(voted_up),\n" +
	"  votes_up            = COALESCE(VALUES(votes_up), reviews.votes_up),\n" +
	"  weighted_vote_score = COALESCE(VALUES(weighted_vote_score), reviews.weighted_vote_score),\n" +
	"  playtime_at_review  = COALESCE(VALUES(playtime_at_review), reviews.playtime_at_review),\n" +
	"  created_ts          = VALUES(created_ts),\n" +
	"  updated_ts          = VALUES(updated_ts),\n" +
	"  raw                 = VALUES(raw)\n"

const upsertSummarySQL = `
INSERT INTO review_summaries
  (app_id, num_reviews, review_score, review_score_desc, total_positive, total_negative, total_reviews)
VALUES
  (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  num_reviews       = VALUES(num_reviews),
  review_score      = VALUES(review_score),
  review_score_desc = VALUES(review_score_desc),
  total_positive    = VALUES(total_positive),
  total_negative    = VALUES(total_negative),
  total_reviews     = VALUES(total_reviews)
`

const insertMissSQL = `
INSERT INTO archive_misses (app_id, http_status, reason)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE http_status = VALUES(http_status), reason = VALUES(reason), seen_at = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Newest first; matches idx_reviews_newest. The keyset predicate is added
// when a cursor is present.
const listReviewsHead = `
SELECT recommendation_id, created_ts, raw
FROM reviews
WHERE app_id = ?`

const listReviewsAfter = `
  AND (created_ts < ? OR (created_ts = ? AND recommendation_id < ?))`

const listReviewsTail = `
ORDER BY created_ts DESC, recommendation_id DESC
LIMIT ?`

const getSummarySQL = `
SELECT num_reviews, review_score, review_score_desc, total_positive, total_negative, total_reviews
FROM review_summaries
WHERE app_id = ?
`
