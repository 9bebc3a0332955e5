// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"steam_reviews/internal/app"
	"steam_reviews/internal/domain"
	"steam_reviews/internal/render"
)

type Handlers struct {
	Q        *app.QueryService
	Sessions *app.Sessions
	Title    string
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/apps/{appid}/reviews", h.getPage)
	s.mux.Get("/v1/apps/{appid}/archive", h.listArchived)
	s.mux.Get("/v1/apps/{appid}/summary", h.archivedSummary)

	s.mux.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", h.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.getSession)
			r.Delete("/", h.deleteSession)
			r.Put("/options", h.configureSession)
			r.Post("/more", h.moreSession)
			r.Post("/refresh", h.refreshSession)
			r.Get("/dashboard", h.dashboard)
		})
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain and upstream errors to a problem response.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidOptions):
		writeProblem(w, http.StatusBadRequest, "Invalid options", err.Error())
	case errors.Is(err, domain.ErrSessionNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "session not found")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "app not found")
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrUnauthorized):
		writeProblem(w, http.StatusBadGateway, "Upstream refused", err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		w.Header().Set("Retry-After", "5")
		writeProblem(w, http.StatusTooManyRequests, "Rate limited", "storefront rate limit reached")
	case errors.Is(err, app.ErrArchiveDisabled):
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Cancelled", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusBadGateway, "Upstream error", err.Error())
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		// Log but don't fail the whole response; return empty ETag and best-effort body.
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeETagged writes v as JSON, answering 304 when the client already
// holds this version.
func writeETagged(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	writeBody(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Encoding failed", err.Error())
		return
	}
	writeBody(w, status, body)
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

// optionsFromQuery reads FetchOptions from query parameters named like the
// storefront's own.
func optionsFromQuery(q url.Values) (domain.FetchOptions, error) {
	o := domain.FetchOptions{
		Language:     q.Get("language"),
		Filter:       q.Get("filter"),
		PurchaseType: q.Get("purchase_type"),
		ReviewType:   q.Get("review_type"),
		Cursor:       q.Get("cursor"),
	}
	if v := q.Get("day_range"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return o, fmt.Errorf("%w: day_range must be an integer", domain.ErrInvalidOptions)
		}
		o.DayRange = &n
	}
	if v := q.Get("num_per_page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return o, fmt.Errorf("%w: num_per_page must be an integer", domain.ErrInvalidOptions)
		}
		o.NumPerPage = n
	}
	if v := q.Get("include_review"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return o, fmt.Errorf("%w: include_review must be a boolean", domain.ErrInvalidOptions)
		}
		o.IncludeReview = &b
	}
	return o, o.Validate()
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	return true
}

// ---- stateless reads ----

func (h *Handlers) getPage(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appid")
	opts, err := optionsFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := h.Q.GetPage(r.Context(), appID, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeETagged(w, r, page)
}

func (h *Handlers) listArchived(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "appid")

	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}
	pg := domain.PageQuery{Limit: limit}
	if c := r.URL.Query().Get("cursor"); c != "" {
		pg.Cursor = &c
	}

	out, err := h.Q.ListArchived(r.Context(), appID, pg)
	if err != nil {
		writeError(w, err)
		return
	}
	writeETagged(w, r, out)
}

func (h *Handlers) archivedSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.Q.ArchivedSummary(r.Context(), chi.URLParam(r, "appid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeETagged(w, r, s)
}

// ---- sessions ----

type createSessionReq struct {
	AppID   string              `json:"app_id"`
	Options domain.FetchOptions `json:"options"`
	Reveal  *int                `json:"reveal,omitempty"`
}

type configureReq struct {
	AppID   string              `json:"app_id,omitempty"`
	Options domain.FetchOptions `json:"options"`
}

type sessionResp struct {
	ID string `json:"id"`
	*render.View
}

func (h *Handlers) view(sess *app.Session) sessionResp {
	v := render.Dashboard(fmt.Sprintf("%s: %s", h.Title, sess.Feed().AppID()), sess.Revealer)
	return sessionResp{ID: sess.ID, View: v}
}

func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*app.Session, bool) {
	sess, err := h.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}

func (h *Handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionReq
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AppID == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "app_id is required")
		return
	}
	reveal := 1
	if req.Reveal != nil {
		reveal = *req.Reveal
	}
	sess, err := h.Sessions.Open(r.Context(), req.AppID, req.Options, reveal)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, h.view(sess))
}

func (h *Handlers) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeETagged(w, r, h.view(sess))
}

func (h *Handlers) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Close(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) configureSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	var req configureReq
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Options.Validate(); err != nil {
		writeError(w, err)
		return
	}
	appID := req.AppID
	if appID == "" {
		appID = sess.Feed().AppID()
	}
	// fetch failures land in the feed state
	if err := sess.Revealer.Configure(r.Context(), appID, req.Options); errors.Is(err, domain.ErrFeedClosed) {
		writeError(w, domain.ErrSessionNotFound)
		return
	}
	writeJSON(w, http.StatusOK, h.view(sess))
}

func (h *Handlers) moreSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Revealer.Next(r.Context()); errors.Is(err, domain.ErrFeedClosed) {
		writeError(w, domain.ErrSessionNotFound)
		return
	}
	h.respondAfterAction(w, r, sess)
}

func (h *Handlers) refreshSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.Revealer.Refresh(r.Context()); errors.Is(err, domain.ErrFeedClosed) {
		writeError(w, domain.ErrSessionNotFound)
		return
	}
	h.respondAfterAction(w, r, sess)
}

// respondAfterAction sends html form posts back to the dashboard.
func (h *Handlers) respondAfterAction(w http.ResponseWriter, r *http.Request, sess *app.Session) {
	if r.URL.Query().Get("format") == "html" {
		http.Redirect(w, r, "/v1/sessions/"+sess.ID+"/dashboard", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, h.view(sess))
}

func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	v := h.view(sess).View
	v.MoreURL = "/v1/sessions/" + sess.ID + "/more?format=html"

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := (&render.HTMLWriter{}).Write(w, v); err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("failed to render dashboard")
	}
}
