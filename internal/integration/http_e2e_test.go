//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"

	httpserver "steam_reviews/internal/adapters/http_server"
	redisad "steam_reviews/internal/adapters/redis"
	"steam_reviews/internal/adapters/steam"
	"steam_reviews/internal/app"
	"steam_reviews/internal/domain"
	mysqlrepo "steam_reviews/internal/storage/mysql"
)

// ---------- helpers ----------
func migrationsDir() string {
	if v := os.Getenv("MIGRATIONS_DIR"); v != "" {
		return v
	}
	return filepath.Join("..", "..", "migrations")
}

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := migrationsDir()

	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		t.Fatalf("MIGRATIONS_DIR=%s is not a directory or missing", dir)
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

// storefront serves 5 reviews for app 730 in pages of two, newest first.
func storefront() http.Handler {
	all := make([]domain.Review, 5)
	for i := range all {
		all[i] = domain.Review{
			RecommendationID: fmt.Sprintf("%d", 500-i),
			Text:             fmt.Sprintf("review %d", i),
			VotedUp:          i%2 == 0,
			TimestampCreated: int64(5000 - i),
			TimestampUpdated: int64(5000 - i),
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/appreviews/730" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		start := 0
		if c := r.URL.Query().Get("cursor"); c != "*" {
			fmt.Sscanf(c, "off-%d", &start)
		}
		end := start + 2
		if end > len(all) {
			end = len(all)
		}
		p := domain.Page{Success: 1, Reviews: all[start:end]}
		if start == 0 {
			p.QuerySummary = &domain.QuerySummary{ReviewScoreDesc: "Mixed", TotalReviews: 5, TotalPositive: 3, TotalNegative: 2}
		}
		if end < len(all) {
			p.Cursor = fmt.Sprintf("off-%d", end)
		}
		_ = json.NewEncoder(w).Encode(p)
	})
}

// ---------- the test ----------
func TestHTTP_EndToEnd_ArchiveThenBrowse(t *testing.T) {
	// Start isolated MySQL container
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker not reachable: %v", err)
	}
	runOpts := &dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env: []string{
			"MYSQL_ROOT_PASSWORD=root",
			"MYSQL_DATABASE=steam_reviews",
		},
	}
	resource, err := pool.RunWithOptions(runOpts, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Fatalf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	hostPort := resource.GetPort("3306/tcp")
	dsn := fmt.Sprintf("root:%s@tcp(127.0.0.1:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		"root", hostPort, "steam_reviews")

	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = mysqlrepo.Open(context.Background(), dsn)
		return e
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	applyMigrations(t, db)

	// wiring as in cmd/api and cmd/archiver
	upstream := httptest.NewServer(storefront())
	t.Cleanup(upstream.Close)
	client, err := steam.New(upstream.URL, 100)
	if err != nil {
		t.Fatalf("steam.New: %v", err)
	}
	mr := miniredis.RunT(t)
	cache := redisad.New(mr.Addr(), "", 0)
	repo := mysqlrepo.New(db)

	ctx := context.Background()
	stats, err := app.NewArchiveService(client, repo, cache, 0).ArchiveApp(ctx, "730", domain.FetchOptions{})
	if err != nil {
		t.Fatalf("ArchiveApp: %v", err)
	}
	if stats.Pages != 3 || stats.Reviews != 5 || !stats.Complete {
		t.Fatalf("stats = %+v", stats)
	}
	if _, err := app.NewArchiveService(client, repo, cache, 0).ArchiveApp(ctx, "404404", domain.FetchOptions{}); err != nil {
		t.Fatalf("missing app must be logged, not failed: %v", err)
	}

	srv := httpserver.New(5 * time.Second)
	srv.MountHandlers(&httpserver.Handlers{
		Q:        app.NewQueryService(client, repo, cache, time.Minute),
		Sessions: app.NewSessions(client, time.Minute),
		Title:    "Reviews",
	})
	api := httptest.NewServer(srv.Mux())
	t.Cleanup(api.Close)

	// walk the archive with the keyset cursor
	var got []string
	next := ""
	for i := 0; i < 5; i++ {
		u := api.URL + "/v1/apps/730/archive?limit=2"
		if next != "" {
			u += "&cursor=" + next
		}
		resp, err := http.Get(u)
		if err != nil {
			t.Fatalf("GET archive: %v", err)
		}
		var page domain.ReviewsPage
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		for _, r := range page.Items {
			got = append(got, r.RecommendationID)
		}
		if page.NextCursor == nil {
			break
		}
		next = *page.NextCursor
	}
	want := []string{"500", "499", "498", "497", "496"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("archive order = %v, want %v", got, want)
	}

	resp, err := http.Get(api.URL + "/v1/apps/730/summary")
	if err != nil {
		t.Fatalf("GET summary: %v", err)
	}
	defer resp.Body.Close()
	var sum domain.QuerySummary
	if err := json.NewDecoder(resp.Body).Decode(&sum); err != nil || sum.TotalReviews != 5 {
		t.Fatalf("summary = %+v, %v", sum, err)
	}
}
