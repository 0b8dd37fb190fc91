package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"timecapsule/internal/adapters/blob"
	"timecapsule/internal/modkit/httpkit"
	perr "timecapsule/internal/platform/errors"
	phttp "timecapsule/internal/platform/net/http"
	"timecapsule/internal/platform/store"

	"github.com/go-chi/chi/v5"
)

type nopRow struct{}

func (nopRow) Scan(...any) error { return errors.New("no rows") }

type tag struct{}

func (tag) String() string      { return "" }
func (tag) RowsAffected() int64 { return 0 }

type recPG struct{ execs []string }

func (p *recPG) Exec(_ context.Context, sql string, _ ...any) (store.CommandTag, error) {
	p.execs = append(p.execs, sql)
	return tag{}, nil
}
func (p *recPG) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, errors.New("not wired")
}
func (p *recPG) QueryRow(context.Context, string, ...any) store.Row { return nopRow{} }
func (p *recPG) Tx(ctx context.Context, fn func(store.RowQuerier) error) error {
	return fn(p)
}

type recCH struct{ execs int }

func (c *recCH) Insert(context.Context, string, [][]any) error { return nil }
func (c *recCH) Exec(context.Context, string, ...any) error {
	c.execs++
	return nil
}
func (c *recCH) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (c *recCH) Close() error                                              { return nil }

func newRouter(t *testing.T, swagger bool) http.Handler {
	t.Helper()
	mux := chi.NewRouter()
	disk, err := blob.NewDisk(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	mods := Mount(phttp.AdaptChi(mux), Options{
		Store: &store.Store{PG: &recPG{}},
		Auth: httpkit.NewPortFunc(func(tok string) (string, error) {
			if tok != "good" {
				return "", perr.Unauthorizedf("bad token")
			}
			return "owner-1", nil
		}),
		Blobs:         disk,
		EnableSwagger: swagger,
	})
	if len(mods) != 2 {
		t.Fatalf("modules = %d", len(mods))
	}
	return mux
}

func TestMountRoutes(t *testing.T) {
	t.Parallel()
	h := newRouter(t, false)

	cases := []struct {
		name   string
		path   string
		bearer string
		want   int
	}{
		{"health is public", "/api/v1/health", "", http.StatusOK},
		{"version is public", "/api/v1/version", "", http.StatusOK},
		{"capsules need a bearer", "/api/v1/capsules", "", http.StatusUnauthorized},
		{"bad bearer", "/api/v1/capsules", "nope", http.StatusUnauthorized},
		{"malformed id", "/api/v1/capsules/not-a-uuid", "good", http.StatusBadRequest},
		{"docs off", "/api/docs/doc.json", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tc.bearer)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("%s -> %d want %d: %s", tc.path, rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestMountSwagger(t *testing.T) {
	t.Parallel()
	h := newRouter(t, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/docs/doc.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("doc.json -> %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{`"/capsules/{id}/videos"`, `"/health"`, `"x-media-limits"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("doc.json missing %s", want)
		}
	}
}

func TestMigrate(t *testing.T) {
	t.Parallel()

	if err := Migrate(context.Background(), nil, nil); err != nil {
		t.Fatalf("nil store: %v", err)
	}

	pg, ch := &recPG{}, &recCH{}
	if err := Migrate(context.Background(), &store.Store{PG: pg, CH: ch}, nil); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(pg.execs) != 1 || !strings.Contains(pg.execs[0], "capsules") {
		t.Fatalf("pg execs = %v", pg.execs)
	}
	if ch.execs != 1 {
		t.Fatalf("ch execs = %d", ch.execs)
	}
}
