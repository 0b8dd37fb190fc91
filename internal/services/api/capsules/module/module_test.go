package module

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"timecapsule/internal/adapters/blob"
	"timecapsule/internal/core/admission"
	"timecapsule/internal/modkit"
	"timecapsule/internal/modkit/httpkit"
	modulepkg "timecapsule/internal/modkit/module"
	"timecapsule/internal/platform/store"
	kit "timecapsule/internal/platform/testkit"
	"timecapsule/internal/services/api/capsules/domain"

	phttp "timecapsule/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

type recTx struct{ sqls []string }

func (r *recTx) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	r.sqls = append(r.sqls, sql+" "+strings.TrimSpace(strings.Repeat("? ", len(args))))
	return nil, errors.New("recTx: no database")
}

func (r *recTx) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, errors.New("recTx: no database")
}

func (r *recTx) QueryRow(context.Context, string, ...any) store.Row { return nil }

func (r *recTx) Tx(_ context.Context, fn func(store.RowQuerier) error) error { return fn(r) }

func TestModuleRequiresAuth(t *testing.T) {
	t.Parallel()

	disk, err := blob.NewDisk(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	deps := modkit.Deps{PG: &recTx{}}

	port := httpkit.NewPortFunc(func(tok string) (string, error) {
		if tok == "ok" {
			return "alice", nil
		}
		return "", errors.New("bad token")
	})
	m := New(deps, Options{Blobs: disk}, modkit.WithAuth(port))
	if m.Name() != "capsules" {
		t.Fatalf("name = %q", m.Name())
	}
	if _, ok := modulepkg.PortsOf[domain.ServicePort](m); !ok {
		t.Fatalf("service port not exposed")
	}

	root := phttp.AdaptChi(chi.NewRouter())
	m.MountRoutes(root)

	rec := httptest.NewRecorder()
	root.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/capsules", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no bearer = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/capsules/not-a-uuid", nil)
	req.Header.Set("Authorization", "Bearer ok")
	rec = httptest.NewRecorder()
	root.Mux().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("authorised bad id = %d %s", rec.Code, rec.Body)
	}
}

func TestModuleWithoutAuthRejectsEverything(t *testing.T) {
	t.Parallel()

	disk, _ := blob.NewDisk(t.TempDir(), "")
	m := New(modkit.Deps{PG: &recTx{}}, Options{Blobs: disk})
	root := phttp.AdaptChi(chi.NewRouter())
	m.MountRoutes(root)

	req := httptest.NewRequest(http.MethodGet, "/capsules", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	root.Mux().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTimeoutSettingAndNilPG(t *testing.T) {
	t.Parallel()

	if timeoutSetting(1500*time.Millisecond) != "1500" || timeoutSetting(time.Microsecond) != "1" {
		t.Fatalf("timeoutSetting mismatch")
	}
	disk, _ := blob.NewDisk(t.TempDir(), "")
	kit.MustPanic(t, func() { New(modkit.Deps{}, Options{Blobs: disk, StatementTimeout: time.Second}) })
}

func TestLimitsDoc(t *testing.T) {
	t.Parallel()

	spec := map[string]any{"info": map[string]any{"title": "x"}}
	limitsDoc(admission.DefaultLimits())(spec)
	got := spec["info"].(map[string]any)["x-media-limits"].(map[string]any)
	if got["total"] != admission.DefaultMaxTotal || got["per_kind"].(map[string]int)["video"] != 2 {
		t.Fatalf("limits doc = %+v", got)
	}
	limitsDoc(admission.DefaultLimits())(map[string]any{})
}

type stubSvc struct{ domain.ServicePort }

func (stubSvc) List(context.Context, string) ([]domain.ListEntry, error) {
	return []domain.ListEntry{{ID: "c1", Title: "stub"}}, nil
}

func TestPortsOverrideSkipsPostgres(t *testing.T) {
	t.Parallel()

	port := httpkit.NewPortFunc(func(string) (string, error) { return "owner-1", nil })
	m := New(modkit.Deps{}, Options{}, modkit.WithAuth(port), modkit.WithPorts(Ports{Service: stubSvc{}}))

	mux := chi.NewRouter()
	m.MountRoutes(phttp.AdaptChi(mux))
	req := httptest.NewRequest(http.MethodGet, "/capsules", nil)
	req.Header.Set("Authorization", "Bearer x")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	kit.MustContain(t, rec.Body.String(), `"stub"`)
}
