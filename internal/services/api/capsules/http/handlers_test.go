package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	stdhttp "net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"timecapsule/internal/core/admission"
	"timecapsule/internal/modkit/httpkit"
	perr "timecapsule/internal/platform/errors"
	pnet "timecapsule/internal/platform/net"
	phttp "timecapsule/internal/platform/net/http"
	kit "timecapsule/internal/platform/testkit"
	"timecapsule/internal/services/api/capsules/domain"

	"github.com/go-chi/chi/v5"
)

type fakeSvc struct {
	owner  string
	id     string
	create domain.CreateInput
	ups    []domain.Upload
	bodies []string
	getOut any
	err    error
}

func (f *fakeSvc) read(ups []domain.Upload) {
	f.ups = ups
	for _, u := range ups {
		rc, _ := u.Open()
		b, _ := io.ReadAll(rc)
		_ = rc.Close()
		f.bodies = append(f.bodies, string(b))
	}
}

func (f *fakeSvc) Create(_ context.Context, owner string, in domain.CreateInput, images []domain.Upload) (domain.CapsuleView, error) {
	f.owner, f.create = owner, in
	f.read(images)
	if f.err != nil {
		return domain.CapsuleView{}, f.err
	}
	return domain.CapsuleView{ID: "new-id", Title: in.Title, Media: []domain.MediaItem{}}, nil
}

func (f *fakeSvc) List(_ context.Context, owner string) ([]domain.ListEntry, error) {
	f.owner = owner
	return []domain.ListEntry{{ID: "a", Status: domain.StatusLocked, IsLocked: true}, {ID: "b", Status: domain.StatusUnlocked}}, f.err
}

func (f *fakeSvc) Get(_ context.Context, owner, id string) (any, error) {
	f.owner, f.id = owner, id
	return f.getOut, f.err
}

func (f *fakeSvc) AddVideos(_ context.Context, owner, id string, ups []domain.Upload) (domain.AppendResult, error) {
	f.owner, f.id = owner, id
	f.read(ups)
	return domain.AppendResult{Added: []domain.MediaItem{{Kind: admission.Video}}}, f.err
}

func (f *fakeSvc) AddAudio(_ context.Context, owner, id string, ups []domain.Upload) (domain.AppendResult, error) {
	f.owner, f.id = owner, id
	f.read(ups)
	return domain.AppendResult{Added: []domain.MediaItem{{Kind: admission.Audio}}}, f.err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   *perr.Wire      `json:"error"`
}

func serve(t *testing.T, svc domain.ServicePort, user string, req *stdhttp.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	root := phttp.AdaptChi(chi.NewRouter())
	root.Route("/capsules", func(r httpkit.Router) {
		r.Use(func(next stdhttp.Handler) stdhttp.Handler {
			return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
				next.ServeHTTP(w, r.WithContext(pnet.WithUser(r.Context(), user)))
			})
		})
		Register(r, svc, admission.DefaultLimits())
	})
	rec := httptest.NewRecorder()
	root.Mux().ServeHTTP(rec, req)
	return rec, kit.DecodeJSON[envelope](t, rec.Body)
}

type part struct {
	field, name, contentType, body string
}

func multipartReq(t *testing.T, path string, values map[string]string, parts ...part) *stdhttp.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		_ = mw.WriteField(k, v)
	}
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.name))
		h.Set("Content-Type", p.contentType)
		w, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = w.Write([]byte(p.body))
	}
	_ = mw.Close()
	req := httptest.NewRequest(stdhttp.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestCreateJSON(t *testing.T) {
	t.Parallel()

	svc := &fakeSvc{}
	req := httptest.NewRequest(stdhttp.MethodPost, "/capsules", strings.NewReader(`{"title":"T","message":"M","unlockDate":"2030-01-01"}`))
	rec, env := serve(t, svc, "alice", req)
	if rec.Code != stdhttp.StatusCreated || !env.Success {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	if svc.owner != "alice" || svc.create.Title != "T" || svc.create.UnlockDate != "2030-01-01" || len(svc.ups) != 0 {
		t.Fatalf("service saw %+v", svc)
	}
}

func TestCreateJSONValidation(t *testing.T) {
	t.Parallel()

	cases := []string{
		`{"title":"","message":"M","unlockDate":"2030-01-01"}`,
		`{"title":"   ","message":"M","unlockDate":"2030-01-01"}`,
		`{"title":"T","message":"M"}`,
		`{"title":"T","message":"M","unlockDate":"2030-01-01","extra":1}`,
		`not json`,
	}
	for _, body := range cases {
		svc := &fakeSvc{}
		rec, env := serve(t, svc, "alice", httptest.NewRequest(stdhttp.MethodPost, "/capsules", strings.NewReader(body)))
		if rec.Code != stdhttp.StatusBadRequest || env.Error == nil || env.Error.Code != perr.WireBadRequest {
			t.Fatalf("%s: status = %d %s", body, rec.Code, rec.Body)
		}
		if svc.owner != "" {
			t.Fatalf("%s: service called", body)
		}
	}
}

func TestCreateMultipart(t *testing.T) {
	t.Parallel()

	svc := &fakeSvc{}
	req := multipartReq(t, "/capsules",
		map[string]string{"title": "Trip", "message": "Beach", "unlockDate": "2031-07-01"},
		part{FieldImages, "a.png", "image/png", "PNG"},
		part{FieldImages, "b.jpg", "image/jpeg", "JPEG!"},
	)
	rec, _ := serve(t, svc, "alice", req)
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	if svc.create.Title != "Trip" || len(svc.ups) != 2 {
		t.Fatalf("service saw %+v", svc.create)
	}
	f := svc.ups[1].File
	if f.Name != "b.jpg" || f.ContentType != "image/jpeg" || f.Size != 5 || svc.bodies[1] != "JPEG!" {
		t.Fatalf("upload = %+v body %q", f, svc.bodies[1])
	}
}

func TestCreateMultipartMissingField(t *testing.T) {
	t.Parallel()

	svc := &fakeSvc{}
	rec, env := serve(t, svc, "alice", multipartReq(t, "/capsules", map[string]string{"title": "x", "unlockDate": "2031-01-01"}))
	if rec.Code != stdhttp.StatusBadRequest || env.Error.Field != "message" {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
}

func TestListCarriesCount(t *testing.T) {
	t.Parallel()

	svc := &fakeSvc{}
	rec, env := serve(t, svc, "bob", httptest.NewRequest(stdhttp.MethodGet, "/capsules", nil))
	if rec.Code != stdhttp.StatusOK || svc.owner != "bob" {
		t.Fatalf("status = %d", rec.Code)
	}
	var meta domain.ListMeta
	if err := json.Unmarshal(env.Meta, &meta); err != nil || meta.Count != 2 {
		t.Fatalf("meta = %s", env.Meta)
	}
	var entries []map[string]any
	_ = json.Unmarshal(env.Data, &entries)
	if _, has := entries[1]["unlocksIn"]; has {
		t.Fatalf("unlocked entry should omit unlocksIn: %v", entries[1])
	}
}

func TestGetViews(t *testing.T) {
	t.Parallel()

	in := "2 day(s)"
	svc := &fakeSvc{getOut: domain.LockedView{ID: "c1", Status: domain.StatusLocked, IsLocked: true, UnlocksIn: &in, Notice: domain.LockedNotice}}
	rec, env := serve(t, svc, "alice", httptest.NewRequest(stdhttp.MethodGet, "/capsules/c1", nil))
	if rec.Code != stdhttp.StatusOK || svc.id != "c1" {
		t.Fatalf("status = %d", rec.Code)
	}
	kit.MustContain(t, string(env.Data), `"unlocksIn":"2 day(s)"`)
	if strings.Contains(string(env.Data), "title") {
		t.Fatalf("locked view leaked a title: %s", env.Data)
	}

	svc = &fakeSvc{err: perr.Forbiddenf("not authorized to access this capsule")}
	rec, env = serve(t, svc, "mallory", httptest.NewRequest(stdhttp.MethodGet, "/capsules/c1", nil))
	if rec.Code != stdhttp.StatusForbidden || env.Success || env.Error.Code != perr.WireForbidden {
		t.Fatalf("forbidden = %d %s", rec.Code, rec.Body)
	}
}

func TestAppendStatuses(t *testing.T) {
	t.Parallel()

	svc := &fakeSvc{}
	rec, env := serve(t, svc, "alice", multipartReq(t, "/capsules/c1/videos", nil, part{FieldVideos, "v.mp4", "video/mp4", "frames"}))
	if rec.Code != stdhttp.StatusOK || svc.id != "c1" || len(svc.ups) != 1 {
		t.Fatalf("videos = %d %s", rec.Code, rec.Body)
	}
	kit.MustContain(t, string(env.Data), `"added"`)

	svc = &fakeSvc{}
	rec, _ = serve(t, svc, "alice", multipartReq(t, "/capsules/c1/audio", nil, part{FieldAudio, "a.mp3", "audio/mpeg", "la"}))
	if rec.Code != stdhttp.StatusCreated || len(svc.ups) != 1 {
		t.Fatalf("audio = %d %s", rec.Code, rec.Body)
	}

	svc = &fakeSvc{err: perr.WithReason(perr.LimitExceededf("video limit is 2 per capsule"), string(admission.KindLimitExceeded))}
	rec, env = serve(t, svc, "alice", multipartReq(t, "/capsules/c1/videos", nil, part{FieldVideos, "v.mp4", "video/mp4", "x"}))
	if rec.Code != stdhttp.StatusRequestEntityTooLarge || env.Error.Code != perr.WireLimitExceeded || env.Error.Reason != "KIND_LIMIT_EXCEEDED" {
		t.Fatalf("limit = %d %s", rec.Code, rec.Body)
	}

	svc = &fakeSvc{err: perr.WithReason(perr.BadInputf("no files uploaded"), string(admission.EmptyBatch))}
	rec, env = serve(t, svc, "alice", httptest.NewRequest(stdhttp.MethodPost, "/capsules/c1/audio", strings.NewReader("{}")))
	if rec.Code != stdhttp.StatusBadRequest || env.Error.Reason != "EMPTY_BATCH" {
		t.Fatalf("non multipart = %d %s", rec.Code, rec.Body)
	}
	if svc.owner != "alice" || svc.id != "c1" || len(svc.ups) != 0 {
		t.Fatalf("empty batch should still reach the service: %+v", svc)
	}
}

func TestAppendGatesBeforeBody(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
		wire string
	}{
		{"not the owner", perr.Forbiddenf("not authorized to access this capsule"), stdhttp.StatusForbidden, perr.WireForbidden},
		{"missing capsule", perr.NotFoundf("capsule not found"), stdhttp.StatusNotFound, perr.WireNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			for _, path := range []string{"/capsules/c1/videos", "/capsules/c1/audio"} {
				svc := &fakeSvc{err: tc.err}
				rec, env := serve(t, svc, "bob", httptest.NewRequest(stdhttp.MethodPost, path, nil))
				if rec.Code != tc.want || env.Error == nil || env.Error.Code != tc.wire {
					t.Fatalf("%s -> %d %s", path, rec.Code, rec.Body)
				}
				if svc.owner != "bob" {
					t.Fatalf("%s: service not consulted", path)
				}
			}
		})
	}
}

func TestUnexpectedFileField(t *testing.T) {
	t.Parallel()

	svc := &fakeSvc{}
	req := multipartReq(t, "/capsules",
		map[string]string{"title": "Trip", "message": "Beach", "unlockDate": "2031-07-01"},
		part{FieldImages, "a.png", "image/png", "PNG"},
		part{"photos", "c.png", "image/png", "x"},
	)
	rec, env := serve(t, svc, "alice", req)
	if rec.Code != stdhttp.StatusBadRequest || env.Error.Field != "photos" || svc.owner != "" {
		t.Fatalf("create = %d %s", rec.Code, rec.Body)
	}

	svc = &fakeSvc{}
	rec, env = serve(t, svc, "alice", multipartReq(t, "/capsules/c1/videos", nil, part{FieldAudio, "a.mp3", "audio/mpeg", "la"}))
	if rec.Code != stdhttp.StatusBadRequest || env.Error.Field != FieldAudio || svc.owner != "" {
		t.Fatalf("videos = %d %s", rec.Code, rec.Body)
	}
}

func TestBodyCap(t *testing.T) {
	t.Parallel()

	h := &handlers{limits: admission.DefaultLimits()}
	if got := h.bodyCap(admission.Video); got != 2*(100<<20)+slack {
		t.Fatalf("video cap = %d", got)
	}
	h.limits.MaxBytes = nil
	if h.bodyCap(admission.Video) != 0 {
		t.Fatalf("unlimited bytes should disable the cap")
	}
}
