// Package http provides http transport for capsules
package http

import (
	"io"
	"mime/multipart"
	stdhttp "net/http"

	"timecapsule/internal/core/admission"
	"timecapsule/internal/modkit/httpkit"
	perr "timecapsule/internal/platform/errors"
	"timecapsule/internal/platform/net/http/bind"
	"timecapsule/internal/services/api/capsules/domain"
)

// Multipart field names
const (
	FieldImages = "media"
	FieldVideos = "videos"
	FieldAudio  = "audio"
)

// slack covers form values and part headers on top of the file payload
const slack = 1 << 20

// Register mounts the capsule routes; every route needs an authenticated caller
func Register(r httpkit.Router, s domain.ServicePort, limits admission.Limits) {
	h := &handlers{svc: s, limits: limits}
	r.Post("/", httpkit.Handle(h.create))
	r.Get("/", httpkit.Handle(h.list))
	r.Get("/{id}", httpkit.Call(h.get))
	r.Post("/{id}/videos", httpkit.Handle(h.addVideos))
	r.Post("/{id}/audio", httpkit.Handle(h.addAudio))
}

type handlers struct {
	svc    domain.ServicePort
	limits admission.Limits
}

// bodyCap bounds a multipart body to what a full batch of kind could legally weigh
func (h *handlers) bodyCap(k admission.Kind) int64 {
	n := int64(h.limits.PerKindMax[k])
	per := h.limits.MaxBytes[k]
	if n <= 0 || per <= 0 {
		return 0
	}
	return n*per + slack
}

// swagger:route POST /capsules Capsules create
// @Summary Create a capsule
// @Tags capsules
// @Accept json,mpfd
// @Produce json
// @Param payload body domain.CreateInput true "Capsule"
// @Success 201 {object} domain.CapsuleView "created"
// @Failure 413 {object} httpkit.Envelope "image limits"
// @Router /capsules [post]
func (h *handlers) create(r *stdhttp.Request) httpkit.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return httpkit.Error(err)
	}

	var (
		in     domain.CreateInput
		images []domain.Upload
	)
	if bind.IsMultipart(r) {
		form, cleanup, err := bind.ParseMultipart(nil, r, bind.MultipartOptions{MaxBytes: h.bodyCap(admission.Image)})
		defer cleanup()
		if err != nil {
			return httpkit.Error(err)
		}
		in = domain.CreateInput{
			Title:      form.Value("title"),
			Message:    form.Value("message"),
			UnlockDate: form.Value("unlockDate"),
		}
		if err := bind.Validate(in); err != nil {
			return httpkit.Error(err)
		}
		if err := onlyField(form, FieldImages); err != nil {
			return httpkit.Error(err)
		}
		images = uploadsOf(form, FieldImages)
	} else {
		in, err = bind.ParseJSON[domain.CreateInput](r)
		if err != nil {
			return httpkit.Error(err)
		}
	}

	out, err := h.svc.Create(r.Context(), uid, in, images)
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.Created(out)
}

// swagger:route GET /capsules Capsules list
// @Summary List the caller's capsules by unlock date
// @Tags capsules
// @Produce json
// @Success 200 {array} domain.ListEntry "ok"
// @Router /capsules [get]
func (h *handlers) list(r *stdhttp.Request) httpkit.Response {
	uid, err := httpkit.User(r)
	if err != nil {
		return httpkit.Error(err)
	}
	out, err := h.svc.List(r.Context(), uid)
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.OK(out).WithMeta(domain.ListMeta{Count: len(out)})
}

// swagger:route GET /capsules/{id} Capsules get
// @Summary Get one capsule; content stays hidden until unlock
// @Tags capsules
// @Produce json
// @Param id path string true "Capsule id"
// @Success 200 {object} domain.UnlockedView "ok"
// @Failure 403 {object} httpkit.Envelope "not the owner"
// @Failure 404 {object} httpkit.Envelope "not found"
// @Router /capsules/{id} [get]
func (h *handlers) get(r *stdhttp.Request) (any, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return nil, err
	}
	return h.svc.Get(r.Context(), uid, httpkit.Param(r, "id"))
}

// swagger:route POST /capsules/{id}/videos Capsules addVideos
// @Summary Attach videos
// @Tags capsules
// @Accept mpfd
// @Produce json
// @Param id path string true "Capsule id"
// @Success 200 {object} domain.AppendResult "ok"
// @Router /capsules/{id}/videos [post]
func (h *handlers) addVideos(r *stdhttp.Request) httpkit.Response {
	out, err := h.appendMedia(r, admission.Video, FieldVideos)
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.OK(out)
}

// swagger:route POST /capsules/{id}/audio Capsules addAudio
// @Summary Attach audio
// @Tags capsules
// @Accept mpfd
// @Produce json
// @Param id path string true "Capsule id"
// @Success 201 {object} domain.AppendResult "created"
// @Router /capsules/{id}/audio [post]
func (h *handlers) addAudio(r *stdhttp.Request) httpkit.Response {
	out, err := h.appendMedia(r, admission.Audio, FieldAudio)
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.Created(out)
}

func (h *handlers) appendMedia(r *stdhttp.Request, k admission.Kind, field string) (domain.AppendResult, error) {
	uid, err := httpkit.User(r)
	if err != nil {
		return domain.AppendResult{}, err
	}
	id := httpkit.Param(r, "id")

	// a body without parts is an empty batch; the service gates ownership before the guard rejects it
	var ups []domain.Upload
	if bind.IsMultipart(r) {
		form, cleanup, err := bind.ParseMultipart(nil, r, bind.MultipartOptions{MaxBytes: h.bodyCap(k)})
		defer cleanup()
		if err != nil {
			return domain.AppendResult{}, err
		}
		if err := onlyField(form, field); err != nil {
			return domain.AppendResult{}, err
		}
		ups = uploadsOf(form, field)
	}
	if k == admission.Video {
		return h.svc.AddVideos(r.Context(), uid, id, ups)
	}
	return h.svc.AddAudio(r.Context(), uid, id, ups)
}

// onlyField rejects file parts sent under any field other than field
func onlyField(form *bind.Form, field string) error {
	for name, fhs := range form.Files {
		if name != field && len(fhs) > 0 {
			return perr.WithField(perr.BadInputf("unexpected file field %q; send files as %q", name, field), name)
		}
	}
	return nil
}

// uploadsOf turns the parts under field into uploads using the declared part content type
func uploadsOf(form *bind.Form, field string) []domain.Upload {
	fhs := form.Files[field]
	out := make([]domain.Upload, 0, len(fhs))
	for _, fh := range fhs {
		out = append(out, domain.Upload{
			File: admission.File{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
			},
			Open: opener(fh),
		})
	}
	return out
}

func opener(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return fh.Open() }
}
