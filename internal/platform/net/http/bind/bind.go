// Package bind decodes request bodies (JSON and multipart) and validates them
package bind

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"reflect"
	"strings"
	"sync"

	perr "timecapsule/internal/platform/errors"
	"timecapsule/internal/platform/logger"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// ValidatorSvc holds the singleton validator and its english translator
type ValidatorSvc struct {
	Validator  *validator.Validate
	Translator ut.Translator
}

var (
	vOnce sync.Once
	vSvc  *ValidatorSvc
)

// Get returns the validator singleton, initialising on first use
func Get() *ValidatorSvc {
	vOnce.Do(func() {
		enLoc := en.New()
		trans, _ := ut.New(enLoc, enLoc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())

		// messages use the json name, falling back to form, then the Go name
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, key := range []string{"json", "form"} {
				tag, _, _ := strings.Cut(fld.Tag.Get(key), ",")
				if tag == "-" {
					return fld.Name
				}
				if tag != "" {
					return tag
				}
			}
			return fld.Name
		})

		_ = en_translations.RegisterDefaultTranslations(v, trans)
		registerShort(v, trans, "min", "{0} must be at least {1}")
		registerShort(v, trans, "max", "{0} must be at most {1}")
		registerShort(v, trans, "notblank", "{0} must not be blank")
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})

		vSvc = &ValidatorSvc{Validator: v, Translator: trans}
	})
	return vSvc
}

// Validate runs struct validation and maps the first failure to a BAD_REQUEST error with its field
func Validate(v any) error {
	err := Get().Validator.Struct(v)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		logger.Get().Error().Err(inv).Msg("validator internal error")
		return perr.Internalf("validation misconfigured")
	}
	field, msg := ValidationFieldAndMessage(err)
	return perr.WithField(perr.BadInputf("%s", msg), field)
}

// ValidationFieldAndMessage returns the first field and translated message
func ValidationFieldAndMessage(err error) (field, message string) {
	if err == nil {
		return "", ""
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), verrs[0].Translate(Get().Translator)
	}
	return "", err.Error()
}

// JSONOptions controls JSON parsing
type JSONOptions struct {
	MaxBytes        int64 // default 1MB
	DisallowUnknown bool  // default true
}

func defaultJSONOptions() JSONOptions {
	return JSONOptions{MaxBytes: 1 << 20, DisallowUnknown: true}
}

// ParseJSON decodes a single JSON document into T and validates it
func ParseJSON[T any](r *http.Request, opts ...JSONOptions) (T, error) {
	var zero T
	o := defaultJSONOptions()
	if len(opts) > 0 {
		o = opts[0]
	}
	defer func() { _ = r.Body.Close() }()

	var body io.Reader = r.Body
	if o.MaxBytes > 0 {
		body = io.LimitReader(r.Body, o.MaxBytes)
	}
	dec := json.NewDecoder(body)
	if o.DisallowUnknown {
		dec.DisallowUnknownFields()
	}

	var dst T
	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return zero, perr.JSONErrf("empty body")
		}
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		return zero, perr.JSONErrf("unexpected trailing data")
	}
	if err := Validate(dst); err != nil {
		return zero, err
	}
	return dst, nil
}

// IsMultipart reports whether the request declares a multipart/form-data body
func IsMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// Form is a parsed multipart body
type Form struct {
	Values map[string][]string
	Files  map[string][]*multipart.FileHeader
}

// Value returns the first value for key
func (f *Form) Value(key string) string {
	if vs := f.Values[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// MultipartOptions controls multipart parsing
type MultipartOptions struct {
	MaxBytes  int64 // whole body cap; exceeding it is LIMIT_EXCEEDED
	MaxMemory int64 // parts beyond this spill to temp files
}

// ParseMultipart parses a multipart body under a hard size cap
// The returned func removes any temp files the parse spilled to disk
func ParseMultipart(w http.ResponseWriter, r *http.Request, o MultipartOptions) (*Form, func(), error) {
	if !IsMultipart(r) {
		return nil, func() {}, perr.BadInputf("expected multipart/form-data body")
	}
	if o.MaxMemory <= 0 {
		o.MaxMemory = 8 << 20
	}
	if o.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, o.MaxBytes)
	}
	if err := r.ParseMultipartForm(o.MaxMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) || strings.Contains(err.Error(), "request body too large") {
			return nil, func() {}, perr.LimitExceededf("request body exceeds %d bytes", o.MaxBytes)
		}
		return nil, func() {}, perr.Wrap(err, perr.ErrorCodeValidation, "malformed multipart body")
	}
	mf := r.MultipartForm
	cleanup := func() { _ = mf.RemoveAll() }
	return &Form{Values: mf.Value, Files: mf.File}, cleanup, nil
}

func registerShort(v *validator.Validate, trans ut.Translator, tag, text string) {
	_ = v.RegisterTranslation(tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field(), fe.Param())
			return msg
		},
	)
}
