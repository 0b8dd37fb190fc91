package swaggerkit

import (
	"net/http"

	phttp "timecapsule/internal/platform/net/http"

	httpSwagger "github.com/swaggo/http-swagger"
)

// Options configures Mount
type Options struct {
	Enabled     bool
	BaseURL     string
	TitleSuffix string
}

// Mount registers the Swagger UI and JSON document under /api/docs when enabled
func Mount(r phttp.Router, o Options) {
	if !o.Enabled {
		return
	}
	if o.BaseURL == "" {
		o.BaseURL = "/api/v1"
	}
	r.Get("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/docs/", http.StatusPermanentRedirect)
	})
	r.Get("/api/docs/doc.json", serveDocJSON(o.BaseURL, o.TitleSuffix))
	r.Handle("/api/docs/*", httpSwagger.Handler(
		httpSwagger.InstanceName("api"),
		httpSwagger.URL("/api/docs/doc.json"),
	))
}
