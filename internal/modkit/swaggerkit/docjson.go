// Package swaggerkit serves the OpenAPI document and Swagger UI
package swaggerkit

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

//go:embed openapi.json
var openapiDoc []byte

// SpecMutator lets modules tweak the parsed spec before it is served
type SpecMutator func(map[string]any)

var (
	mu       sync.Mutex
	mutators []SpecMutator
)

// docReader is a seam so tests can inject invalid JSON
var docReader = func() []byte { return openapiDoc }

// Register adds a spec mutator; call it from module constructors
func Register(m SpecMutator) {
	if m == nil {
		return
	}
	mu.Lock()
	mutators = append(mutators, m)
	mu.Unlock()
}

// Spec returns the parsed document with base url, error envelope and mutators applied
func Spec(baseURL, titleSuffix string) (map[string]any, error) {
	var spec map[string]any
	if err := json.Unmarshal(docReader(), &spec); err != nil {
		return nil, err
	}
	ensureServers(spec, baseURL)
	if titleSuffix != "" {
		if info, ok := spec["info"].(map[string]any); ok {
			if title, ok := info["title"].(string); ok {
				info["title"] = title + " " + titleSuffix
			}
		}
	}
	ensureEnvelopeSchema(spec)
	addDefaultResponses(spec)

	mu.Lock()
	ms := append([]SpecMutator(nil), mutators...)
	mu.Unlock()
	for _, m := range ms {
		m(spec)
	}
	return spec, nil
}

func serveDocJSON(baseURL, titleSuffix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec, err := Spec(baseURL, titleSuffix)
		if err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(spec)
	}
}

// ensureServers pins the document to OAS 3.0.3 with a servers entry
// the swagger http UI does not render 3.1 yet
func ensureServers(spec map[string]any, url string) {
	if _, hasSwagger := spec["swagger"]; hasSwagger {
		delete(spec, "swagger")
	}
	if v, ok := spec["openapi"].(string); !ok || strings.HasPrefix(v, "3.1") {
		spec["openapi"] = "3.0.3"
	}
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": url}}
	}
}

// ensureEnvelopeSchema adds the ErrorEnvelope model matching the runtime wire
func ensureEnvelopeSchema(spec map[string]any) {
	comps, ok := spec["components"].(map[string]any)
	if !ok {
		comps = map[string]any{}
		spec["components"] = comps
	}
	schemas, ok := comps["schemas"].(map[string]any)
	if !ok {
		schemas = map[string]any{}
		comps["schemas"] = schemas
	}
	if _, ok := schemas["ErrorEnvelope"]; ok {
		return
	}
	schemas["ErrorEnvelope"] = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"success": map[string]any{"type": "boolean"},
			"error": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"code":    map[string]any{"type": "string"},
					"message": map[string]any{"type": "string"},
					"reason":  map[string]any{"type": "string"},
					"field":   map[string]any{"type": "string"},
				},
				"required": []any{"code", "message"},
			},
			"request_id": map[string]any{"type": "string"},
		},
		"required": []any{"success", "error"},
	}
}

// addDefaultResponses injects 400, 401 and 500 envelope responses on every operation that lacks them
func addDefaultResponses(spec map[string]any) {
	paths, ok := spec["paths"].(map[string]any)
	if !ok {
		return
	}
	defaults := map[string]any{
		"400": errorResponse("Bad Request", "BAD_REQUEST", "unlockDate must be in the future"),
		"401": errorResponse("Unauthorized", "UNAUTHORIZED", "missing bearer token"),
		"500": errorResponse("Internal Server Error", "SERVER_ERROR", "internal server error"),
	}
	for _, p := range paths {
		node, ok := p.(map[string]any)
		if !ok {
			continue
		}
		for _, opAny := range node {
			op, ok := opAny.(map[string]any)
			if !ok {
				continue
			}
			resps, ok := op["responses"].(map[string]any)
			if !ok {
				resps = map[string]any{}
				op["responses"] = resps
			}
			for status, resp := range defaults {
				if _, exists := resps[status]; !exists {
					resps[status] = resp
				}
			}
		}
	}
}

func errorResponse(desc, code, msg string) map[string]any {
	return map[string]any{
		"description": desc,
		"content": map[string]any{
			"application/json": map[string]any{
				"schema": map[string]any{"$ref": "#/components/schemas/ErrorEnvelope"},
				"example": map[string]any{
					"success":    false,
					"error":      map[string]any{"code": code, "message": msg},
					"request_id": "c0ffee/abc-000001",
				},
			},
		},
	}
}
