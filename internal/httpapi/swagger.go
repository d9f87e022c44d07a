//go:build swagger

package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

type swaggerDoc struct{}

func (swaggerDoc) ReadDoc() string { return swaggerJSON }

func init() { swag.Register(swag.Name, swaggerDoc{}) }

// MountSwagger serves the UI at /swagger/ and the document at /swagger/doc.json.
func MountSwagger(r chi.Router) bool {
	r.Get("/swagger/*", httpSwagger.WrapHandler)
	return true
}

const swaggerJSON = `{
  "swagger": "2.0",
  "info": {"title": "hvxhost API", "version": "1.0", "description": "Control plane for loading and running accelerator kernels."},
  "basePath": "/",
  "paths": {
    "/images": {"get": {"summary": "List kernel images", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/modules": {
      "get": {"summary": "List loaded modules", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}},
      "post": {"summary": "Load a module", "consumes": ["application/json"], "produces": ["application/json"],
        "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}, "404": {"description": "Image not found"}, "409": {"description": "Already loaded"}, "422": {"description": "Load failed"}, "503": {"description": "Power unavailable"}}}
    },
    "/modules/{id}": {"delete": {"summary": "Unload a module", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
      "responses": {"204": {"description": "No Content"}, "404": {"description": "Not Found"}}}},
    "/modules/{id}/symbols/{name}": {"get": {"summary": "Resolve a symbol", "produces": ["application/json"],
      "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}, {"name": "name", "in": "path", "required": true, "type": "string"}],
      "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
    "/modules/{id}/run": {"post": {"summary": "Invoke a kernel", "consumes": ["application/json"], "produces": ["application/json"],
      "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
      "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}, "429": {"description": "Too Many Requests"}, "503": {"description": "Draining"}}}},
    "/status": {"get": {"summary": "Daemon status", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/healthz": {"get": {"summary": "Liveness", "responses": {"200": {"description": "ok"}}}},
    "/readyz": {"get": {"summary": "Readiness", "responses": {"200": {"description": "ready"}, "503": {"description": "not ready"}}}}
  }
}`
