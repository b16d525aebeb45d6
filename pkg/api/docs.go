package api

import "net/http"

// openAPIDoc is a hand-written OpenAPI document describing the three
// read-only routes this server exposes. It is served at
// /swagger/doc.json for httpSwagger.Handler to render; there is no
// swag-generated doc here since the route set is small and fixed.
const openAPIDoc = `{
  "swagger": "2.0",
  "info": {
    "title": "cordix query server",
    "description": "Read-only HTTP access to a cordix B-tree index file.",
    "version": "1.0.0"
  },
  "basePath": "/",
  "paths": {
    "/healthz": {
      "get": {
        "summary": "Health check",
        "responses": {
          "200": {"description": "index file opens and its magic validates"},
          "503": {"description": "index file missing or invalid"}
        }
      }
    },
    "/keys/{key}": {
      "get": {
        "summary": "Search for a key",
        "parameters": [
          {"name": "key", "in": "path", "required": true, "type": "integer"}
        ],
        "responses": {
          "200": {"description": "key found"},
          "404": {"description": "key not found, or index is empty"}
        }
      }
    },
    "/keys": {
      "get": {
        "summary": "List all key,value pairs in ascending key order",
        "responses": {
          "200": {"description": "full ascending traversal"}
        }
      }
    }
  }
}`

func handleOpenAPIDoc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(openAPIDoc))
}
