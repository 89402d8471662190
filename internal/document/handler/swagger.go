package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the archive API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(r gin.IRouter) {
	r.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	r.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>archive API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "archive", "version": "v0.1.0" },
  "components": {
    "parameters": {
      "id": { "name": "id", "in": "path", "required": true, "schema": { "type": "string" } },
      "user": { "name": "X-Archive-User", "in": "header", "required": true, "schema": { "type": "string" } }
    },
    "schemas": {
      "Fields": { "type": "object", "properties": { "title": {"type":"string"}, "year": {"type":"integer"}, "category": {"type":"string"}, "storageLocation": {"type":"string"}, "copies": {"type":"integer"} } },
      "HistoryEntry": { "type": "object", "properties": { "action": {"type":"string","enum":["modified","borrowed","returned"]}, "user": {"type":"string"}, "date": {"type":"string","format":"date-time"} } },
      "Document": { "allOf": [ { "$ref": "#/components/schemas/Fields" }, { "type": "object", "properties": {
        "id": {"type":"string"},
        "history": { "type": "array", "items": { "$ref": "#/components/schemas/HistoryEntry" } },
        "borrowedBy": {"type":"string","nullable":true},
        "returnDueDate": {"type":"string","format":"date-time","nullable":true},
        "lastModifiedBy": {"type":"string","nullable":true},
        "lastModifiedDate": {"type":"string","format":"date-time","nullable":true} } } ] }
    }
  },
  "paths": {
    "/api/documents": {
      "get": { "summary": "List or search documents", "parameters": [ {"name":"year","in":"query","schema":{"type":"integer"}}, {"name":"title","in":"query","schema":{"type":"string"}}, {"name":"location","in":"query","schema":{"type":"string"}} ], "responses": { "200": { "description": "documents in storage order" }, "304": { "description": "ETag matched" } } },
      "post": { "summary": "Create a document", "parameters": [ {"$ref":"#/components/parameters/user"} ], "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Fields"} } } }, "responses": { "201": { "description": "created" }, "400": { "description": "invalid document" } } }
    },
    "/api/documents/overdue": {
      "get": { "summary": "Documents past their due date", "parameters": [ {"name":"at","in":"query","schema":{"type":"string","format":"date-time"}} ], "responses": { "200": { "description": "overdue documents" } } }
    },
    "/api/documents/{id}": {
      "get": { "summary": "Get a document", "parameters": [ {"$ref":"#/components/parameters/id"} ], "responses": { "200": { "description": "document" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Update editable fields", "parameters": [ {"$ref":"#/components/parameters/id"}, {"$ref":"#/components/parameters/user"} ], "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Fields"} } } }, "responses": { "200": { "description": "updated" }, "400": { "description": "unknown field or invalid value" }, "404": { "description": "not found" } } },
      "delete": { "summary": "Delete a document (idempotent)", "parameters": [ {"$ref":"#/components/parameters/id"}, {"$ref":"#/components/parameters/user"} ], "responses": { "204": { "description": "deleted or absent" } } }
    },
    "/api/documents/{id}/borrow": {
      "post": { "summary": "Borrow a document", "parameters": [ {"$ref":"#/components/parameters/id"}, {"$ref":"#/components/parameters/user"} ], "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"dueDate":{"type":"string","format":"date-time"},"days":{"type":"integer"}}} } } }, "responses": { "200": { "description": "borrowed" }, "400": { "description": "invalid due date" }, "404": { "description": "not found" }, "409": { "description": "already borrowed" } } }
    },
    "/api/documents/{id}/return": {
      "post": { "summary": "Return a document", "parameters": [ {"$ref":"#/components/parameters/id"}, {"$ref":"#/components/parameters/user"} ], "responses": { "200": { "description": "returned" }, "404": { "description": "not found" }, "409": { "description": "not borrowed" } } }
    },
    "/api/documents/{id}/history": {
      "get": { "summary": "Audit history with replayed lending state", "parameters": [ {"$ref":"#/components/parameters/id"} ], "responses": { "200": { "description": "history" }, "404": { "description": "not found" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
