package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the document service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>appcenter documents — Swagger</title>
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
  "info": { "title": "appcenter-documents", "version": "v1.0.0" },
  "components": {
    "schemas": {
      "Error": { "type": "object", "properties": { "success": {"type":"boolean"}, "error": {"type":"string"}, "kind": {"type":"string","enum":["validation","not_found","storage"]} } },
      "FileInfo": { "type": "object", "properties": { "filename": {"type":"string"}, "size": {"type":"integer"}, "createdAt": {"type":"string","format":"date-time"}, "updatedAt": {"type":"string","format":"date-time"} } }
    },
    "parameters": {
      "filename": { "name": "filename", "in": "path", "required": true, "schema": { "type": "string", "pattern": "^[^/\\\\]+\\.json$" } }
    }
  },
  "paths": {
    "/api/save-data/{filename}": {
      "post": {
        "summary": "Create or replace a named JSON document",
        "parameters": [ { "$ref": "#/components/parameters/filename" } ],
        "requestBody": { "required": true, "content": { "application/json": { "schema": { "oneOf": [ {"type":"object"}, {"type":"array"} ] } } } },
        "responses": {
          "200": { "description": "saved", "content": { "application/json": { "schema": { "type":"object", "properties": { "success": {"type":"boolean"}, "filename": {"type":"string"}, "operation": {"type":"string","enum":["created","updated"]}, "timestamp": {"type":"string","format":"date-time"} } } } } },
          "400": { "description": "invalid filename or body", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Error" } } } },
          "413": { "description": "body too large" },
          "500": { "description": "storage error", "content": { "application/json": { "schema": { "$ref": "#/components/schemas/Error" } } } }
        }
      }
    },
    "/api/load-data/{filename}": {
      "get": {
        "summary": "Return the stored payload only",
        "parameters": [ { "$ref": "#/components/parameters/filename" } ],
        "responses": { "200": { "description": "raw payload" }, "404": { "description": "file not found" }, "500": { "description": "storage error" } }
      }
    },
    "/api/load-data/details/{filename}": {
      "get": {
        "summary": "Return the payload with its metadata",
        "parameters": [ { "$ref": "#/components/parameters/filename" } ],
        "responses": { "200": { "description": "payload and metadata" }, "404": { "description": "file not found" }, "500": { "description": "storage error" } }
      }
    },
    "/api/list-files": {
      "get": {
        "summary": "List stored documents, most recently updated first",
        "responses": { "200": { "description": "file listing", "content": { "application/json": { "schema": { "type":"object", "properties": { "success": {"type":"boolean"}, "files": { "type":"array", "items": { "$ref": "#/components/schemas/FileInfo" } } } } } } }, "500": { "description": "storage error" } }
      }
    },
    "/api/delete-data/{filename}": {
      "delete": {
        "summary": "Delete a stored document",
        "parameters": [ { "$ref": "#/components/parameters/filename" } ],
        "responses": { "200": { "description": "deleted" }, "404": { "description": "file not found" }, "500": { "description": "storage error" } }
      }
    },
    "/api/health": { "get": { "summary": "Server and database status", "responses": { "200": { "description": "always returned; database.connected reports the store" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "exposition format" } } } }
  }
}`
