package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qgem/appcenter/backend/go-services/internal/apperr"
	"github.com/qgem/appcenter/backend/go-services/internal/document"
	"github.com/qgem/appcenter/backend/go-services/internal/document/service"
)

// RegisterDocumentRoutes mounts the named-document API under /api.
func RegisterDocumentRoutes(r gin.IRouter, svc service.Service) {
	h := &Handler{svc: svc}
	api := r.Group("/api")
	api.POST("/save-data/:filename", h.Save)
	api.GET("/load-data/:filename", h.LoadData)
	api.GET("/load-data/details/:filename", h.LoadDetails)
	api.GET("/list-files", h.List)
	api.DELETE("/delete-data/:filename", h.Delete)
}

// Handler translates HTTP requests into service calls.
type Handler struct {
	svc service.Service
}

// statusFor maps an error kind to its HTTP status and client-facing message.
// Only validation and not-found details are echoed back.
func statusFor(err error) (int, string) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, "storage error"
	}
	msg := ae.Kind.String()
	if ae.Err != nil {
		msg = ae.Err.Error()
	}
	switch ae.Kind {
	case apperr.KindValidation:
		return http.StatusBadRequest, msg
	case apperr.KindNotFound:
		return http.StatusNotFound, msg
	}
	return http.StatusInternalServerError, "storage error"
}

func writeError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	c.JSON(status, gin.H{"success": false, "error": msg, "kind": apperr.KindOf(err).String()})
}

// Save accepts any JSON object or array body and upserts it under :filename.
func (h *Handler) Save(c *gin.Context) {
	filename := c.Param("filename")
	if err := document.ValidateFilename(filename); err != nil {
		writeError(c, err)
		return
	}
	raw, err := c.GetRawData()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "request body too large", "kind": apperr.KindValidation.String()})
			return
		}
		writeError(c, apperr.Validationf("save", filename, "cannot read body: %v", err))
		return
	}
	data, err := document.NormalizePayload(raw)
	if err != nil {
		writeError(c, err)
		return
	}

	res, err := h.svc.Save(c.Request.Context(), filename, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"filename":  res.Filename,
		"operation": res.Operation,
		"timestamp": res.Timestamp,
	})
}

// LoadData returns the stored payload only, for game clients.
func (h *Handler) LoadData(c *gin.Context) {
	d, err := h.svc.Load(c.Request.Context(), c.Param("filename"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", d.Data)
}

// LoadDetails returns the payload with its metadata, for the admin page.
func (h *Handler) LoadDetails(c *gin.Context) {
	d, err := h.svc.Load(c.Request.Context(), c.Param("filename"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"filename":  d.Filename,
		"data":      d.Data,
		"size":      d.Size,
		"createdAt": d.CreatedAt,
		"updatedAt": d.UpdatedAt,
	})
}

// List returns every stored filename with metadata, most recently updated first.
func (h *Handler) List(c *gin.Context) {
	files, err := h.svc.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "files": files})
}

// Delete removes a document; unknown filenames are 404 every time.
func (h *Handler) Delete(c *gin.Context) {
	filename := c.Param("filename")
	if err := h.svc.Delete(c.Request.Context(), filename); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "filename": filename, "deleted": true})
}
