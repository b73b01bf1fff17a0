package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/errs"
	"github.com/meghashyamc/bioagents/services/ocr"
	"github.com/meghashyamc/bioagents/validation"
)

type DocumentRequest struct {
	File     string `json:"file" validate:"not_blank"`
	MimeType string `json:"mimeType" validate:"max=100"`
}

func SetupDocuments(router *gin.Engine, logger logger.Logger, service *ocr.Service, validator *validation.Validator) {
	router.POST("/api/documents/extract", handleExtractDocument(service, logger, validator))
}

func handleExtractDocument(service *ocr.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := DocumentRequest{}
		if !bindJSON(c, logger, &request) {
			return
		}

		if err := validator.Validate(request); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}

		result, err := service.Extract(c.Request.Context(), request.File, request.MimeType)
		if err != nil {
			switch {
			case errors.Is(err, errs.ErrValidation):
				writeError(c, http.StatusBadRequest, err.Error())
			case errors.Is(err, errs.ErrConfiguration):
				logger.Error("document extraction is not configured", "err", err.Error())
				writeError(c, http.StatusServiceUnavailable, "document extraction is not available")
			case errors.Is(err, errs.ErrNoContent):
				writeError(c, http.StatusUnprocessableEntity, "no text found in document")
			default:
				logger.Error("document extraction failed", "err", err.Error())
				writeError(c, http.StatusInternalServerError, "could not extract document text")
			}
			return
		}

		writeResponse(c, http.StatusOK, result)
	}
}
