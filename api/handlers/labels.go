package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/errs"
	"github.com/meghashyamc/bioagents/services/labels"
	"github.com/meghashyamc/bioagents/validation"
)

type LabelsRequest struct {
	Image    string `json:"image" validate:"not_blank"`
	MimeType string `json:"mimeType" validate:"max=100"`
}

type LabelsResponse struct {
	Fields []labels.Field `json:"fields"`
}

func SetupLabels(router *gin.Engine, logger logger.Logger, extractor *labels.Extractor, validator *validation.Validator) {
	router.POST("/api/labels/extract", handleExtractLabels(extractor, logger, validator))
}

func handleExtractLabels(extractor *labels.Extractor, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := LabelsRequest{}
		if !bindJSON(c, logger, &request) {
			return
		}

		if err := validator.Validate(request); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}

		fields, err := extractor.Extract(c.Request.Context(), request.Image, request.MimeType)
		if err != nil {
			status := errs.Status(err)
			switch status {
			case http.StatusBadRequest:
				writeError(c, status, err.Error())
			case http.StatusBadGateway:
				writeError(c, status, "the model returned an unreadable answer")
			default:
				logger.Error("label extraction failed", "err", err.Error())
				writeError(c, http.StatusInternalServerError, "could not extract label fields")
			}
			return
		}

		writeResponse(c, http.StatusOK, LabelsResponse{Fields: fields})
	}
}
