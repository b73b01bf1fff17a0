package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/leads"
	"github.com/meghashyamc/bioagents/validation"
)

type ContactRequest struct {
	Name    string `json:"name" validate:"not_blank,max=200"`
	Email   string `json:"email" validate:"required,email,max=320"`
	Company string `json:"company" validate:"max=200"`
	Phone   string `json:"phone" validate:"max=50"`
	Message string `json:"message" validate:"min_trimmed=20,max=5000"`
}

type NewsletterRequest struct {
	Email string `json:"email" validate:"required,email,max=320"`
}

func SetupLeads(router *gin.Engine, logger logger.Logger, service *leads.Service, validator *validation.Validator) {
	router.POST("/api/contact", handleContact(service, logger, validator))
	router.POST("/api/newsletter", handleNewsletter(service, logger, validator))
}

func handleContact(service *leads.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := ContactRequest{}
		if !bindJSON(c, logger, &request) {
			return
		}

		if err := validator.Validate(request); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}

		contact := leads.Contact{
			Name:    request.Name,
			Email:   request.Email,
			Company: request.Company,
			Phone:   request.Phone,
			Message: request.Message,
		}
		if err := service.SubmitContact(c.Request.Context(), contact); err != nil {
			writeError(c, http.StatusInternalServerError, "could not send your message, please try again later")
			return
		}

		writeResponse(c, http.StatusOK, successResponse{Success: true, Message: "message sent, we will get back to you soon"})
	}
}

func handleNewsletter(service *leads.Service, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := NewsletterRequest{}
		if !bindJSON(c, logger, &request) {
			return
		}

		if err := validator.Validate(request); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}

		if err := service.Subscribe(c.Request.Context(), request.Email); err != nil {
			writeError(c, http.StatusInternalServerError, "could not subscribe, please try again later")
			return
		}

		writeResponse(c, http.StatusOK, successResponse{Success: true, Message: "subscription confirmed"})
	}
}
