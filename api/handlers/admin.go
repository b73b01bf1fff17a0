package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bioagents/db/searchdb"
	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/leads"
	"github.com/meghashyamc/bioagents/validation"
)

const HeaderAdminEmail = "X-Admin-Email"

type Indexer interface {
	Index(documents []searchdb.Document) error
}

type IndexDocument struct {
	ID      string `json:"id" validate:"not_blank,max=200"`
	Title   string `json:"title" validate:"max=500"`
	Content string `json:"content" validate:"not_blank"`
	URI     string `json:"uri" validate:"max=2000"`
}

type IndexRequest struct {
	Documents []IndexDocument `json:"documents" validate:"required,min=1,max=500,dive"`
}

type IndexResponse struct {
	Indexed int `json:"indexed"`
}

// SetupAdmin registers the back-office routes. indexer may be nil when search runs
// against a managed index.
func SetupAdmin(router *gin.Engine, logger logger.Logger, service *leads.Service, indexer Indexer, adminEmails []string, validator *validation.Validator) {
	group := router.Group("/api/admin", requireAdmin(logger, adminEmails))
	group.GET("/contacts", handleListContacts(service, logger))
	group.GET("/subscribers", handleListSubscribers(service, logger))
	group.POST("/search/documents", handleIndexDocuments(indexer, logger, validator))
}

func requireAdmin(logger logger.Logger, adminEmails []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			allowed[email] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		email := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderAdminEmail)))
		if _, ok := allowed[email]; !ok || email == "" {
			logger.Warn("admin access denied", "path", c.Request.URL.Path, "email", email)
			writeError(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

func handleListContacts(service *leads.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := service.Contacts(c.Request.Context(), queryLimit(c))
		if err != nil {
			logger.Error("could not list contacts", "err", err.Error())
			writeError(c, http.StatusInternalServerError, "could not list contacts")
			return
		}
		writeResponse(c, http.StatusOK, itemsResponse{Items: items})
	}
}

func handleListSubscribers(service *leads.Service, logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := service.Subscribers(c.Request.Context(), queryLimit(c))
		if err != nil {
			logger.Error("could not list subscribers", "err", err.Error())
			writeError(c, http.StatusInternalServerError, "could not list subscribers")
			return
		}
		writeResponse(c, http.StatusOK, itemsResponse{Items: items})
	}
}

func handleIndexDocuments(indexer Indexer, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if indexer == nil {
			writeError(c, http.StatusNotImplemented, "search documents are managed by the search service")
			return
		}

		request := IndexRequest{}
		if !bindJSON(c, logger, &request) {
			return
		}

		if err := validator.Validate(request); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}

		documents := make([]searchdb.Document, 0, len(request.Documents))
		for _, document := range request.Documents {
			documents = append(documents, searchdb.Document{
				ID:      document.ID,
				Title:   document.Title,
				Content: document.Content,
				URI:     document.URI,
			})
		}

		if err := indexer.Index(documents); err != nil {
			logger.Error("could not index search documents", "err", err.Error())
			writeError(c, http.StatusInternalServerError, "could not index documents")
			return
		}

		writeResponse(c, http.StatusOK, IndexResponse{Indexed: len(documents)})
	}
}
