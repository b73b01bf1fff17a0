package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meghashyamc/bioagents/logger"
	"github.com/meghashyamc/bioagents/services/errs"
	"github.com/meghashyamc/bioagents/services/search"
	"github.com/meghashyamc/bioagents/validation"
)

type SearchRequest struct {
	Query    string `form:"q" json:"q" validate:"not_blank,max=1000"`
	PageSize int    `form:"page_size" json:"page_size" validate:"min=0,max=50"`
}

type SearchResponse struct {
	Results []search.Document `json:"results"`
}

func SetupSearch(router *gin.Engine, logger logger.Logger, service *search.Service, servingConfig string, validator *validation.Validator) {
	router.GET("/api/search", handleSearch(service, servingConfig, logger, validator))
}

func handleSearch(service *search.Service, servingConfig string, logger logger.Logger, validator *validation.Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := SearchRequest{}
		if err := c.ShouldBindQuery(&request); err != nil {
			logger.Warn("could not extract expected params from search request", "err", err.Error())
			writeError(c, http.StatusBadRequest, "failed to extract query parameters")
			return
		}

		if err := validator.Validate(request); err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}

		results, err := service.Search(c.Request.Context(), servingConfig, request.Query, request.PageSize)
		if err != nil {
			var searchErr *search.SearchError
			if errors.As(err, &searchErr) || errors.Is(err, errs.ErrUpstreamFormat) {
				writeError(c, http.StatusBadGateway, "the search service returned an error")
				return
			}
			writeError(c, http.StatusInternalServerError, "search failed")
			return
		}

		writeResponse(c, http.StatusOK, SearchResponse{Results: results})
	}
}
