// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/curation-backend/internal/i18n"
	"github.com/javajoker/curation-backend/internal/repository"
	"github.com/javajoker/curation-backend/internal/scraper"
	"github.com/javajoker/curation-backend/internal/services"
	"github.com/javajoker/curation-backend/internal/utils"
)

// respondError maps pipeline errors onto the response envelope. resource
// names the not-found message used when the lookup failed.
func respondError(c *gin.Context, err error, resource string) {
	lang := utils.GetLangFromContext(c)

	var (
		noAdapter  *scraper.NoAdapterError
		adapterErr *scraper.AdapterError
		fetchErr   *scraper.FetchError
		incomplete *services.DraftIncompleteError
		conflict   *services.StateConflictError
	)

	switch {
	case errors.Is(err, services.ErrValidation):
		if fields := utils.GetValidationErrors(err); len(fields) > 0 {
			utils.ValidationErrorResponse(c, fields)
			return
		}
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": "), nil)
	case errors.Is(err, repository.ErrNotFound):
		utils.NotFoundResponse(c, resource)
	case errors.As(err, &noAdapter):
		utils.UnprocessableResponse(c, "NO_ADAPTER", i18n.T(lang, i18n.KeyScrapeNoAdapter), gin.H{"url": noAdapter.URL})
	case errors.As(err, &adapterErr):
		utils.UnprocessableResponse(c, "ADAPTER_FAILED", i18n.T(lang, i18n.KeyScrapeAdapterFailed), gin.H{
			"adapter": adapterErr.Adapter,
			"error":   adapterErr.Error(),
		})
	case errors.As(err, &fetchErr):
		utils.BadGatewayResponse(c, "FETCH_FAILED", i18n.T(lang, i18n.KeyScrapeFetchFailed)+": "+fetchErr.Error())
	case errors.As(err, &incomplete):
		utils.UnprocessableResponse(c, "DRAFT_INCOMPLETE", i18n.T(lang, i18n.KeyDraftIncomplete), gin.H{"missing": incomplete.Missing})
	case errors.As(err, &conflict):
		utils.ConflictResponse(c, "STATE_CONFLICT", conflict.Error())
	case errors.Is(err, repository.ErrVersionConflict):
		utils.ConflictResponse(c, "VERSION_CONFLICT", i18n.T(lang, i18n.KeyVersionConflict))
	case errors.Is(err, services.ErrAlreadySent):
		utils.ConflictResponse(c, "", i18n.T(lang, i18n.KeyAlreadySent))
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}

// parseID reads a uuid path parameter, answering 400 when malformed.
func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, param), nil)
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds a JSON body when one was sent.
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}
