package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tradeforge/internal/apperr"
)

// writeError maps an apperr.Kind to the §7 HTTP status and a structured
// {kind, message, code?} body.
func writeError(c *gin.Context, err error) {
	kind := apperr.Classify(err)
	status := statusForKind(kind)

	body := gin.H{"kind": string(kind), "message": err.Error()}
	if code, ok := apperr.Code(err); ok {
		body["code"] = code
	}
	c.JSON(status, body)
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidationFailed, apperr.KindInvalidQuantity:
		return http.StatusBadRequest
	case apperr.KindNotConfigured, apperr.KindNotActive:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindExchangeRejected, apperr.KindNetwork:
		return http.StatusBadGateway
	case apperr.KindInternalInvariant:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
