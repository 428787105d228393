package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sec-rag-agent/internal/faults"
)

// errorBody is the error envelope every non-2xx response carries.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    faults.Kind            `json:"kind"`
	Message string                 `json:"message"`
	Streams []faults.StreamFailure `json:"streams,omitempty"`
}

// statusForError maps a fault kind to an HTTP status. Untyped errors are
// treated as internal.
func statusForError(err error) int {
	switch faults.KindOf(err) {
	case faults.KindResolution:
		// Only "no company named" is the client's fault; a resolution that
		// broke inside the extraction call is an upstream failure.
		if errors.Is(err, faults.ErrNoCompany) {
			return http.StatusBadRequest
		}
		return http.StatusBadGateway
	case faults.KindRetrieval:
		return http.StatusServiceUnavailable
	case faults.KindModelInvocation, faults.KindModelOutput, faults.KindAggregation:
		return http.StatusBadGateway
	case faults.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	detail := errorDetail{
		Kind:    faults.KindOf(err),
		Message: err.Error(),
	}
	var fe *faults.Error
	if errors.As(err, &fe) {
		detail.Streams = fe.Streams
	}
	if detail.Kind == "" {
		detail.Kind = "internal_error"
	}
	c.JSON(statusForError(err), errorBody{Error: detail})
}

func writeBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
		Kind:    "invalid_request_error",
		Message: message,
	}})
}
