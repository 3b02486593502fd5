package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"zapboard-backend/internal/common/errors"
)

// RequestID assigns a request id to every request, reusing the inbound header
// when the caller supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// ErrorHandler recovers panics and converts errors attached to the gin context
// into the JSON error envelope.
func ErrorHandler(log zerolog.Logger) gin.HandlerFunc {
	recovery := gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := getRequestID(c)

		log.Error().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithRequestID(requestID).
			WithDetail("panic", fmt.Sprintf("%v", recovered))

		sendErrorResponse(c, appErr, log)
	})

	return func(c *gin.Context) {
		recovery(c)

		if c.IsAborted() || len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := errors.AsAppError(err)
		if !ok {
			appErr = errors.Wrap(err, errors.ErrCodeInternal, "Unhandled error")
		}
		sendErrorResponse(c, appErr, log)
	}
}

// ErrorResponse is the JSON envelope for failed requests.
type ErrorResponse struct {
	Success   bool             `json:"success"`
	Error     *errors.AppError `json:"error"`
	Timestamp time.Time        `json:"timestamp"`
	RequestID string           `json:"request_id"`
	Path      string           `json:"path,omitempty"`
	Method    string           `json:"method,omitempty"`
}

func sendErrorResponse(c *gin.Context, appErr *errors.AppError, log zerolog.Logger) {
	requestID := getRequestID(c)
	appErr.WithRequestID(requestID)

	response := ErrorResponse{
		Success:   false,
		Error:     appErr,
		Timestamp: time.Now(),
		RequestID: requestID,
		Path:      c.Request.URL.Path,
		Method:    c.Request.Method,
	}

	logError(appErr, log, c)

	c.JSON(httpStatusFor(appErr), response)
}

func httpStatusFor(appErr *errors.AppError) int {
	switch appErr.Code {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest,
		errors.ErrCodeInvalidAddress, errors.ErrCodeAmountOutOfRange,
		errors.ErrCodeWalletMalformed:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeBoardNotFound:
		return http.StatusNotFound
	case errors.ErrCodeEligibility:
		return http.StatusForbidden
	case errors.ErrCodeInvoiceMismatch, errors.ErrCodeWalletRejected:
		return http.StatusBadGateway
	case errors.ErrCodeNetwork, errors.ErrCodeRelayUnreachable,
		errors.ErrCodePublishFailed, errors.ErrCodeWalletUnreachable:
		return http.StatusGatewayTimeout
	case errors.ErrCodeVerificationFailed:
		return http.StatusBadGateway
	case errors.ErrCodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func logError(appErr *errors.AppError, log zerolog.Logger, c *gin.Context) {
	event := log.Error()
	switch {
	case appErr.IsValidation(), appErr.IsNotFound():
		event = log.Info()
	case appErr.IsNetwork():
		event = log.Warn()
	}

	event = event.
		Str("request_id", getRequestID(c)).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("error_code", string(appErr.Code)).
		Str("error_message", appErr.Message)

	if appErr.Cause != nil {
		event = event.Err(appErr.Cause)
	}
	if len(appErr.Details) > 0 {
		event = event.Interface("details", appErr.Details)
	}

	event.Msg("Request failed")
}

func getRequestID(c *gin.Context) string {
	if requestID, exists := c.Get("request_id"); exists {
		if id, ok := requestID.(string); ok {
			return id
		}
	}
	return "unknown"
}
