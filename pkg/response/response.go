package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

const requestIDHeader = "X-Request-ID"

// Response is the unified API envelope. Code is 0 on success and the HTTP
// status otherwise.
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// AppError is an error that knows how it should be answered over HTTP.
type AppError struct {
	HTTPStatus int
	Code       int
	Message    string // sent to the client verbatim
	Err        error  // logged, never sent
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(status int, msg string, err error) *AppError {
	return &AppError{HTTPStatus: status, Code: status, Message: msg, Err: err}
}

func NewBadRequest(msg string) *AppError {
	return newAppError(http.StatusBadRequest, msg, nil)
}

func NewUnauthorized(msg string) *AppError {
	return newAppError(http.StatusUnauthorized, msg, nil)
}

func NewForbidden(msg string) *AppError {
	return newAppError(http.StatusForbidden, msg, nil)
}

func NewNotFound(msg string) *AppError {
	return newAppError(http.StatusNotFound, msg, nil)
}

// NewBadGateway reports that an upstream collaborator (GitHub, an LLM) failed.
func NewBadGateway(msg string, err error) *AppError {
	return newAppError(http.StatusBadGateway, msg, err)
}

// Success sends a 200 OK response with data.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "ok", Data: data})
}

// Outcome sends a 200 response for a non-error result that is not the normal
// payload, e.g. "no_activity".
func Outcome(c *gin.Context, status string) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: status,
		Data:    gin.H{"status": status},
	})
}

// Error answers with err. An *AppError keeps its status and message; anything
// else becomes a generic 500. Causes are attached to the gin context so the
// request logger records them.
func Error(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		Fail(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	if appErr.Err != nil {
		_ = c.Error(appErr.Err)
	}
	c.JSON(appErr.HTTPStatus, Response{
		Code:      appErr.Code,
		Message:   appErr.Message,
		RequestID: c.Writer.Header().Get(requestIDHeader),
	})
}

// Fail sends an error envelope with the given status.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Response{
		Code:      status,
		Message:   msg,
		RequestID: c.Writer.Header().Get(requestIDHeader),
	})
}

func BadRequest(c *gin.Context, msg string)   { Fail(c, http.StatusBadRequest, msg) }
func Unauthorized(c *gin.Context, msg string) { Fail(c, http.StatusUnauthorized, msg) }
func Forbidden(c *gin.Context, msg string)    { Fail(c, http.StatusForbidden, msg) }

func TooManyRequests(c *gin.Context, msg string) {
	Fail(c, http.StatusTooManyRequests, msg)
}
