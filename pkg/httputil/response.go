package httputil

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func RespondWithCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response. AppErrors keep their message and field;
// anything else is reported as an internal error.
func RespondWithError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	body := &Error{Message: "Internal server error"}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		statusCode = appErr.HTTPStatus()
		body.Message = appErr.Message
		body.Field = appErr.Field
		if appErr.Code == apperrors.ErrInvalidTransition && appErr.Err != nil {
			body.Detail = appErr.Err.Error()
		}
	}
	body.Code = statusCode

	_ = c.Error(err)
	c.AbortWithStatusJSON(statusCode, Response{
		Success: false,
		Error:   body,
	})
}

// BindJSON decodes the body into obj and reports malformed JSON as a bad request.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondWithError(c, apperrors.BadRequest("malformed request body", err))
		return false
	}
	return true
}

// BindOptionalJSON is BindJSON for endpoints whose body may be omitted.
func BindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		RespondWithError(c, apperrors.BadRequest("malformed request body", err))
		return false
	}
	return true
}
