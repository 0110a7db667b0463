// internal/interfaces/http/response/response.go
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/solara-commerce/solara-backend/internal/pkg/errs"
	"github.com/solara-commerce/solara-backend/internal/pkg/logger"
)

// Envelope is the uniform response shape for every endpoint
type Envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination interface{} `json:"pagination,omitempty"`
}

// ErrorBody carries the machine-readable code alongside the message
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OK sends a 200 response with data
func OK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created sends a 201 response with data
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Paginated sends a 200 response with data and pagination metadata
func Paginated(c *gin.Context, data interface{}, pagination interface{}) {
	c.JSON(http.StatusOK, Envelope{
		Success:    true,
		Data:       data,
		Pagination: pagination,
	})
}

// Error maps a coded error to its HTTP status. Unclassified errors are
// logged and returned as a generic 500 so internals never leak.
func Error(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	code := errs.CodeOf(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Request failed")
		message = "internal server error"
	}

	c.JSON(status, Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:    string(code),
			Message: message,
		},
	})
}

// BadRequest sends a 400 validation error, used for binding failures
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{
		Success: false,
		Error: &ErrorBody{
			Code:    string(errs.CodeValidation),
			Message: message,
		},
	})
}
