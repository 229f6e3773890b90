package util

import (
	"github.com/gin-gonic/gin"
)

// Business error codes carried next to the HTTP status.
const (
	CodeInvalidParam = 40001
	CodeDuplicate    = 40002
	CodeReference    = 40003
	CodeNotFound     = 40401
	CodeServerErr    = 50001
	CodeUnavailable  = 50301
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Error writes the error envelope and aborts the handler chain.
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{
		Code:    code,
		Message: msg,
	})
}

// FieldError is Error with the offending request field named.
func FieldError(c *gin.Context, httpStatus int, code int, field, msg string) {
	c.AbortWithStatusJSON(httpStatus, ErrorBody{
		Code:    code,
		Message: msg,
		Field:   field,
	})
}
