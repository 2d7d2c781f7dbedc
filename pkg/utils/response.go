package utils

import (
	"errors"

	apperrors "fuel-station-monitor/pkg/errors"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func SuccessResponse(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse aborts the request. An AppError anywhere in err's chain supplies the code.
func ErrorResponse(c *gin.Context, status int, message string, err error) {
	resp := Response{
		Success: false,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			resp.Code = appErr.Code
		}
	}
	c.AbortWithStatusJSON(status, resp)
}
