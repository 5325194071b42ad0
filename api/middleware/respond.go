package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/vgascout/models"
)

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, models.RunResponse{
		Success: false,
		Error:   &models.ErrorDetail{Code: code, Message: message},
	})
}
