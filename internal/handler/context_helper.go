package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
)

func actorFromContext(c *gin.Context) *models.UserInfo {
	claims, ok := middleware.CurrentUser(c)
	if !ok || claims == nil {
		return nil
	}
	info := claims.UserInfo()
	return &info
}
