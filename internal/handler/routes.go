package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
)

// RouteConfig controls how the API group is protected.
type RouteConfig struct {
	AuthEnabled bool
	Validator   middleware.TokenValidator
	Logger      *zap.Logger
}

// RegisterRoutes mounts the timetable and export endpoints on the group.
// With auth enabled, reads accept any authenticated caller while writes need ADMIN.
func RegisterRoutes(api *gin.RouterGroup, timetables *TimetableHandler, exports *ExportHandler, cfg RouteConfig) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	read := []gin.HandlerFunc{}
	write := []gin.HandlerFunc{}
	if cfg.AuthEnabled && cfg.Validator != nil {
		read = append(read, middleware.JWT(cfg.Validator))
		write = append(write, middleware.JWT(cfg.Validator), middleware.RequireRoles(models.RoleAdmin))
	} else if cfg.Validator != nil {
		read = append(read, middleware.OptionalJWT(cfg.Validator))
		write = append(write, middleware.OptionalJWT(cfg.Validator))
	}

	group := api.Group("/timetables")
	{
		group.POST("/generate", chain(read, timetables.Generate)...)
		group.POST("/generate/raw", chain(read, timetables.GenerateRaw)...)
		group.POST("/verify", chain(read, timetables.Verify)...)
		group.GET("/proposals/:proposalId/export", chain(read, exports.Proposal)...)

		group.POST("", chain(write, middleware.Audit(logger, "timetable.save", "timetable"), timetables.Save)...)
		group.GET("", chain(read, timetables.List)...)
		group.GET("/:id", chain(read, timetables.Get)...)
		group.GET("/:id/entries", chain(read, timetables.Entries)...)
		group.GET("/:id/export", chain(read, exports.Timetable)...)
		group.POST("/:id/exports", chain(write, middleware.Audit(logger, "timetable.export", "timetable"), exports.CreateLink)...)
		group.DELETE("/:id", chain(write, middleware.Audit(logger, "timetable.delete", "timetable"), timetables.Delete)...)
	}

	// Signed links carry their own authorization.
	api.GET("/exports/:token", exports.Download)
}

func chain(base []gin.HandlerFunc, handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(base)+len(handlers))
	out = append(out, base...)
	return append(out, handlers...)
}
