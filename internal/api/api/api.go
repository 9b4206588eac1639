package api

import (
	"festify/cmd/middleware"
	"festify/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"
)

type Routers struct {
	Service service.Service
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(middleware.Identity())
	app.Use(cors.Default())
	apiGroup := app.Group("/v1")

	apiGroup.POST("/events", r.Service.CreateEvent)
	apiGroup.GET("/events", r.Service.GetAllEvents)
	apiGroup.GET("/events/:id", r.Service.GetEvent)
	apiGroup.PATCH("/events/:id", r.Service.UpdateEvent)
	apiGroup.POST("/events/:id/publish", r.Service.PublishEvent)
	apiGroup.POST("/events/:id/register", r.Service.Register)

	apiGroup.POST("/participants", r.Service.CreateParticipant)
	apiGroup.GET("/registrations", r.Service.GetMyRegistrations)

	apiGroup.POST("/teams", r.Service.CreateTeam)
	apiGroup.GET("/teams", r.Service.GetMyTeams)
	apiGroup.GET("/teams/invitations", r.Service.GetInvitations)
	apiGroup.GET("/teams/:id", r.Service.GetTeam)
	apiGroup.POST("/teams/:id/respond", r.Service.RespondInvitation)
	apiGroup.POST("/teams/:id/finalize", r.Service.FinalizeTeam)
	apiGroup.POST("/teams/:id/leave", r.Service.LeaveTeam)
	apiGroup.POST("/teams/:id/disband", r.Service.DisbandTeam)

	apiGroup.POST("/events/:id/scan", r.Service.ScanTicket)
	apiGroup.POST("/events/:id/attendance/manual", r.Service.ManualAttendance)
	apiGroup.GET("/events/:id/attendance", r.Service.GetAttendanceReport)
	apiGroup.GET("/events/:id/attendance/export", r.Service.ExportAttendance)

	app.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return app
}
