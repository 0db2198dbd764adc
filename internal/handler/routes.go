package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/mentix-trading/mentix-api/internal/middleware"
)

// Routes groups the handlers and guards mounted under the API prefix.
type Routes struct {
	Slots    *SlotHandler
	Bookings *BookingHandler
	Admin    *AdminHandler
	Market   *MarketHandler
	Leads    *LeadHandler

	// Sessions authorises /admin routes other than login and logout.
	Sessions middleware.SessionValidator
	// Limiter throttles public writes. Nil disables throttling.
	Limiter *middleware.RateLimiter
}

// Register mounts every API route on group.
func (r Routes) Register(group gin.IRouter) {
	throttle := r.Limiter.Handler()

	group.GET("/slots", r.Slots.ListFree)
	group.POST("/bookings", throttle, r.Bookings.Create)
	group.GET("/market", r.Market.Overview)
	group.POST("/leads", throttle, r.Leads.Submit)

	group.POST("/admin/login", throttle, r.Admin.Login)
	group.POST("/admin/logout", r.Admin.Logout)

	admin := group.Group("/admin", middleware.AdminSession(r.Sessions))
	admin.GET("/slots", r.Slots.List)
	admin.POST("/slots", r.Slots.Create)
	admin.POST("/slots/generate", r.Slots.Generate)
	admin.DELETE("/slots/:id", r.Slots.Delete)
	admin.DELETE("/slots", r.Slots.DeleteFree)

	admin.GET("/bookings", r.Bookings.List)
	admin.GET("/bookings/export", r.Bookings.Export)
	admin.GET("/bookings/:id", r.Bookings.Get)
	admin.PATCH("/bookings/:id", r.Bookings.Update)
}
