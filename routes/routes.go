package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/khandakeraliariyan/GHOR-BARI-sub001/handlers"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/middleware"
	"github.com/khandakeraliariyan/GHOR-BARI-sub001/negotiation"
)

// RegisterRoutes wires every endpoint. Mutating property/application routes
// sit behind JWT auth; moderation additionally requires the admin role.
func RegisterRoutes(e *echo.Echo, db *mongo.Database, engine *negotiation.Engine) {
	uc := handlers.NewUserController(db)
	pc := handlers.NewPropertyController(db)
	ac := handlers.NewApplicationController(db, engine)

	auth := middleware.JWTMiddleware()
	admin := middleware.AdminOnly(db)

	e.GET("/health", handlers.HealthCheck)

	// Identity
	e.POST("/register", uc.Register)
	e.POST("/login", uc.Login)
	e.GET("/me", uc.Me, auth)
	e.PATCH("/me", uc.UpdateMe, auth)

	// Properties
	e.GET("/properties", pc.ListProperties)
	e.GET("/property/:id", pc.GetProperty)
	e.POST("/property", pc.CreateProperty, auth)
	e.GET("/my-properties", pc.MyProperties, auth)
	e.PUT("/property/:id", pc.UpdateProperty, auth)
	e.DELETE("/property/:id", pc.DeleteProperty, auth)
	e.PATCH("/property/:id/visibility", pc.ToggleVisibility, auth)
	e.PATCH("/admin/property/:id/approval", pc.SetApproval, auth, admin)

	// Applications / negotiation
	e.POST("/application", ac.CreateApplication, auth)
	e.GET("/my-applications", ac.MyApplications, auth)
	e.GET("/property/:propertyId/applications", ac.PropertyApplications, auth)
	e.PATCH("/application/:id", ac.UpdateApplicationStatus, auth)
	e.PATCH("/application/:id/withdraw", ac.WithdrawApplication, auth)
	e.PATCH("/application/:id/revise", ac.ReviseApplication, auth)
	e.PATCH("/application/:id/accept-counter", ac.AcceptCounterOffer, auth)
	e.PATCH("/property/:propertyId/deal", ac.UpdateDealStatus, auth)
}
