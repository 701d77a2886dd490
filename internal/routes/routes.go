package routes

import (
	"carpool-backend/internal/handlers"
	"carpool-backend/internal/middleware"
	"carpool-backend/internal/models"
	"carpool-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// Deps сервисы, которые используют обработчики API
type Deps struct {
	JWTSecret string
	Revoked   middleware.RevocationChecker
	Revoker   handlers.TokenRevoker
	Users     handlers.UserStore
	Routes    *services.RouteService
	Trips     *services.TripService
	Bookings  *services.BookingService
	Payments  *services.PaymentService
}

func SetupRoutes(api *gin.RouterGroup, deps Deps) {
	// Публичный маршрут: ответ платежного шлюза проверяется подписью
	api.POST("/payments/callback", handlers.PaymentCallback(deps.Payments))

	// Защищенные маршруты (требуют аутентификации)
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(deps.JWTSecret, deps.Revoked))
	{
		protected.POST("/auth/logout", handlers.AuthLogout(deps.Revoker))

		// Роуты для пользователей
		protected.GET("/profile", handlers.UserGetProfile(deps.Users))
		protected.PUT("/fcm-token", handlers.UpdateFCMToken(deps.Users))

		driverOnly := middleware.RequireRole(models.RoleDriver)

		// Роуты для маршрутов и цен
		protected.POST("/routes", driverOnly, handlers.RouteCreate(deps.Routes))
		protected.GET("/routes/:id", handlers.RouteGetByID(deps.Routes))
		protected.PUT("/routes/:id/prices", driverOnly, handlers.RouteSetPrices(deps.Routes))
		protected.GET("/routes/:id/price-combinations", handlers.RouteGetPriceCombinations(deps.Routes))
		protected.GET("/drivers/:id/routes", handlers.RouteListByDriver(deps.Routes))

		// Роуты для автомобилей и рейсов
		protected.POST("/vehicles", driverOnly, handlers.VehicleCreate(deps.Trips))
		protected.GET("/drivers/:id/vehicles", handlers.VehicleListByDriver(deps.Trips))
		protected.POST("/trips", driverOnly, handlers.TripCreate(deps.Trips))
		protected.GET("/trips/:id", handlers.TripGetByID(deps.Trips))
		protected.GET("/trips/:id/seats", handlers.TripGetSeats(deps.Trips))
		protected.GET("/trips/:id/route-points", handlers.TripGetRoutePoints(deps.Trips))
		protected.GET("/trips/:id/bookings", handlers.BookingGetByTrip(deps.Bookings))
		protected.GET("/drivers/:id/trips", handlers.TripListByDriver(deps.Trips))

		// Роуты для бронирований
		protected.POST("/bookings", handlers.BookingCreate(deps.Bookings))
		protected.GET("/bookings", handlers.BookingGetByUser(deps.Bookings))
		protected.GET("/bookings/stats", handlers.BookingGetStats(deps.Bookings))
		protected.GET("/bookings/reference/:ref", handlers.BookingGetByReference(deps.Bookings))
		protected.GET("/bookings/:id", handlers.BookingGetByID(deps.Bookings))
		protected.PUT("/bookings/:id/cancel", handlers.BookingCancel(deps.Bookings))

		// Роуты для платежей
		protected.POST("/payments/orders", handlers.PaymentCreateOrder(deps.Payments))
		protected.GET("/payments/booking/:bookingId", handlers.PaymentGetByBooking(deps.Payments))
		protected.GET("/payments/transaction/:txnId", handlers.PaymentGetByTransaction(deps.Payments))
		protected.GET("/payments/:id", handlers.PaymentGetByID(deps.Payments))
	}
}
