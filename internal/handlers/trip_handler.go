package handlers

import (
	"net/http"

	"carpool-backend/internal/models"
	"carpool-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// TripCreate планирует рейс по маршруту водителя
func TripCreate(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.TripCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		trip, err := svc.ScheduleTrip(c.Request.Context(), actorFrom(c), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, trip)
	}
}

func TripGetByID(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		trip, err := svc.GetTrip(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, trip)
	}
}

// TripGetSeats возвращает свободные и занятые места рейса
func TripGetSeats(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		seats, err := svc.GetSeatAvailability(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, seats)
	}
}

// TripGetRoutePoints возвращает точки посадки/высадки для пары городов и цену за место
func TripGetRoutePoints(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		points, err := svc.GetTripRoutePoints(c.Request.Context(), id, c.Query("boardingCity"), c.Query("dropCity"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, points)
	}
}

func TripListByDriver(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID, ok := paramID(c, "id")
		if !ok {
			return
		}
		trips, err := svc.ListDriverTrips(c.Request.Context(), driverID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, trips)
	}
}

// VehicleCreate регистрирует автомобиль текущего водителя
func VehicleCreate(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.VehicleCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		actor := actorFrom(c)
		vehicle, err := svc.RegisterVehicle(c.Request.Context(), actor, actor.UserID, req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, vehicle)
	}
}

func VehicleListByDriver(svc *services.TripService) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID, ok := paramID(c, "id")
		if !ok {
			return
		}
		vehicles, err := svc.ListDriverVehicles(c.Request.Context(), driverID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, vehicles)
	}
}
