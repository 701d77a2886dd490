package handlers

import (
	"net/http"

	"carpool-backend/internal/apperror"
	"carpool-backend/internal/models"
	"carpool-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// RouteCreate создает маршрут с упорядоченными точками посадки и высадки
func RouteCreate(svc *services.RouteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RouteCreate
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		// Водитель создает маршрут только для себя
		actor := actorFrom(c)
		if !actor.IsAdmin() || req.DriverID == 0 {
			req.DriverID = actor.UserID
		}

		route, err := svc.CreateRoute(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, route)
	}
}

func RouteGetByID(svc *services.RouteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		route, err := svc.GetRoute(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, route)
	}
}

func RouteListByDriver(svc *services.RouteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		driverID, ok := paramID(c, "id")
		if !ok {
			return
		}
		routes, err := svc.ListDriverRoutes(c.Request.Context(), driverID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, routes)
	}
}

// RouteSetPrices полностью заменяет матрицу цен маршрута
func RouteSetPrices(svc *services.RouteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var req models.RoutePricesSet
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		route, err := svc.GetRoute(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		if !actorFrom(c).CanAccess(route.DriverID) {
			respondError(c, apperror.Forbidden("route %d belongs to another driver", id))
			return
		}

		prices, err := svc.SetRoutePrices(c.Request.Context(), id, req.Prices)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"route_id": id, "prices": prices})
	}
}

func RouteGetPriceCombinations(svc *services.RouteService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		combos, err := svc.GetPriceCombinations(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, combos)
	}
}
