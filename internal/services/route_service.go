package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"carpool-backend/internal/apperror"
	"carpool-backend/internal/models"
	"carpool-backend/internal/repository"
)

// RouteService создает маршруты и управляет матрицей цен
type RouteService struct {
	store repository.Store
	cache Cache
}

func NewRouteService(store repository.Store, cache Cache) *RouteService {
	return &RouteService{store: store, cache: cache}
}

// Таблица кэшируется под ключом с версией цен маршрута. Замена цен увеличивает версию,
// поэтому таблица, собранная по старым ценам, уже не будет прочитана.
func priceVersionKey(routeID uint) string {
	return fmt.Sprintf("route:%d:prices-version", routeID)
}

func priceCombinationsKey(routeID uint, version int64) string {
	return fmt.Sprintf("route:%d:price-combinations:v%d", routeID, version)
}

// SequenceRoutePoints раскладывает города и их остановки в единую последовательность точек.
// Города сортируются по SequenceOrder, остановки внутри города по расстоянию от начала,
// номер точки сквозной и начинается с 1.
func SequenceRoutePoints(cities []models.CityRouteInput) ([]models.RoutePoint, error) {
	if len(cities) == 0 {
		return nil, apperror.Validation("cities: route must contain at least one city")
	}

	seen := make(map[int]string, len(cities))
	for _, city := range cities {
		if strings.TrimSpace(city.City) == "" {
			return nil, apperror.Validation("cities: city name is required")
		}
		if len(city.Points) == 0 {
			return nil, apperror.Validation("cities[%s]: city must contain at least one stop", city.City)
		}
		if other, ok := seen[city.SequenceOrder]; ok {
			return nil, apperror.Validation("cities[%s]: sequence order %d is already used by %s", city.City, city.SequenceOrder, other)
		}
		seen[city.SequenceOrder] = city.City
	}

	ordered := make([]models.CityRouteInput, len(cities))
	copy(ordered, cities)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SequenceOrder < ordered[j].SequenceOrder
	})

	var points []models.RoutePoint
	sequence := 1
	for _, city := range ordered {
		stops := make([]models.StopPointInput, len(city.Points))
		copy(stops, city.Points)
		sort.SliceStable(stops, func(i, j int) bool {
			return stops[i].DistanceFromStart < stops[j].DistanceFromStart
		})

		for _, stop := range stops {
			points = append(points, models.RoutePoint{
				City:              city.City,
				SubLocation:       stop.SubLocation,
				PointName:         fmt.Sprintf("%s - %s", city.City, stop.SubLocation),
				Address:           stop.Address,
				Latitude:          stop.Latitude,
				Longitude:         stop.Longitude,
				SequenceOrder:     sequence,
				DistanceFromStart: stop.DistanceFromStart,
				TimeFromStart:     stop.TimeFromStart,
				IsBoardingPoint:   city.IsBoardingPoint,
				IsDropPoint:       city.IsDropPoint,
			})
			sequence++
		}
	}

	// Смещения должны расти и через границу городов
	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		if cur.DistanceFromStart < prev.DistanceFromStart {
			return nil, apperror.Validation("point %q: distance from start %d is less than %d at %q",
				cur.PointName, cur.DistanceFromStart, prev.DistanceFromStart, prev.PointName)
		}
		if cur.TimeFromStart < prev.TimeFromStart {
			return nil, apperror.Validation("point %q: time from start %d is less than %d at %q",
				cur.PointName, cur.TimeFromStart, prev.TimeFromStart, prev.PointName)
		}
	}

	return points, nil
}

// BuildPriceMatrix строит записи цен для каждой пары точек посадки/высадки между городами.
// Точка посадки после точки высадки означает ошибку конфигурации маршрута.
func BuildPriceMatrix(routeID uint, points []models.RoutePoint, prices []models.CityPriceInput) ([]models.RoutePrice, error) {
	type pair struct{ boarding, drop uint }
	seen := make(map[pair]bool)

	var entries []models.RoutePrice
	for _, p := range prices {
		if p.Price <= 0 {
			return nil, apperror.Validation("prices[%s-%s]: price must be positive", p.BoardingCity, p.DropCity)
		}

		var boarding, drop []models.RoutePoint
		for _, point := range points {
			if point.City == p.BoardingCity && point.IsBoardingPoint {
				boarding = append(boarding, point)
			}
			if point.City == p.DropCity && point.IsDropPoint {
				drop = append(drop, point)
			}
		}
		if len(boarding) == 0 {
			return nil, apperror.NotFound(apperror.CodeRoutePointNotFound, "no boarding points in city %s", p.BoardingCity)
		}
		if len(drop) == 0 {
			return nil, apperror.NotFound(apperror.CodeRoutePointNotFound, "no drop points in city %s", p.DropCity)
		}

		for _, b := range boarding {
			for _, d := range drop {
				if b.SequenceOrder >= d.SequenceOrder {
					return nil, apperror.ValidationCode(apperror.CodeInvalidRoute,
						"boarding point %q (sequence %d) must come before drop point %q (sequence %d)",
						b.PointName, b.SequenceOrder, d.PointName, d.SequenceOrder)
				}
				key := pair{b.ID, d.ID}
				if seen[key] {
					return nil, apperror.Validation("prices[%s-%s]: price for %q -> %q is set twice",
						p.BoardingCity, p.DropCity, b.PointName, d.PointName)
				}
				seen[key] = true
				entries = append(entries, models.RoutePrice{
					RouteID:         routeID,
					BoardingPointID: b.ID,
					DropPointID:     d.ID,
					Price:           p.Price,
				})
			}
		}
	}
	return entries, nil
}

// BuildPriceCombinations строит таблицу цен между городами. Для расстояния и времени берется
// первая по порядку точка города. Пары без цены остаются в таблице с Price == nil.
func BuildPriceCombinations(points []models.RoutePoint, prices []models.RoutePrice) []models.RoutePriceCombination {
	byID := make(map[uint]models.RoutePoint, len(points))
	firstBoarding := make(map[string]models.RoutePoint)
	firstDrop := make(map[string]models.RoutePoint)
	var boardingCities, dropCities []string

	ordered := make([]models.RoutePoint, len(points))
	copy(ordered, points)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SequenceOrder < ordered[j].SequenceOrder })

	for _, p := range ordered {
		byID[p.ID] = p
		if p.IsBoardingPoint {
			if _, ok := firstBoarding[p.City]; !ok {
				firstBoarding[p.City] = p
				boardingCities = append(boardingCities, p.City)
			}
		}
		if p.IsDropPoint {
			if _, ok := firstDrop[p.City]; !ok {
				firstDrop[p.City] = p
				dropCities = append(dropCities, p.City)
			}
		}
	}

	cityPrice := make(map[[2]string]float64)
	for _, rp := range prices {
		b, okB := byID[rp.BoardingPointID]
		d, okD := byID[rp.DropPointID]
		if okB && okD {
			cityPrice[[2]string{b.City, d.City}] = rp.Price
		}
	}

	var combos []models.RoutePriceCombination
	for _, bc := range boardingCities {
		for _, dc := range dropCities {
			b, d := firstBoarding[bc], firstDrop[dc]
			if b.SequenceOrder >= d.SequenceOrder {
				continue
			}
			combo := models.RoutePriceCombination{
				BoardingCity:      bc,
				DropCity:          dc,
				EstimatedDistance: d.DistanceFromStart - b.DistanceFromStart,
				EstimatedDuration: d.TimeFromStart - b.TimeFromStart,
			}
			if price, ok := cityPrice[[2]string{bc, dc}]; ok {
				price := price
				combo.Price = &price
			}
			combos = append(combos, combo)
		}
	}
	return combos
}

// CreateRoute сохраняет маршрут вместе с упорядоченными точками
func (s *RouteService) CreateRoute(ctx context.Context, req models.RouteCreate) (*models.Route, error) {
	if strings.TrimSpace(req.RouteName) == "" {
		return nil, apperror.Validation("routeName: is required")
	}
	points, err := SequenceRoutePoints(req.Cities)
	if err != nil {
		return nil, err
	}

	route := &models.Route{
		DriverID:          req.DriverID,
		RouteName:         req.RouteName,
		TotalDistance:     req.TotalDistance,
		EstimatedDuration: req.EstimatedDuration,
		IsActive:          true,
		Points:            points,
	}
	if err := s.store.CreateRoute(ctx, route); err != nil {
		return nil, apperror.Internal(err, "create route")
	}

	log.Printf("Маршрут %d создан водителем %d, точек: %d", route.ID, route.DriverID, len(route.Points))
	return route, nil
}

// GetRoute возвращает маршрут с точками в порядке следования
func (s *RouteService) GetRoute(ctx context.Context, id uint) (*models.Route, error) {
	route, err := s.store.GetRoute(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, apperror.CodeRouteNotFound, "route %d not found", id)
	}
	return route, nil
}

func (s *RouteService) ListDriverRoutes(ctx context.Context, driverID uint) ([]models.Route, error) {
	routes, err := s.store.ListRoutesByDriver(ctx, driverID)
	if err != nil {
		return nil, apperror.Internal(err, "list routes of driver %d", driverID)
	}
	return routes, nil
}

// SetRoutePrices полностью заменяет матрицу цен маршрута
func (s *RouteService) SetRoutePrices(ctx context.Context, routeID uint, prices []models.CityPriceInput) ([]models.RoutePrice, error) {
	if len(prices) == 0 {
		return nil, apperror.Validation("prices: at least one price is required")
	}

	var entries []models.RoutePrice
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.GetRoute(ctx, routeID); err != nil {
			return notFoundOr(err, apperror.CodeRouteNotFound, "route %d not found", routeID)
		}
		points, err := tx.ListRoutePoints(ctx, routeID)
		if err != nil {
			return apperror.Internal(err, "load points of route %d", routeID)
		}
		entries, err = BuildPriceMatrix(routeID, points, prices)
		if err != nil {
			return err
		}
		if err := tx.ReplaceRoutePrices(ctx, routeID, entries); err != nil {
			return apperror.Internal(err, "replace prices of route %d", routeID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	version, err := s.cache.Incr(ctx, priceVersionKey(routeID))
	if err != nil {
		log.Printf("Не удалось сбросить кэш цен маршрута %d: %v", routeID, err)
	} else if err := s.cache.Delete(ctx, priceCombinationsKey(routeID, version-1)); err != nil {
		log.Printf("Не удалось удалить старую таблицу цен маршрута %d: %v", routeID, err)
	}
	log.Printf("Цены маршрута %d заменены, записей: %d", routeID, len(entries))
	return entries, nil
}

// GetPriceCombinations возвращает таблицу цен между городами маршрута
func (s *RouteService) GetPriceCombinations(ctx context.Context, routeID uint) ([]models.RoutePriceCombination, error) {
	// Версия читается до загрузки цен: если цены заменят во время чтения,
	// таблица ляжет под устаревший ключ
	var version int64
	cacheable := true
	if _, err := s.cache.Get(ctx, priceVersionKey(routeID), &version); err != nil {
		log.Printf("Ошибка чтения версии цен маршрута %d: %v", routeID, err)
		cacheable = false
	}
	key := priceCombinationsKey(routeID, version)

	if cacheable {
		var cached []models.RoutePriceCombination
		if found, err := s.cache.Get(ctx, key, &cached); err != nil {
			log.Printf("Ошибка чтения кэша цен маршрута %d: %v", routeID, err)
		} else if found {
			return cached, nil
		}
	}

	if _, err := s.store.GetRoute(ctx, routeID); err != nil {
		return nil, notFoundOr(err, apperror.CodeRouteNotFound, "route %d not found", routeID)
	}
	points, err := s.store.ListRoutePoints(ctx, routeID)
	if err != nil {
		return nil, apperror.Internal(err, "load points of route %d", routeID)
	}
	prices, err := s.store.ListRoutePrices(ctx, routeID)
	if err != nil {
		return nil, apperror.Internal(err, "load prices of route %d", routeID)
	}

	combos := BuildPriceCombinations(points, prices)
	if cacheable {
		if err := s.cache.Set(ctx, key, combos); err != nil {
			log.Printf("Ошибка записи кэша цен маршрута %d: %v", routeID, err)
		}
	}
	return combos, nil
}

// notFoundOr превращает repository.ErrNotFound в ошибку с кодом, остальное во внутреннюю ошибку
func notFoundOr(err error, code, format string, args ...interface{}) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(code, format, args...)
	}
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Internal(err, format, args...)
}
