package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/shenikar/campus_safety_system/internal/geo"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/sirupsen/logrus"
)

// bboxPadding - запас прямоугольника поиска инцидентов в градусах
const bboxPadding = 0.01

// RoutePoint - точка маршрута
type RoutePoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// RoutePlan - маршрут, построенный внешним провайдером
type RoutePlan struct {
	DistanceMeters  float64      `json:"distance"`
	DurationSeconds float64      `json:"duration"`
	Geometry        []RoutePoint `json:"geometry"`
}

// RouteProvider - внешний провайдер маршрутов. Вызов только читает состояние,
// его отказ не затрагивает данные инцидентов.
type RouteProvider interface {
	Route(ctx context.Context, points []RoutePoint) (*RoutePlan, error)
}

// SafeRouteRequest - запрос безопасного маршрута между двумя точками
type SafeRouteRequest struct {
	StartLat    float64
	StartLng    float64
	EndLat      float64
	EndLng      float64
	AvoidRadius float64
}

// Waypoint - обходная точка, уводящая маршрут от инцидента
type Waypoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Kind      string  `json:"type"`
}

// SafeRouteResult - маршрут и обходные точки, которыми он был смещен
type SafeRouteResult struct {
	Plan          *RoutePlan `json:"route"`
	Waypoints     []Waypoint `json:"waypoints"`
	IncidentCount int        `json:"incident_count"`
}

// RouteService определяет контракт советника безопасных маршрутов
type RouteService interface {
	SafeRoute(ctx context.Context, req SafeRouteRequest) (*SafeRouteResult, error)
}

type routeService struct {
	incidents IncidentRepository
	provider  RouteProvider
	logger    *logrus.Logger
}

func NewRouteService(incidents IncidentRepository, provider RouteProvider, logger *logrus.Logger) RouteService {
	return &routeService{
		incidents: incidents,
		provider:  provider,
		logger:    logger,
	}
}

// SafeRoute строит маршрут между двумя точками, смещая его от видимых
// инцидентов. Инциденты читаются из прямоугольника между точками, каждый
// близкий к прямой линии дает перпендикулярную обходную точку.
func (s *routeService) SafeRoute(ctx context.Context, req SafeRouteRequest) (*SafeRouteResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "route",
		"method":  "SafeRoute",
	})
	log.Info("Building safe route")

	if req.AvoidRadius <= 0 {
		req.AvoidRadius = 100
	}

	box := geo.BoxAround(req.StartLat, req.StartLng, req.EndLat, req.EndLng, bboxPadding)
	incidents, err := s.incidents.FindInBoundingBox(ctx, box)
	if err != nil {
		log.WithError(err).Error("Failed to load incidents for route")
		return nil, fmt.Errorf("service: could not load incidents for route: %w", err)
	}

	waypoints := buildAvoidWaypoints(req, incidents)

	points := make([]RoutePoint, 0, len(waypoints)+2)
	points = append(points, RoutePoint{Latitude: req.StartLat, Longitude: req.StartLng})
	for _, wp := range waypoints {
		points = append(points, RoutePoint{Latitude: wp.Latitude, Longitude: wp.Longitude})
	}
	points = append(points, RoutePoint{Latitude: req.EndLat, Longitude: req.EndLng})

	plan, err := s.provider.Route(ctx, points)
	if err != nil {
		log.WithError(err).Error("Routing provider call failed")
		return nil, fmt.Errorf("service: could not build route: %w", err)
	}

	log.WithFields(logrus.Fields{
		"incidents": len(incidents),
		"waypoints": len(waypoints),
	}).Info("Safe route built")

	return &SafeRouteResult{
		Plan:          plan,
		Waypoints:     waypoints,
		IncidentCount: len(incidents),
	}, nil
}

// buildAvoidWaypoints строит обходные точки для инцидентов, близких к прямой
// между началом и концом маршрута. Точка смещается перпендикулярно базовому
// направлению на полтора радиуса избегания.
func buildAvoidWaypoints(req SafeRouteRequest, incidents []*models.Incident) []Waypoint {
	if len(incidents) == 0 {
		return nil
	}

	baseBearing := geo.Bearing(req.StartLat, req.StartLng, req.EndLat, req.EndLng)
	perpBearing := baseBearing + math.Pi/2

	waypoints := make([]Waypoint, 0)
	for _, incident := range incidents {
		distance := geo.HaversineDistance(req.StartLat, req.StartLng, incident.Latitude, incident.Longitude)
		if distance >= req.AvoidRadius*2 {
			continue
		}

		lat, lng := geo.OffsetPoint(incident.Latitude, incident.Longitude, req.AvoidRadius*1.5, perpBearing)
		waypoints = append(waypoints, Waypoint{
			Latitude:  lat,
			Longitude: lng,
			Kind:      "avoid",
		})
	}

	// Обходные точки следуют в порядке удаления от старта
	sort.Slice(waypoints, func(i, j int) bool {
		di := geo.HaversineDistance(req.StartLat, req.StartLng, waypoints[i].Latitude, waypoints[i].Longitude)
		dj := geo.HaversineDistance(req.StartLat, req.StartLng, waypoints[j].Latitude, waypoints[j].Longitude)
		return di < dj
	})
	return waypoints
}
