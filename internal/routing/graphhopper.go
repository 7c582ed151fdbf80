package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shenikar/campus_safety_system/internal/config"
	"github.com/shenikar/campus_safety_system/internal/models"
	"github.com/shenikar/campus_safety_system/internal/service"
)

// GraphHopperClient - клиент внешнего провайдера маршрутов GraphHopper
type GraphHopperClient struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewGraphHopperClient(cfg *config.Config) *GraphHopperClient {
	return &GraphHopperClient{
		url:    cfg.RoutingURL,
		apiKey: cfg.RoutingAPIKey,
		httpClient: &http.Client{
			Timeout: cfg.RoutingTimeout,
		},
	}
}

type routeRequest struct {
	Points         [][]float64 `json:"points"`
	Profile        string      `json:"profile"`
	PointsEncoded  bool        `json:"points_encoded"`
	InstructionsOn bool        `json:"instructions"`
}

type routeResponse struct {
	Paths []struct {
		Distance float64 `json:"distance"`
		Time     float64 `json:"time"`
		Points   struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"points"`
	} `json:"paths"`
}

// Route запрашивает пеший маршрут через заданные точки.
// Любой сбой провайдера - сетевой, статусный или пустой ответ -
// превращается в доменную ошибку недоступности провайдера.
func (c *GraphHopperClient) Route(ctx context.Context, points []service.RoutePoint) (*service.RoutePlan, error) {
	// GraphHopper принимает координаты в порядке [lng, lat]
	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Longitude, p.Latitude})
	}

	body, err := json.Marshal(routeRequest{
		Points:         coords,
		Profile:        "foot",
		PointsEncoded:  false,
		InstructionsOn: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal route request: %w", err)
	}

	url := c.url
	if c.apiKey != "" {
		url = fmt.Sprintf("%s?key=%s", c.url, c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create route request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing provider request failed: %w", models.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("routing provider returned status %d: %w", resp.StatusCode, models.ErrUpstreamUnavailable)
	}

	var decoded routeResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode routing provider response: %w", models.ErrUpstreamUnavailable)
	}
	if len(decoded.Paths) == 0 {
		return nil, fmt.Errorf("routing provider returned no paths: %w", models.ErrUpstreamUnavailable)
	}

	path := decoded.Paths[0]
	geometry := make([]service.RoutePoint, 0, len(path.Points.Coordinates))
	for _, coord := range path.Points.Coordinates {
		if len(coord) < 2 {
			continue
		}
		geometry = append(geometry, service.RoutePoint{Latitude: coord[1], Longitude: coord[0]})
	}

	return &service.RoutePlan{
		DistanceMeters:  path.Distance,
		DurationSeconds: path.Time / 1000,
		Geometry:        geometry,
	}, nil
}
