package geo

import "math"

// earthRadiusMeters - радиус Земли в метрах
const earthRadiusMeters = 6371000.0

// HaversineDistance вычисляет расстояние большого круга между двумя точками в метрах
func HaversineDistance(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(deltaLng/2)*math.Sin(deltaLng/2)
	c := 2 * math.Asin(math.Sqrt(a))

	return earthRadiusMeters * c
}

// BoundingBox - прямоугольная область в координатах
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// BoxAround строит прямоугольник между двумя точками с запасом padding градусов
func BoxAround(lat1, lng1, lat2, lng2, padding float64) BoundingBox {
	return BoundingBox{
		MinLat: math.Min(lat1, lat2) - padding,
		MaxLat: math.Max(lat1, lat2) + padding,
		MinLng: math.Min(lng1, lng2) - padding,
		MaxLng: math.Max(lng1, lng2) + padding,
	}
}

// OffsetPoint смещает точку на distanceMeters в направлении bearing (радианы)
// и возвращает новые координаты
func OffsetPoint(lat, lng, distanceMeters, bearing float64) (float64, float64) {
	dLat := (distanceMeters / earthRadiusMeters) * math.Cos(bearing)
	dLng := (distanceMeters / (earthRadiusMeters * math.Cos(lat*math.Pi/180))) * math.Sin(bearing)

	return lat + dLat*180/math.Pi, lng + dLng*180/math.Pi
}

// Bearing возвращает направление от точки (lat1, lng1) к точке (lat2, lng2) в радианах
func Bearing(lat1, lng1, lat2, lng2 float64) float64 {
	return math.Atan2(lng2-lng1, lat2-lat1)
}
