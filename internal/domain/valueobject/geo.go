package valueobject

import (
	"fmt"

	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
)

// Bounds задаёт прямоугольную область, в которой принимаются координаты обращений.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// IndiaBounds: грубый прямоугольник вокруг Индии, принятый по умолчанию.
var IndiaBounds = Bounds{MinLat: 6, MaxLat: 37, MinLng: 68, MaxLng: 98}

func (b Bounds) Validate() error {
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return fmt.Errorf("bounds: min greater than max (%+v)", b)
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLng < -180 || b.MaxLng > 180 {
		return fmt.Errorf("bounds: out of WGS84 range (%+v)", b)
	}
	return nil
}

func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Coordinates хранит пару широта/долгота.
type Coordinates struct {
	Lat float64
	Lng float64
}

// NewCoordinates проверяет, что координаты либо заданы парой, либо отсутствуют целиком.
func NewCoordinates(lat, lng *float64, bounds Bounds) (*Coordinates, error) {
	if lat == nil && lng == nil {
		return nil, nil
	}
	if lat == nil || lng == nil {
		return nil, apperror.Validation("координаты должны передаваться парой lat/lng")
	}
	if !bounds.Contains(*lat, *lng) {
		return nil, apperror.Validation("координаты вне допустимой области")
	}
	return &Coordinates{Lat: *lat, Lng: *lng}, nil
}
