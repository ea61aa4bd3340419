package repositories

import (
	"context"

	"github.com/satriahrh/agribot/domain/entities"
)

// WeatherProvider returns the current weather at a coordinate pair
type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (entities.WeatherReading, error)
}
