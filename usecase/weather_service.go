package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

// WeatherService serves current weather and never fails: a missing provider
// or any lookup error yields the default reading.
type WeatherService struct {
	provider repositories.WeatherProvider
	logger   *zap.Logger
}

func NewWeatherService(provider repositories.WeatherProvider, logger *zap.Logger) *WeatherService {
	return &WeatherService{provider: provider, logger: logger}
}

func (s *WeatherService) GetWeather(ctx context.Context, lat, lon float64) entities.WeatherReading {
	if s.provider == nil {
		return entities.DefaultWeather()
	}

	reading, err := s.provider.Current(ctx, lat, lon)
	if err != nil {
		s.logger.Warn("Weather lookup failed, using default reading",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err))
		return entities.DefaultWeather()
	}
	return reading
}
