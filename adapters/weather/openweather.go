package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

const (
	defaultBaseURL  = "https://api.openweathermap.org/data/2.5"
	defaultCacheTTL = 300 * time.Second
	defaultTimeout  = 10 * time.Second
)

var ErrNoAPIKey = errors.New("weather API key is not configured")

type Config struct {
	APIKey   string
	BaseURL  string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// OpenWeather reads current conditions from the OpenWeatherMap API. Readings
// are cached per coordinate pair and concurrent misses share one request.
type OpenWeather struct {
	client *resty.Client
	apiKey string
	cache  *cache.Cache
	group  singleflight.Group
	logger *zap.Logger
}

var _ repositories.WeatherProvider = (*OpenWeather)(nil)

type currentWeatherResponse struct {
	Cod  json.Number `json:"cod"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Rain struct {
		OneHour float64 `json:"1h"`
	} `json:"rain"`
}

func NewOpenWeather(config Config, logger *zap.Logger) *OpenWeather {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	ttl := config.CacheTTL
	if ttl == 0 {
		ttl = defaultCacheTTL
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	if config.APIKey == "" {
		logger.Warn("Weather API key not set, default readings will be served")
	}

	return &OpenWeather{
		client: resty.New().SetBaseURL(strings.TrimRight(baseURL, "/")).SetTimeout(timeout),
		apiKey: config.APIKey,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

func (o *OpenWeather) Current(ctx context.Context, lat, lon float64) (entities.WeatherReading, error) {
	if o.apiKey == "" {
		return entities.WeatherReading{}, ErrNoAPIKey
	}

	key := cacheKey(lat, lon)
	if cached, ok := o.cache.Get(key); ok {
		return cached.(entities.WeatherReading), nil
	}

	// The shared fetch outlives any single caller; the client timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	result := o.group.DoChan(key, func() (interface{}, error) {
		reading, err := o.fetch(fetchCtx, lat, lon)
		if err != nil {
			return nil, err
		}
		o.cache.SetDefault(key, reading)
		return reading, nil
	})

	select {
	case <-ctx.Done():
		return entities.WeatherReading{}, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return entities.WeatherReading{}, res.Err
		}
		return res.Val.(entities.WeatherReading), nil
	}
}

func (o *OpenWeather) fetch(ctx context.Context, lat, lon float64) (entities.WeatherReading, error) {
	var body currentWeatherResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   strconv.FormatFloat(lat, 'f', -1, 64),
			"lon":   strconv.FormatFloat(lon, 'f', -1, 64),
			"units": "metric",
			"appid": o.apiKey,
		}).
		SetResult(&body).
		Get("/weather")
	if err != nil {
		return entities.WeatherReading{}, fmt.Errorf("weather request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK || body.Cod.String() != "200" {
		return entities.WeatherReading{}, fmt.Errorf("weather API returned %d", resp.StatusCode())
	}

	if len(body.Weather) == 0 {
		return entities.WeatherReading{}, fmt.Errorf("weather API returned no conditions")
	}

	reading := entities.WeatherReading{
		Temperature: math.RoundToEven(body.Main.Temp),
		Humidity:    body.Main.Humidity,
		Rainfall:    body.Rain.OneHour,
		Description: cases.Title(language.English).String(body.Weather[0].Description),
		Icon:        body.Weather[0].Icon,
	}

	o.logger.Debug("Fetched current weather",
		zap.Float64("lat", lat),
		zap.Float64("lon", lon),
		zap.Float64("temp", reading.Temperature))
	return reading, nil
}

func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}
