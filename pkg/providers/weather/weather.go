package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"travel-gateway/pkg/providers"
	"travel-gateway/pkg/types"
)

const (
	DefaultBaseURL = "https://api.open-meteo.com"
	CodeWeather    = "weather_error"
	MaxDays        = 16

	upstream = "weather"
)

type Config struct {
	BaseURL string `mapstructure:"base_url"`
}

type Current struct {
	Time        string  `json:"time"`
	Temperature float64 `json:"temperature_2m"`
	Humidity    float64 `json:"relative_humidity_2m"`
	WeatherCode int     `json:"weather_code"`
	WindSpeed   float64 `json:"wind_speed_10m"`
}

type Hourly struct {
	Time                     []string  `json:"time"`
	Temperature              []float64 `json:"temperature_2m"`
	PrecipitationProbability []float64 `json:"precipitation_probability"`
	WeatherCode              []int     `json:"weather_code"`
}

type Daily struct {
	Time                     []string  `json:"time"`
	WeatherCode              []int     `json:"weather_code"`
	TemperatureMax           []float64 `json:"temperature_2m_max"`
	TemperatureMin           []float64 `json:"temperature_2m_min"`
	PrecipitationProbability []float64 `json:"precipitation_probability_max"`
	Sunrise                  []string  `json:"sunrise"`
	Sunset                   []string  `json:"sunset"`
}

type Forecast struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone"`
	Current   Current `json:"current"`
	Hourly    Hourly  `json:"hourly"`
	Daily     Daily   `json:"daily"`
}

// Day is one row of the daily block.
type Day struct {
	Date                     string  `json:"date"`
	WeatherCode              int     `json:"weatherCode"`
	TemperatureMax           float64 `json:"temperatureMax"`
	TemperatureMin           float64 `json:"temperatureMin"`
	PrecipitationProbability float64 `json:"precipitationProbability"`
}

// Days pivots the column-oriented daily block into rows.
func (f *Forecast) Days() []Day {
	days := make([]Day, 0, len(f.Daily.Time))
	for i, date := range f.Daily.Time {
		day := Day{Date: date}
		if i < len(f.Daily.WeatherCode) {
			day.WeatherCode = f.Daily.WeatherCode[i]
		}
		if i < len(f.Daily.TemperatureMax) {
			day.TemperatureMax = f.Daily.TemperatureMax[i]
		}
		if i < len(f.Daily.TemperatureMin) {
			day.TemperatureMin = f.Daily.TemperatureMin[i]
		}
		if i < len(f.Daily.PrecipitationProbability) {
			day.PrecipitationProbability = f.Daily.PrecipitationProbability[i]
		}
		days = append(days, day)
	}
	return days
}

// Client calls an Open-Meteo style forecast API. It needs no key.
type Client struct {
	baseURL string
	caller  *providers.Caller
	logger  *logrus.Logger
}

func New(config Config, caller *providers.Caller, logger *logrus.Logger) *Client {
	base := config.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		caller:  caller,
		logger:  logger,
	}
}

// Forecast fetches current, hourly and daily blocks for days days, clamped
// to [1, MaxDays].
func (c *Client) Forecast(ctx context.Context, lat, lng float64, days int) (*Forecast, error) {
	if days < 1 {
		days = 1
	}
	if days > MaxDays {
		days = MaxDays
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("current", "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m")
	params.Set("hourly", "temperature_2m,precipitation_probability,weather_code")
	params.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max,sunrise,sunset")
	params.Set("forecast_days", strconv.Itoa(days))
	params.Set("timezone", "auto")

	var forecast Forecast
	reply, err := c.caller.GetJSON(ctx, upstream, c.baseURL+"/v1/forecast?"+params.Encode(), &forecast)
	if err != nil {
		c.logger.WithError(err).Error("Weather request failed")
		return nil, types.NewUpstreamUnavailable(CodeWeather, err)
	}
	if !reply.OK() {
		c.logger.WithField("status", reply.StatusCode).Warn("Weather service rejected request")
		return nil, types.NewUpstreamRejected(http.StatusBadGateway, CodeWeather, "Weather service error",
			fmt.Sprintf("weather service returned status %d", reply.StatusCode))
	}
	return &forecast, nil
}
