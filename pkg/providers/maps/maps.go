package maps

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
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"

	CodeNotConfigured = "maps_not_configured"
	CodeMapsError     = "maps_error"

	upstream = "maps"
)

type Config struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Place struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Address      string   `json:"address,omitempty"`
	Location     LatLng   `json:"location"`
	Rating       float64  `json:"rating,omitempty"`
	RatingsTotal int      `json:"ratingsTotal,omitempty"`
	PriceLevel   *int     `json:"priceLevel,omitempty"`
	Types        []string `json:"types,omitempty"`
	OpenNow      *bool    `json:"openNow,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Website      string   `json:"website,omitempty"`
}

type Prediction struct {
	PlaceID     string `json:"placeId"`
	Description string `json:"description"`
}

type GeocodeResult struct {
	PlaceID  string `json:"placeId"`
	Address  string `json:"address"`
	Location LatLng `json:"location"`
}

type Route struct {
	Summary         string `json:"summary"`
	DistanceMeters  int    `json:"distanceMeters"`
	DistanceText    string `json:"distanceText"`
	DurationSeconds int    `json:"durationSeconds"`
	DurationText    string `json:"durationText"`
	Polyline        string `json:"polyline,omitempty"`
}

// NearbyQuery is a radius search around a point.
type NearbyQuery struct {
	Location LatLng
	Radius   int
	Type     string
	Keyword  string
}

type apiPlace struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	FormattedAddress string   `json:"formatted_address"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	PriceLevel       *int     `json:"price_level"`
	Types            []string `json:"types"`
	Geometry         struct {
		Location LatLng `json:"location"`
	} `json:"geometry"`
	OpeningHours *struct {
		OpenNow *bool `json:"open_now"`
	} `json:"opening_hours"`
	FormattedPhoneNumber string `json:"formatted_phone_number"`
	Website              string `json:"website"`
}

func (p apiPlace) toPlace() Place {
	place := Place{
		ID:           p.PlaceID,
		Name:         p.Name,
		Address:      p.FormattedAddress,
		Location:     p.Geometry.Location,
		Rating:       p.Rating,
		RatingsTotal: p.UserRatingsTotal,
		PriceLevel:   p.PriceLevel,
		Types:        p.Types,
		Phone:        p.FormattedPhoneNumber,
		Website:      p.Website,
	}
	if place.Address == "" {
		place.Address = p.Vicinity
	}
	if p.OpeningHours != nil {
		place.OpenNow = p.OpeningHours.OpenNow
	}
	return place
}

// envelope carries the status every maps endpoint reports.
type envelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Client calls a Google-style maps REST API.
type Client struct {
	config Config
	caller *providers.Caller
	logger *logrus.Logger
}

func New(config Config, caller *providers.Caller, logger *logrus.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		config: config,
		caller: caller,
		logger: logger,
	}
}

func (c *Client) Configured() bool {
	return c.config.APIKey != ""
}

func (c *Client) Nearby(ctx context.Context, q NearbyQuery) ([]Place, error) {
	params := url.Values{}
	params.Set("location", formatLatLng(q.Location))
	params.Set("radius", strconv.Itoa(q.Radius))
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}

	var out struct {
		envelope
		Results []apiPlace `json:"results"`
	}
	if err := c.get(ctx, "/place/nearbysearch/json", params, &out, &out.envelope); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(out.Results))
	for _, r := range out.Results {
		places = append(places, r.toPlace())
	}
	return places, nil
}

// Details returns nil when the place does not exist.
func (c *Client) Details(ctx context.Context, placeID string) (*Place, error) {
	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", "place_id,name,formatted_address,geometry,rating,user_ratings_total,price_level,types,opening_hours,formatted_phone_number,website")

	var out struct {
		envelope
		Result *apiPlace `json:"result"`
	}
	if err := c.get(ctx, "/place/details/json", params, &out, &out.envelope); err != nil {
		return nil, err
	}
	if out.Result == nil {
		return nil, nil
	}
	place := out.Result.toPlace()
	return &place, nil
}

func (c *Client) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	params := url.Values{}
	params.Set("input", input)

	var out struct {
		envelope
		Predictions []struct {
			PlaceID     string `json:"place_id"`
			Description string `json:"description"`
		} `json:"predictions"`
	}
	if err := c.get(ctx, "/place/autocomplete/json", params, &out, &out.envelope); err != nil {
		return nil, err
	}

	predictions := make([]Prediction, 0, len(out.Predictions))
	for _, p := range out.Predictions {
		predictions = append(predictions, Prediction{PlaceID: p.PlaceID, Description: p.Description})
	}
	return predictions, nil
}

func (c *Client) Geocode(ctx context.Context, address string) ([]GeocodeResult, error) {
	params := url.Values{}
	params.Set("address", address)

	var out struct {
		envelope
		Results []apiPlace `json:"results"`
	}
	if err := c.get(ctx, "/geocode/json", params, &out, &out.envelope); err != nil {
		return nil, err
	}

	results := make([]GeocodeResult, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, GeocodeResult{
			PlaceID:  r.PlaceID,
			Address:  r.FormattedAddress,
			Location: r.Geometry.Location,
		})
	}
	return results, nil
}

func (c *Client) Directions(ctx context.Context, origin, destination, mode string) ([]Route, error) {
	params := url.Values{}
	params.Set("origin", origin)
	params.Set("destination", destination)
	if mode != "" {
		params.Set("mode", mode)
	}

	type textValue struct {
		Text  string `json:"text"`
		Value int    `json:"value"`
	}
	var out struct {
		envelope
		Routes []struct {
			Summary string `json:"summary"`
			Legs    []struct {
				Distance textValue `json:"distance"`
				Duration textValue `json:"duration"`
			} `json:"legs"`
			OverviewPolyline struct {
				Points string `json:"points"`
			} `json:"overview_polyline"`
		} `json:"routes"`
	}
	if err := c.get(ctx, "/directions/json", params, &out, &out.envelope); err != nil {
		return nil, err
	}

	routes := make([]Route, 0, len(out.Routes))
	for _, r := range out.Routes {
		route := Route{Summary: r.Summary, Polyline: r.OverviewPolyline.Points}
		for _, leg := range r.Legs {
			route.DistanceMeters += leg.Distance.Value
			route.DurationSeconds += leg.Duration.Value
		}
		if len(r.Legs) == 1 {
			route.DistanceText = r.Legs[0].Distance.Text
			route.DurationText = r.Legs[0].Duration.Text
		} else {
			route.DistanceText = fmt.Sprintf("%.1f km", float64(route.DistanceMeters)/1000)
			route.DurationText = fmt.Sprintf("%d mins", route.DurationSeconds/60)
		}
		routes = append(routes, route)
	}
	return routes, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}, env *envelope) error {
	if !c.Configured() {
		return types.NewConfigurationMissing(http.StatusInternalServerError, CodeNotConfigured, "Maps API key is not configured")
	}
	params.Set("key", c.config.APIKey)

	reply, err := c.caller.GetJSON(ctx, upstream, c.config.BaseURL+path+"?"+params.Encode(), out)
	if err != nil {
		c.logger.WithError(err).WithField("path", path).Error("Maps request failed")
		return types.NewUpstreamUnavailable(CodeMapsError, err)
	}
	if !reply.OK() {
		return types.NewUpstreamRejected(http.StatusBadGateway, CodeMapsError, "Maps request failed",
			fmt.Sprintf("maps service returned status %d", reply.StatusCode))
	}

	switch env.Status {
	case "OK", "ZERO_RESULTS":
		return nil
	default:
		c.logger.WithFields(logrus.Fields{
			"path":   path,
			"status": env.Status,
		}).Warn("Maps request rejected")
		detail := env.Status
		if env.ErrorMessage != "" {
			detail = env.Status + ": " + env.ErrorMessage
		}
		return types.NewUpstreamRejected(http.StatusBadRequest, CodeMapsError, "Maps request failed", detail)
	}
}

func formatLatLng(l LatLng) string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lng, 'f', -1, 64)
}
