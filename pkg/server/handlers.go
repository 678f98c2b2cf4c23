package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"travel-gateway/pkg/providers/maps"
	"travel-gateway/pkg/providers/weather"
	"travel-gateway/pkg/recommend"
	"travel-gateway/pkg/types"
	"travel-gateway/pkg/validation"
)

const (
	defaultNearbyRadius    = 1500
	defaultRecommendRadius = 2000
	defaultForecastDays    = 7
	recommendCategories    = 3
	placesPerCategory      = 5
)

func location(p map[string]interface{}) maps.LatLng {
	lat, _ := validation.Float(p, "lat")
	lng, _ := validation.Float(p, "lng")
	return maps.LatLng{Lat: lat, Lng: lng}
}

func (s *GatewayServer) placesNearby(ctx context.Context, req *Request) (interface{}, error) {
	places, err := s.maps.Nearby(ctx, maps.NearbyQuery{
		Location: location(req.Payload),
		Radius:   validation.Int(req.Payload, "radius", defaultNearbyRadius),
		Type:     validation.StringValue(req.Payload, "type"),
		Keyword:  validation.StringValue(req.Payload, "keyword"),
	})
	if err != nil {
		return nil, err
	}
	return gin.H{"ok": true, "places": places, "count": len(places)}, nil
}

func (s *GatewayServer) placesAutocomplete(ctx context.Context, req *Request) (interface{}, error) {
	predictions, err := s.maps.Autocomplete(ctx, validation.StringValue(req.Payload, "input"))
	if err != nil {
		return nil, err
	}
	return gin.H{"ok": true, "predictions": predictions}, nil
}

func (s *GatewayServer) placeDetails(ctx context.Context, req *Request) (interface{}, error) {
	place, err := s.maps.Details(ctx, validation.StringValue(req.Payload, "placeId"))
	if err != nil {
		return nil, err
	}
	if place == nil {
		return nil, types.NewUpstreamRejected(http.StatusNotFound, "place_not_found", "Place not found", "")
	}
	return gin.H{"ok": true, "place": place}, nil
}

func (s *GatewayServer) geocode(ctx context.Context, req *Request) (interface{}, error) {
	results, err := s.maps.Geocode(ctx, validation.StringValue(req.Payload, "address"))
	if err != nil {
		return nil, err
	}
	return gin.H{"ok": true, "results": results}, nil
}

func (s *GatewayServer) directions(ctx context.Context, req *Request) (interface{}, error) {
	mode := validation.StringValue(req.Payload, "mode")
	if mode == "" {
		mode = "driving"
	}
	routes, err := s.maps.Directions(ctx,
		validation.StringValue(req.Payload, "origin"),
		validation.StringValue(req.Payload, "destination"),
		mode,
	)
	if err != nil {
		return nil, err
	}
	return gin.H{"ok": true, "mode": mode, "routes": routes}, nil
}

func (s *GatewayServer) forecast(ctx context.Context, req *Request) (interface{}, error) {
	loc := location(req.Payload)
	forecast, err := s.weather.Forecast(ctx, loc.Lat, loc.Lng, validation.Int(req.Payload, "days", defaultForecastDays))
	if err != nil {
		return nil, err
	}
	return gin.H{
		"ok":       true,
		"timezone": forecast.Timezone,
		"current":  forecast.Current,
		"hourly":   forecast.Hourly,
		"daily":    forecast.Days(),
	}, nil
}

// recommendations searches the mood's leading categories directly through
// the maps client, then lets the model pick when one is configured.
func (s *GatewayServer) recommendations(ctx context.Context, req *Request) (interface{}, error) {
	mood := recommend.Mood(validation.StringValue(req.Payload, "mood"))
	categories, ok := recommend.Lookup(mood)
	if !ok {
		return nil, types.NewValidationFailed([]types.FieldError{{Field: "mood", Message: "is not a known mood"}})
	}
	if len(categories) > recommendCategories {
		categories = categories[:recommendCategories]
	}

	loc := location(req.Payload)
	radius := validation.Int(req.Payload, "radius", defaultRecommendRadius)
	seen := make(map[string]struct{})
	places := make([]maps.Place, 0, len(categories)*placesPerCategory)
	for _, category := range categories {
		found, err := s.maps.Nearby(ctx, maps.NearbyQuery{
			Location: loc,
			Radius:   radius,
			Type:     category.Type,
			Keyword:  category.Keyword,
		})
		if err != nil {
			return nil, err
		}
		if len(found) > placesPerCategory {
			found = found[:placesPerCategory]
		}
		for _, place := range found {
			if _, dup := seen[place.ID]; dup {
				continue
			}
			seen[place.ID] = struct{}{}
			places = append(places, place)
		}
	}

	result := gin.H{
		"ok":         true,
		"mood":       mood,
		"categories": categories,
		"places":     places,
	}
	if !s.llm.Configured() || len(places) == 0 {
		return result, nil
	}

	listing, err := fastJSONMarshal(places)
	if err != nil {
		return nil, err
	}
	picks, err := s.llm.CompleteJSON(ctx,
		`You are a travel assistant. Answer with one JSON object {"summary": string, "picks": [{"id": string, "reason": string}]} choosing at most five places from the list.`,
		fmt.Sprintf("The traveller feels %s. Places nearby: %s", mood, listing),
	)
	if err != nil {
		return nil, err
	}
	result["ai"] = picks
	return result, nil
}

// plan builds a day-by-day itinerary. The forecast is fetched with a direct
// call to the weather client; a forecast failure only drops the weather.
func (s *GatewayServer) plan(ctx context.Context, req *Request) (interface{}, error) {
	if !s.llm.Configured() {
		return nil, types.NewConfigurationMissing(http.StatusInternalServerError, "ai_not_configured", "AI provider is not configured")
	}

	loc := location(req.Payload)
	days := validation.Int(req.Payload, "days", 1)

	var daily []weather.Day
	forecast, err := s.weather.Forecast(ctx, loc.Lat, loc.Lng, days)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": req.RequestID,
		}).Warn("Planning without forecast")
	} else {
		daily = forecast.Days()
	}

	prompt := planPrompt(req.Payload, loc, days, daily)
	plan, err := s.llm.CompleteJSON(ctx,
		`You are a travel planner. Answer with one JSON object {"title": string, "days": [{"day": number, "summary": string, "activities": [{"time": string, "name": string, "description": string, "estimatedCost": number}]}], "tips": [string]}.`,
		prompt,
	)
	if err != nil {
		return nil, err
	}

	result := gin.H{"ok": true, "plan": plan}
	if daily != nil {
		result["weather"] = daily
	}
	return result, nil
}

func planPrompt(payload map[string]interface{}, loc maps.LatLng, days int, daily []weather.Day) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a %d day trip starting at %.5f,%.5f.", days, loc.Lat, loc.Lng)
	if destination := validation.StringValue(payload, "destination"); destination != "" {
		fmt.Fprintf(&b, " Destination: %s.", destination)
	}
	fmt.Fprintf(&b, " Interests: %s.", strings.Join(validation.Strings(payload, "interests"), ", "))
	if budget, ok := validation.Float(payload, "budget"); ok {
		currency := validation.StringValue(payload, "currency")
		if currency == "" {
			currency = "USD"
		}
		fmt.Fprintf(&b, " Total budget: %.0f %s.", budget, currency)
	}
	if len(daily) > 0 {
		forecast, err := fastJSONMarshal(daily)
		if err == nil {
			fmt.Fprintf(&b, " Daily forecast: %s.", forecast)
		}
	}
	return b.String()
}
