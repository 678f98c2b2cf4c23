package server

import (
	"net/http"

	"travel-gateway/pkg/cache"
	"travel-gateway/pkg/config"
	"travel-gateway/pkg/forwarder"
	"travel-gateway/pkg/providers/weather"
	"travel-gateway/pkg/ratelimit"
	"travel-gateway/pkg/recommend"
	"travel-gateway/pkg/validation"
)

const (
	minBudget = 0
	maxBudget = 1000000
)

func coordinates() []validation.Rule {
	return []validation.Rule{
		validation.NumberField("lat").Require().Between(-90, 90),
		validation.NumberField("lng").Require().Between(-180, 180),
	}
}

func withCoordinates(rules ...validation.Rule) *validation.Pipeline {
	return validation.NewPipeline(append(coordinates(), rules...)...).
		Normalize(validation.RoundCoordinates("lat", "lng")).
		Guard(validation.Coordinates("lat", "lng"))
}

func (s *GatewayServer) routes() []Route {
	return []Route{
		{
			Name:     "places_nearby",
			Method:   http.MethodPost,
			Path:     "/api/places/nearby",
			Tier:     ratelimit.TierSearch,
			CacheTTL: cache.PlacesTTL,
			Pipeline: withCoordinates(
				validation.NumberField("radius").Between(1, 50000),
				validation.StringField("type").Between(1, 50),
				validation.StringField("keyword").Between(1, 100),
			),
			Handler: s.placesNearby,
		},
		{
			Name:     "places_autocomplete",
			Method:   http.MethodGet,
			Path:     "/api/places/autocomplete",
			Tier:     ratelimit.TierSearch,
			CacheTTL: cache.PlacesTTL,
			Pipeline: validation.NewPipeline(validation.StringField("input").Require().Between(1, 200)),
			Source:   SourceQuery,
			Handler:  s.placesAutocomplete,
		},
		{
			Name:     "place_details",
			Method:   http.MethodGet,
			Path:     "/api/places/:placeId",
			Tier:     ratelimit.TierSearch,
			CacheTTL: cache.PlacesTTL,
			Pipeline: validation.NewPipeline(validation.StringField("placeId").Require().Between(1, 300)),
			Source:   SourceQuery,
			Handler:  s.placeDetails,
		},
		{
			Name:     "geocode",
			Method:   http.MethodPost,
			Path:     "/api/geocode",
			Tier:     ratelimit.TierSearch,
			CacheTTL: cache.PlacesTTL,
			Pipeline: validation.NewPipeline(validation.StringField("address").Require().Between(1, 300)),
			Handler:  s.geocode,
		},
		{
			Name:     "directions",
			Method:   http.MethodPost,
			Path:     "/api/directions",
			Tier:     ratelimit.TierSearch,
			CacheTTL: cache.PlacesTTL,
			Pipeline: validation.NewPipeline(
				validation.StringField("origin").Require().Between(1, 300),
				validation.StringField("destination").Require().Between(1, 300),
				validation.StringField("mode").In("driving", "walking", "bicycling", "transit"),
			),
			Handler: s.directions,
		},
		{
			Name:     "weather",
			Method:   http.MethodPost,
			Path:     "/api/weather",
			Tier:     ratelimit.TierGeneral,
			CacheTTL: cache.WeatherTTL,
			Pipeline: withCoordinates(validation.NumberField("days").Between(1, weather.MaxDays)),
			Handler:  s.forecast,
		},
		{
			Name:     "ai_recommendations",
			Method:   http.MethodPost,
			Path:     "/api/ai/recommendations",
			Tier:     ratelimit.TierAI,
			CacheTTL: cache.RecommendationsTTL,
			Pipeline: withCoordinates(
				validation.StringField("mood").Require().In(recommend.Moods()...),
				validation.NumberField("radius").Between(1, 50000),
			),
			Handler: s.recommendations,
		},
		{
			Name:     "ai_plan",
			Method:   http.MethodPost,
			Path:     "/api/ai/plan",
			Tier:     ratelimit.TierAI,
			CacheTTL: cache.RecommendationsTTL,
			Pipeline: withCoordinates(
				validation.NumberField("days").Between(1, 14),
				validation.NumberField("budget"),
				validation.StringField("currency").Between(3, 3),
				validation.ArrayField("interests").AtMost(10),
				validation.StringField("destination").Between(1, 200),
			).Guard(
				validation.Budget("budget", minBudget, maxBudget),
				validation.NonEmpty("interests", validation.CodeInterestsEmpty, "At least one interest is required"),
			),
			Handler: s.plan,
		},
	}
}

// Headers relayed to the backend on every forwarded call
var forwardHeaders = []string{"Content-Type", "Accept", "Accept-Language", "Authorization", "User-Agent"}

func backendSpec(name, method, path string, body forwarder.BodyPolicy, cookies bool) forwarder.Spec {
	return forwarder.Spec{
		Name:    name,
		Target:  config.TargetBackendV2,
		Method:  method,
		Path:    path,
		Headers: forwardHeaders,
		Body:    body,
		Cookies: cookies,
	}
}

func (s *GatewayServer) forwardRoutes() []ForwardRoute {
	return []ForwardRoute{
		{
			Name:   "v2_route",
			Method: http.MethodPost,
			Path:   "/api/v2/route",
			Tier:   ratelimit.TierGeneral,
			Spec:   backendSpec("v2_route", http.MethodPost, "/api/route", forwarder.BodyPassthrough, false),
		},
		{
			Name:   "v2_hazards",
			Method: http.MethodPost,
			Path:   "/api/v2/hazards",
			Tier:   ratelimit.TierGeneral,
			Spec:   backendSpec("v2_hazards", http.MethodPost, "/api/hazards", forwarder.BodyPassthrough, false),
		},
		{
			Name:   "v2_profile_get",
			Method: http.MethodGet,
			Path:   "/api/v2/profile",
			Tier:   ratelimit.TierGeneral,
			Spec:   backendSpec("v2_profile_get", http.MethodGet, "/api/profile", forwarder.BodyNone, true),
		},
		{
			Name:     "v2_profile_put",
			Method:   http.MethodPut,
			Path:     "/api/v2/profile",
			Tier:     ratelimit.TierGeneral,
			Pipeline: validation.NewPipeline(),
			Spec:     backendSpec("v2_profile_put", http.MethodPut, "/api/profile", forwarder.BodyPassthrough, true),
		},
		{
			Name:   "v2_family_signin",
			Method: http.MethodPost,
			Path:   "/api/v2/family/signin",
			Tier:   ratelimit.TierGeneral,
			Spec:   backendSpec("v2_family_signin", http.MethodPost, "/api/family/signin", forwarder.BodyPassthrough, true),
		},
		{
			Name:   "v2_family_signout",
			Method: http.MethodPost,
			Path:   "/api/v2/family/signout",
			Tier:   ratelimit.TierGeneral,
			Spec:   backendSpec("v2_family_signout", http.MethodPost, "/api/family/signout", forwarder.BodyPassthrough, true),
		},
		{
			Name:   "v2_health",
			Method: http.MethodGet,
			Path:   "/api/v2/health",
			Tier:   ratelimit.TierGeneral,
			Spec:   backendSpec("v2_health", http.MethodGet, "/api/health", forwarder.BodyNone, false),
		},
		{
			Name:   "v2_dashboard",
			Method: http.MethodGet,
			Path:   "/api/v2/dashboard",
			Tier:   ratelimit.TierGeneral,
			Spec:   backendSpec("v2_dashboard", http.MethodGet, "/dashboard", forwarder.BodyNone, true),
		},
	}
}
