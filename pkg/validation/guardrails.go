package validation

import (
	"fmt"
	"math"

	"travel-gateway/pkg/types"
)

const (
	CodeCoordsInvalid  = "coords_invalid"
	CodeBudgetInvalid  = "budget_invalid"
	CodeInterestsEmpty = "interests_empty"
)

// CoordinatePrecision is the number of decimals coordinates are rounded to,
// about one metre at the equator.
const CoordinatePrecision = 5

// Coordinates rejects the null island (0,0), which clients send when a
// location fix is missing.
func Coordinates(latField, lngField string) Guardrail {
	return func(payload map[string]interface{}) *types.GatewayError {
		lat, okLat := toFloat(payload[latField])
		lng, okLng := toFloat(payload[lngField])
		if okLat && okLng && lat == 0 && lng == 0 {
			return types.NewGuardrail(CodeCoordsInvalid, "Coordinates (0, 0) are not a valid location")
		}
		return nil
	}
}

// Budget rejects a budget outside [min, max]. A missing budget passes.
func Budget(field string, min, max float64) Guardrail {
	return func(payload map[string]interface{}) *types.GatewayError {
		raw, ok := payload[field]
		if !ok || raw == nil {
			return nil
		}
		v, ok := toFloat(raw)
		if !ok || math.IsNaN(v) || v < min || v > max {
			return types.NewGuardrail(CodeBudgetInvalid,
				fmt.Sprintf("Budget must be between %s and %s", formatFloat(min), formatFloat(max)))
		}
		return nil
	}
}

// NonEmpty rejects a missing or empty list.
func NonEmpty(field, code, message string) Guardrail {
	return func(payload map[string]interface{}) *types.GatewayError {
		switch v := payload[field].(type) {
		case []interface{}:
			if len(v) > 0 {
				return nil
			}
		case []string:
			if len(v) > 0 {
				return nil
			}
		}
		return types.NewGuardrail(code, message)
	}
}

// RoundCoordinates rounds the named numeric fields so nearby positions share
// a cache signature. Values that are not numbers are left for the rules.
func RoundCoordinates(fields ...string) Normalizer {
	scale := math.Pow(10, CoordinatePrecision)
	return func(payload map[string]interface{}) {
		for _, field := range fields {
			raw, ok := payload[field]
			if !ok || raw == nil {
				continue
			}
			v, ok := toFloat(raw)
			if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			payload[field] = math.Round(v*scale) / scale
		}
	}
}
