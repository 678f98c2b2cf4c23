package server

import (
	"bytes"
	"fmt"
	"io"
	"reflect"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"travel-gateway/pkg/types"
)

const maxBodyBytes = 1 << 20

var jsonHandler = sonic.Config{
	EscapeHTML: true,
}.Froze()

func init() {
	sonic.Pretouch(reflect.TypeOf(map[string]interface{}{}))
}

func fastJSONMarshal(v interface{}) ([]byte, error) {
	return jsonHandler.Marshal(v)
}

func fastJSONUnmarshal(data []byte, v interface{}) error {
	return jsonHandler.Unmarshal(data, v)
}

func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, types.NewValidationFailed([]types.FieldError{{Field: "body", Message: "is too large"}})
	}
	return body, nil
}

// decodeObject parses a JSON object body. An empty body is an empty object.
func decodeObject(body []byte) (map[string]interface{}, error) {
	payload := map[string]interface{}{}
	if len(bytes.TrimSpace(body)) == 0 {
		return payload, nil
	}
	var raw interface{}
	if err := fastJSONUnmarshal(body, &raw); err != nil {
		return nil, types.NewValidationFailed([]types.FieldError{{Field: "body", Message: "must be valid JSON"}})
	}
	object, ok := raw.(map[string]interface{})
	if !ok {
		return nil, types.NewValidationFailed([]types.FieldError{{Field: "body", Message: "must be a JSON object"}})
	}
	return object, nil
}
