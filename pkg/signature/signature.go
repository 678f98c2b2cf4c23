// Package signature derives deterministic response-cache keys.
package signature

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/bytedance/sonic"
)

const (
	Prefix    = "sig:"
	separator = '\x1f'
)

var canonicalJSON = sonic.Config{
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

// Build returns the cache key for a request. JSON bodies are canonicalised
// so that field order does not matter; other bodies are hashed as-is.
// Headers never take part in the key.
func Build(method, path string, query url.Values, body []byte) string {
	h := sha256.New()
	h.Write([]byte(strings.ToUpper(method)))
	h.Write([]byte{separator})
	h.Write([]byte(path))
	h.Write([]byte{separator})
	h.Write([]byte(query.Encode()))
	h.Write([]byte{separator})
	h.Write(Canonical(body))
	return Prefix + hex.EncodeToString(h.Sum(nil))
}

// Canonical re-encodes a JSON document with sorted keys. Bodies that are not
// JSON are returned unchanged.
func Canonical(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	var doc interface{}
	if err := canonicalJSON.Unmarshal(trimmed, &doc); err != nil {
		return body
	}
	out, err := canonicalJSON.Marshal(doc)
	if err != nil {
		return body
	}
	return out
}
