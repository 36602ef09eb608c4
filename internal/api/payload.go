package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// payload is a decoded agent request body. Agents send either JSON or
// form-encoded bodies, and numeric fields arrive as numbers or strings
// depending on the agent build, so accessors convert leniently.
type payload map[string]any

// decodePayload reads r's body as a JSON object or as form values.
// An empty body decodes to an empty payload.
func decodePayload(r *http.Request) (payload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // empty media type falls through to JSON

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxRequestBodySize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("parsing form: %w", err)
		}
		p := make(payload, len(r.PostForm))
		for k, v := range r.PostForm {
			if len(v) > 0 {
				p[k] = v[0]
			}
		}
		return p, nil
	}

	if r.Body == nil {
		return payload{}, nil
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()

	p := payload{}
	if err := dec.Decode(&p); err != nil {
		if errors.Is(err, io.EOF) {
			return payload{}, nil
		}
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	return p, nil
}

// String returns key as a trimmed string. Numbers are formatted; other
// types yield "".
func (p payload) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Text returns a string value exactly as sent. Message bodies use it;
// String is for identifiers and other fields where padding is noise.
func (p payload) Text(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return p.String(key)
}

// Int64 returns key as an integer, accepting numbers and numeric strings.
// Fractions are truncated. Anything unparsable yields 0.
func (p payload) Int64(key string) int64 {
	var s string
	switch v := p[key].(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	case float64:
		return int64(v)
	default:
		return 0
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

// Int is Int64 narrowed to int.
func (p payload) Int(key string) int {
	return int(p.Int64(key))
}
