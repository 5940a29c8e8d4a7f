package gremlink

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Mime types with a built-in codec. Callers can plug any other format with
// WithReader and WithWriter.
const (
	MimeGraphSON3 = "application/vnd.gremlin-v3.0+json"
	MimeGraphSON2 = "application/vnd.gremlin-v2.0+json"
)

const typedValueType = "@type"
const typedValueValue = "@value"

func codecForMime(mime string) (Reader, Writer, error) {
	switch mime {
	case MimeGraphSON3, MimeGraphSON2:
		return graphSONReader{}, graphSONWriter{}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownMimeType, mime)
	}
}

// graphSONWriter wraps scalar values in the typed {"@type","@value"} form
// and recurses into maps and slices.
type graphSONWriter struct{}

func (w graphSONWriter) Adapt(value interface{}) interface{} {
	switch v := value.(type) {
	case nil, bool, string, json.RawMessage:
		return v
	case int:
		return typed("g:Int64", int64(v))
	case int32:
		return typed("g:Int32", v)
	case int64:
		return typed("g:Int64", v)
	case float32:
		return typed("g:Double", float64(v))
	case float64:
		return typed("g:Double", v)
	case uuid.UUID:
		return typed("g:UUID", v.String())
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, item := range v {
			out[key] = w.Adapt(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = w.Adapt(item)
		}
		return out
	default:
		return v
	}
}

func typed(typeName string, value interface{}) map[string]interface{} {
	return map[string]interface{}{
		typedValueType:  typeName,
		typedValueValue: value,
	}
}

// graphSONReader parses a response body. It accepts the correlation id both
// as a plain string and in typed form, and strips typed wrapping from the
// result data and status attributes.
type graphSONReader struct{}

func (graphSONReader) Read(payload []byte) (*Envelope, error) {
	var raw struct {
		RequestID interface{} `json:"requestId"`
		Status    struct {
			Code       int                    `json:"code"`
			Message    string                 `json:"message"`
			Attributes map[string]interface{} `json:"attributes"`
		} `json:"status"`
		Result struct {
			Data interface{} `json:"data"`
		} `json:"result"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("gremlink: malformed response body: %w", err)
	}

	env := &Envelope{
		RequestID: parseRequestID(raw.RequestID),
		Status: Status{
			Code:       raw.Status.Code,
			Message:    raw.Status.Message,
			Attributes: unwrapMap(raw.Status.Attributes),
		},
	}

	switch data := unwrap(raw.Result.Data).(type) {
	case nil:
	case []interface{}:
		env.Data = data
	default:
		env.Data = []interface{}{data}
	}
	return env, nil
}

func parseRequestID(value interface{}) uuid.UUID {
	switch v := value.(type) {
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil
		}
		return id
	case map[string]interface{}:
		inner, ok := v[typedValueValue].(string)
		if !ok {
			return uuid.Nil
		}
		id, err := uuid.Parse(inner)
		if err != nil {
			return uuid.Nil
		}
		return id
	default:
		return uuid.Nil
	}
}

func unwrap(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		if inner, isTyped := v[typedValueValue]; isTyped && len(v) == 2 {
			if _, hasType := v[typedValueType]; hasType {
				return unwrap(inner)
			}
		}
		return unwrapMap(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = unwrap(item)
		}
		return out
	default:
		return v
	}
}

func unwrapMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for key, item := range m {
		out[key] = unwrap(item)
	}
	return out
}
