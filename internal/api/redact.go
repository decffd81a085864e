package api

import (
	"encoding/json"
)

const redacted = "[REDACTED]"

var sensitiveFields = map[string]struct{}{
	"password":      {},
	"otp":           {},
	"jwt_token":     {},
	"refresh_token": {},
	"auth_token":    {},
}

// Redact replaces credential values in a JSON document. Non-JSON input is
// replaced by a fixed marker so raw bytes never reach a diagnostic sink.
func Redact(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return []byte(`"[non-json body]"`)
	}
	out, err := json.Marshal(redactValue(doc))
	if err != nil {
		return nil
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if _, ok := sensitiveFields[k]; ok {
				t[k] = redacted
				continue
			}
			t[k] = redactValue(val)
		}
		return t
	case []any:
		for i := range t {
			t[i] = redactValue(t[i])
		}
		return t
	default:
		return v
	}
}
