package api

import (
	"encoding/json"
	"net/http"

	"github.com/qri-io/jsonschema"
)

func mustSchema(data string) *jsonschema.Schema {
	rv := &jsonschema.Schema{}
	if err := json.Unmarshal([]byte(data), rv); err != nil {
		panic(err)
	}

	return rv
}

var inferRequestSchema = mustSchema(`{
    "type": "object",
    "required": ["ip"],
    "properties": {
        "ip": {
            "anyOf": [
                {"type": "string", "format": "ipv4"},
                {"type": "string", "format": "ipv6"}
            ]
        },
        "edge": {
            "type": "object",
            "properties": {
                "city": {"type": "string"},
                "region": {"type": "string"},
                "region_code": {"type": "string"},
                "country": {"type": "string"},
                "latitude": {"type": "number", "minimum": -90, "maximum": 90},
                "longitude": {"type": "number", "minimum": -180, "maximum": 180}
            }
        },
        "languages": {
            "type": "array",
            "maxItems": 32,
            "items": {"type": "string"}
        },
        "fonts": {
            "type": "array",
            "maxItems": 512,
            "items": {"type": "string"}
        },
        "probe": {
            "type": "object",
            "properties": {
                "colo": {"type": "string"},
                "rtt_ms": {"type": "number", "minimum": 0},
                "observed_ip": {"type": "string"}
            }
        },
        "asn": {"type": "string"},
        "hostname": {"type": "string"}
    }
}`)

var learnRequestSchema = mustSchema(`{
    "type": "object",
    "required": ["ip", "city", "confidence"],
    "properties": {
        "ip": {"type": "string", "format": "ipv4"},
        "city": {"type": "string", "minLength": 1},
        "state": {"type": "string"},
        "confidence": {"type": "integer", "minimum": 0, "maximum": 100},
        "isp": {"type": "string"},
        "asn": {"type": "string"},
        "verified": {"type": "boolean"}
    }
}`)

// validateBody sends an error response if body does not conform to a
// schema.
func (h handler) validateBody(w http.ResponseWriter, req *http.Request,
	schema *jsonschema.Schema, body []byte) bool {
	errs, err := schema.ValidateBytes(req.Context(), body)
	if err != nil {
		h.sendError(w, err, "Cannot validate body", http.StatusBadRequest)

		return false
	}

	if len(errs) > 0 {
		h.sendError(w, errs[0], "Invalid request body", http.StatusBadRequest)

		return false
	}

	return true
}
