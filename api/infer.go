package api

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/9seconds/whereabouts/wherelib"
	"golang.org/x/text/language"
)

type inferRequest struct {
	wherelib.Signals

	IP string `json:"ip"`
}

type inferResponse struct {
	Result wherelib.LocationPrediction `json:"result"`
}

func (h handler) handleInfer(w http.ResponseWriter, req *http.Request) {
	body, ok := h.readBody(w, req)
	if !ok {
		return
	}

	if !h.validateBody(w, req, inferRequestSchema, body) {
		return
	}

	parsed := inferRequest{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		h.sendError(w, err, "Cannot parse request JSON", http.StatusBadRequest)

		return
	}

	ip, err := parseIP(parsed.IP)
	if err != nil {
		h.sendError(w, err, "Incorrect IP address", http.StatusBadRequest)

		return
	}

	h.encodeJSON(w, http.StatusOK, inferResponse{
		Result: h.engine.Infer(req.Context(), ip, parsed.Signals),
	})
}

// handleInferSelf uses an address of the caller and signals which can
// be taken from request headers: edge geolocation and Accept-Language.
func (h handler) handleInferSelf(w http.ResponseWriter, req *http.Request) {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}

	ip, err := parseIP(host)
	if err != nil {
		h.sendError(w, err, "Cannot detect your IP address", http.StatusBadRequest)

		return
	}

	signals := wherelib.Signals{
		Edge:      wherelib.EdgeGeoFromHeaders(req.Header),
		Languages: acceptLanguages(req.Header.Get("Accept-Language")),
	}

	h.encodeJSON(w, http.StatusOK, inferResponse{
		Result: h.engine.Infer(req.Context(), ip, signals),
	})
}

// acceptLanguages returns tags ordered by quality.
func acceptLanguages(header string) []string {
	if header == "" {
		return nil
	}

	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}

	rv := make([]string, 0, len(tags))

	for _, v := range tags {
		rv = append(rv, v.String())
	}

	return rv
}
