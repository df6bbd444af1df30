package api

import (
	"net/http"

	"github.com/9seconds/whereabouts/wherelib"
)

type providersResponse struct {
	Circuit   wherelib.CircuitState  `json:"circuit"`
	Providers []*wherelib.UsageStats `json:"providers"`
}

func (h handler) handleProviders(w http.ResponseWriter, _ *http.Request) {
	resp := providersResponse{
		Providers: []*wherelib.UsageStats{},
	}

	if h.stats != nil {
		resp.Circuit = h.stats.CircuitState()
		resp.Providers = h.stats.Stats()
	}

	h.encodeJSON(w, http.StatusOK, resp)
}
