package api

import (
	"net/http"

	"github.com/9seconds/whereabouts/wherelib"
)

type vpnResponse struct {
	IP     string                 `json:"ip"`
	Result wherelib.VPNAssessment `json:"result"`
}

func (h handler) handleVPN(w http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()

	ip, err := parseIP(query.Get("ip"))
	if err != nil {
		h.sendError(w, err, "Incorrect IP address", http.StatusBadRequest)

		return
	}

	h.encodeJSON(w, http.StatusOK, vpnResponse{
		IP:     ip.String(),
		Result: h.vpn.Detect(ip, query.Get("asn"), query.Get("hostname")),
	})
}
