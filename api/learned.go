package api

import (
	"encoding/json"
	"net/http"

	"github.com/9seconds/whereabouts/wherelib"
)

type learnedResponse struct {
	Result wherelib.LearnedMatch `json:"result"`
}

type learnedBlocksResponse struct {
	Results []wherelib.LearnedBlock `json:"results"`
}

type learnResponse struct {
	Accepted bool `json:"accepted"`
}

func (h handler) handleLearned(w http.ResponseWriter, req *http.Request) {
	value := req.URL.Query().Get("ip")
	if value == "" {
		h.handleLearnedBlocks(w, req)

		return
	}

	ip, err := parseIP(value)
	if err != nil {
		h.sendError(w, err, "Incorrect IP address", http.StatusBadRequest)

		return
	}

	match, ok := h.learner.Check(req.Context(), ip)
	if !ok {
		h.sendError(w, nil, "No learned range for this IP address", http.StatusNotFound)

		return
	}

	h.encodeJSON(w, http.StatusOK, learnedResponse{Result: match})
}

func (h handler) handleLearnedBlocks(w http.ResponseWriter, req *http.Request) {
	blocks, err := h.learner.ActiveBlocks(req.Context())
	if err != nil {
		h.sendError(w, err, "Cannot list learned ranges", http.StatusServiceUnavailable)

		return
	}

	if blocks == nil {
		blocks = []wherelib.LearnedBlock{}
	}

	h.encodeJSON(w, http.StatusOK, learnedBlocksResponse{Results: blocks})
}

func (h handler) handleLearn(w http.ResponseWriter, req *http.Request) {
	body, ok := h.readBody(w, req)
	if !ok {
		return
	}

	if !h.validateBody(w, req, learnRequestSchema, body) {
		return
	}

	detection := wherelib.Detection{}
	if err := json.Unmarshal(body, &detection); err != nil {
		h.sendError(w, err, "Cannot parse request JSON", http.StatusBadRequest)

		return
	}

	h.encodeJSON(w, http.StatusOK, learnResponse{
		Accepted: h.learner.Learn(req.Context(), detection),
	})
}
