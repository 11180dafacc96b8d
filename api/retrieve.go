package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pubdex/pubdex/internal/log"
	"github.com/pubdex/pubdex/internal/retrieve"
	"github.com/pubdex/pubdex/internal/store"
)

// Retriever is the retrieval capability the API exposes.
type Retriever interface {
	Retrieve(ctx context.Context, query string, opts ...retrieve.Option) ([]retrieve.RankedResult, error)
}

// RetrieveRequest is the POST /api/retrieve request body.
type RetrieveRequest struct {
	Query             string     `json:"query"`
	K                 int        `json:"k,omitempty"`
	Titles            []string   `json:"titles,omitempty"`
	DownloadedFrom    *time.Time `json:"downloadedFrom,omitempty"`
	DownloadedTo      *time.Time `json:"downloadedTo,omitempty"`
	SimilarityMeasure string     `json:"similarityMeasure,omitempty"`
}

// RetrieveResult is one ranked hit in the response.
type RetrieveResult struct {
	Text        string  `json:"text"`
	SourceTitle string  `json:"sourceTitle,omitempty"`
	SourceURL   string  `json:"sourceUrl,omitempty"`
	Score       float64 `json:"score"`
}

// RetrieveResponse is the POST /api/retrieve response body.
type RetrieveResponse struct {
	Results []RetrieveResult `json:"results"`
}

// RetrieveHandler handles the retrieval endpoint.
type RetrieveHandler struct {
	retriever Retriever
	defaultK  int
	logger    log.Logger
}

// NewRetrieveHandler creates a retrieval handler. defaultK is the shortlist
// size used when a request omits k; pass 0 to fall back to the retriever's
// own default.
func NewRetrieveHandler(retriever Retriever, defaultK int, logger log.Logger) *RetrieveHandler {
	return &RetrieveHandler{retriever: retriever, defaultK: defaultK, logger: logger}
}

// RegisterRoutes registers the retrieval route on the given mux.
func (h *RetrieveHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/retrieve", h.handleRetrieve)
}

func (h *RetrieveHandler) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if req.K == 0 {
		req.K = h.defaultK
	}
	opts, err := requestOptions(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	results, err := h.retriever.Retrieve(r.Context(), req.Query, opts...)
	if err != nil {
		switch {
		case errors.Is(err, retrieve.ErrEmptyQuery), errors.Is(err, store.ErrInvalidK):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			// Retrieval failures surface as errors so callers can tell
			// "no results" apart from "the service failed".
			h.logger.Error("retrieval failed", "error", err)
			writeError(w, http.StatusInternalServerError, "retrieval_failed", "")
		}
		return
	}

	out := RetrieveResponse{Results: make([]RetrieveResult, len(results))}
	for i, res := range results {
		out.Results[i] = RetrieveResult{
			Text:        res.Text,
			SourceTitle: res.SourceTitle,
			SourceURL:   res.SourceURL,
			Score:       res.Score,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func requestOptions(req RetrieveRequest) ([]retrieve.Option, error) {
	var opts []retrieve.Option
	if req.K != 0 {
		opts = append(opts, retrieve.WithK(req.K))
	}
	if len(req.Titles) > 0 {
		opts = append(opts, retrieve.WithTitles(req.Titles...))
	}
	if req.DownloadedFrom != nil || req.DownloadedTo != nil {
		var from, to time.Time
		if req.DownloadedFrom != nil {
			from = *req.DownloadedFrom
		}
		if req.DownloadedTo != nil {
			to = *req.DownloadedTo
		}
		opts = append(opts, retrieve.WithDownloadedRange(from, to))
	}
	if req.SimilarityMeasure != "" {
		measure, err := store.ParseMeasure(req.SimilarityMeasure)
		if err != nil {
			return nil, err
		}
		opts = append(opts, retrieve.WithMeasure(measure))
	}
	return opts, nil
}
