// Package http provides the HTTP handlers of the reference hashkeep store.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/journalon/internal/common"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	// maxEscapeRatio is the worst-case growth of a blob written as a JSON
	// string: a control byte becomes a six byte \u00XX escape.
	maxEscapeRatio = 6
	// envelopeOverhead leaves room for the JSON wrapper and the private key.
	envelopeOverhead = 4 << 10
)

// maxBodySize bounds the request body. The blob limit itself is enforced by
// the service on the decoded bytes.
func maxBodySize(maxBlob int) int64 {
	return maxEscapeRatio*int64(maxBlob) + envelopeOverhead
}

// BlobService defines the blob operations required by the BlobHandler.
type BlobService interface {
	// Put stores data at publicKey if privateKey hashes to it.
	Put(ctx context.Context, publicKey, privateKey string, data []byte) error
	// Get returns the data stored at publicKey.
	Get(ctx context.Context, publicKey string) ([]byte, error)
	// MaxSize is the largest accepted blob in bytes.
	MaxSize() int
}

// BlobHandler handles blob store and fetch requests.
type BlobHandler struct {
	BlobService BlobService
	Log         *zap.Logger
}

type storeRequest struct {
	PrivateKey string `json:"privateKey"`
	Blob       string `json:"blob"`
}

type storeResponse struct {
	PublicKey string `json:"publicKey"`
}

// Store handles PUT /store?pk=<publicKey>.
// It decodes a JSON body with "privateKey" and "blob" and writes the blob at pk.
func (h *BlobHandler) Store(w http.ResponseWriter, r *http.Request) {
	pk := r.URL.Query().Get("pk")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize(h.BlobService.MaxSize()))
	var req storeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.BlobService.Put(r.Context(), pk, req.PrivateKey, []byte(req.Blob)); err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(storeResponse{PublicKey: pk})
}

// Fetch handles GET /{publicKey} and writes the stored blob as is.
func (h *BlobHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	pk := chi.URLParam(r, "publicKey")

	data, err := h.BlobService.Get(r.Context(), pk)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write(data)
}

func (h *BlobHandler) writeError(w http.ResponseWriter, err error) {
	var ve *common.ValidationError
	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Error(), http.StatusBadRequest)
	case errors.Is(err, common.ErrAccessDenied):
		http.Error(w, "private key does not match pk", http.StatusForbidden)
	case errors.Is(err, common.ErrTooLarge):
		http.Error(w, "blob too large", http.StatusRequestEntityTooLarge)
	case errors.Is(err, common.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		if h.Log != nil {
			h.Log.Error("blob request failed", zap.Error(err))
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
