package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/atinyakov/journalon/internal/common"
	"github.com/atinyakov/journalon/internal/models"
)

// MemoryBlobRepository keeps blobs in a map. Contents are lost on restart.
type MemoryBlobRepository struct {
	mu    sync.RWMutex
	blobs map[string]models.Blob
}

// NewMemoryBlobRepository returns an empty MemoryBlobRepository.
func NewMemoryBlobRepository() *MemoryBlobRepository {
	return &MemoryBlobRepository{blobs: make(map[string]models.Blob)}
}

// UpsertBlob stores a copy of blob.
func (r *MemoryBlobRepository) UpsertBlob(_ context.Context, blob models.Blob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	blob.Data = slices.Clone(blob.Data)
	r.blobs[blob.PublicKey] = blob
	return nil
}

// GetBlob returns a copy of the blob stored at publicKey, or common.ErrNotFound.
func (r *MemoryBlobRepository) GetBlob(_ context.Context, publicKey string) (*models.Blob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	blob, ok := r.blobs[publicKey]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", publicKey, common.ErrNotFound)
	}
	blob.Data = slices.Clone(blob.Data)
	return &blob, nil
}
