package service

import (
	"context"
	"fmt"
	"time"

	"github.com/atinyakov/journalon/internal/common"
	"github.com/atinyakov/journalon/internal/keys"
	"github.com/atinyakov/journalon/internal/models"
)

// DefaultMaxBlobSize is the largest blob accepted when no limit is configured.
const DefaultMaxBlobSize = 5 << 20

// BlobRepository defines the persistence operations needed by the BlobService.
type BlobRepository interface {
	// UpsertBlob inserts the blob or replaces the one stored at the same public key.
	UpsertBlob(ctx context.Context, blob models.Blob) error
	// GetBlob fetches the blob stored at publicKey.
	// It returns common.ErrNotFound when nothing is stored there.
	GetBlob(ctx context.Context, publicKey string) (*models.Blob, error)
}

// BlobService implements the hashkeep store semantics: anyone may read a blob
// by its public key, and only the holder of the matching private key may write it.
type BlobService struct {
	// repo is the underlying persistence repository.
	repo BlobRepository
	// maxSize caps the blob size in bytes.
	maxSize int
	now     func() time.Time
}

// NewBlobService constructs a BlobService with the provided BlobRepository.
// A non-positive maxSize selects DefaultMaxBlobSize.
func NewBlobService(repo BlobRepository, maxSize int) *BlobService {
	if maxSize <= 0 {
		maxSize = DefaultMaxBlobSize
	}
	return &BlobService{repo: repo, maxSize: maxSize, now: time.Now}
}

// MaxSize returns the largest accepted blob in bytes.
func (s *BlobService) MaxSize() int {
	return s.maxSize
}

// Put stores data at publicKey after checking that privateKey hashes to it.
//
// Returns a *common.ValidationError for malformed input, common.ErrAccessDenied
// when the keys do not match and common.ErrTooLarge when data exceeds the limit.
func (s *BlobService) Put(ctx context.Context, publicKey, privateKey string, data []byte) error {
	if !keys.IsPublicKey(publicKey) {
		return &common.ValidationError{Field: "pk", Message: "must be a lowercase hex sha1 digest"}
	}
	if privateKey == "" {
		return &common.ValidationError{Field: "privateKey", Message: "must not be empty"}
	}
	if keys.DerivePublicKey(privateKey) != publicKey {
		return fmt.Errorf("store %s: %w", publicKey, common.ErrAccessDenied)
	}
	if len(data) > s.maxSize {
		return fmt.Errorf("store %s: %d bytes: %w", publicKey, len(data), common.ErrTooLarge)
	}

	return s.repo.UpsertBlob(ctx, models.Blob{
		PublicKey: publicKey,
		Data:      data,
		UpdatedAt: s.now().Unix(),
	})
}

// Get returns the blob stored at publicKey.
func (s *BlobService) Get(ctx context.Context, publicKey string) ([]byte, error) {
	if !keys.IsPublicKey(publicKey) {
		return nil, fmt.Errorf("blob %q: %w", publicKey, common.ErrNotFound)
	}
	blob, err := s.repo.GetBlob(ctx, publicKey)
	if err != nil {
		return nil, err
	}
	return blob.Data, nil
}
