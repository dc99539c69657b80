package storage

import (
	"context"

	catalogapp "github.com/storefront/backend/internal/application/catalog"
	"github.com/storefront/backend/internal/domain/shared"
)

// ErrStorageDisabled is returned when image uploads are attempted without object storage configured
var ErrStorageDisabled = shared.NewDomainError("STORAGE_DISABLED", "Image uploads are not configured")

// UnavailableImageStorage rejects every operation. It is wired when
// storage.enabled is false so the upload endpoint fails with a clear error.
type UnavailableImageStorage struct{}

// Upload always fails with ErrStorageDisabled
func (UnavailableImageStorage) Upload(context.Context, string, []byte, string) (string, error) {
	return "", ErrStorageDisabled
}

// Delete always fails with ErrStorageDisabled
func (UnavailableImageStorage) Delete(context.Context, string) error {
	return ErrStorageDisabled
}

var _ catalogapp.ImageStorage = UnavailableImageStorage{}
