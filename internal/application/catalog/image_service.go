package catalog

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ImageStorage stores uploaded image bytes and returns their public URL
type ImageStorage interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Upload limits
const (
	DefaultMaxImageFiles  = 5
	DefaultMaxImageSize   = 5 << 20
	DefaultImageKeyPrefix = "products"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Upload errors
var (
	ErrNoImages      = shared.NewDomainError("NO_IMAGES", "No images uploaded")
	ErrTooManyImages = shared.NewDomainError("TOO_MANY_IMAGES", "Too many images uploaded")
	ErrImageTooLarge = shared.NewDomainError("IMAGE_TOO_LARGE", "Image exceeds the maximum upload size")
	ErrImageType     = shared.NewDomainError("INVALID_IMAGE_TYPE", "Only image files are allowed")
)

// ImageFile is one uploaded file
type ImageFile struct {
	Filename string
	Data     []byte
}

// ImageUploadConfig bounds image uploads
type ImageUploadConfig struct {
	MaxFiles  int
	MaxSize   int64
	KeyPrefix string
}

// ImageService validates and stores product images
type ImageService struct {
	storage ImageStorage
	config  ImageUploadConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewImageService creates a new ImageService. Zero config values take the defaults.
func NewImageService(storage ImageStorage, config ImageUploadConfig, logger *zap.Logger) *ImageService {
	if config.MaxFiles <= 0 {
		config.MaxFiles = DefaultMaxImageFiles
	}
	if config.MaxSize <= 0 {
		config.MaxSize = DefaultMaxImageSize
	}
	config.KeyPrefix = strings.Trim(config.KeyPrefix, "/")
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultImageKeyPrefix
	}
	return &ImageService{
		storage: storage,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// MaxFiles returns the number of files accepted per upload
func (s *ImageService) MaxFiles() int {
	return s.config.MaxFiles
}

// MaxSize returns the per-file size limit in bytes
func (s *ImageService) MaxSize() int64 {
	return s.config.MaxSize
}

// Upload validates every file before storing any of them. When a later
// file fails to store, the ones already stored are removed.
func (s *ImageService) Upload(ctx context.Context, files []ImageFile) ([]ImageResponse, error) {
	if len(files) == 0 {
		return nil, ErrNoImages
	}
	if len(files) > s.config.MaxFiles {
		return nil, shared.NewDomainError(ErrTooManyImages.Code,
			fmt.Sprintf("At most %d images can be uploaded at once", s.config.MaxFiles))
	}

	types := make([]string, len(files))
	for i, f := range files {
		if int64(len(f.Data)) > s.config.MaxSize {
			return nil, ErrImageTooLarge
		}
		if len(f.Data) == 0 {
			return nil, ErrImageType
		}
		contentType := http.DetectContentType(f.Data)
		if _, ok := allowedImageTypes[contentType]; !ok {
			return nil, ErrImageType
		}
		types[i] = contentType
	}

	stored := make([]ImageResponse, 0, len(files))
	for i, f := range files {
		key := s.key(types[i])
		url, err := s.storage.Upload(ctx, key, f.Data, types[i])
		if err != nil {
			s.rollback(ctx, stored)
			return nil, fmt.Errorf("upload %s: %w", f.Filename, err)
		}
		stored = append(stored, ImageResponse{PublicID: key, URL: url})
	}

	s.logger.Info("images uploaded", zap.Int("count", len(stored)))
	return stored, nil
}

func (s *ImageService) key(contentType string) string {
	now := s.now().UTC()
	name := uuid.New().String() + allowedImageTypes[contentType]
	return path.Join(s.config.KeyPrefix, now.Format("2006/01"), name)
}

func (s *ImageService) rollback(ctx context.Context, stored []ImageResponse) {
	for _, img := range stored {
		if err := s.storage.Delete(ctx, img.PublicID); err != nil {
			s.logger.Warn("failed to remove image after partial upload",
				zap.String("key", img.PublicID),
				zap.Error(err),
			)
		}
	}
}
