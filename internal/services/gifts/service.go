package gifts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/postgres"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrGiftNotFound = errors.New("gift not found")
)

const maxImageSize = 5 << 20 // 5 MiB

var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

type GiftStore interface {
	ListActive(ctx context.Context) ([]pgrepo.GiftRecord, error)
	FindByID(ctx context.Context, giftID string) (pgrepo.GiftRecord, error)
	UpdateImageURL(ctx context.Context, giftID, imageURL string) error
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	PutImage(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
}

type AssetResolver interface {
	Resolve(path string) string
	Normalize(rawURL string) string
}

type Service struct {
	store   GiftStore
	storage ObjectStorage
	assets  AssetResolver
	logger  *zap.Logger
	now     func() time.Time
}

type Gift struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Emoji       string
	ImageURL    string
	IsUnique    bool
}

func NewService(store GiftStore, storage ObjectStorage, assets AssetResolver, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:   store,
		storage: storage,
		assets:  assets,
		logger:  logger,
		now:     time.Now,
	}
}

// List returns the purchasable gifts with absolute image URLs.
func (s *Service) List(ctx context.Context) ([]Gift, error) {
	if s.store == nil {
		return nil, fmt.Errorf("gift store is nil")
	}

	records, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	gifts := make([]Gift, 0, len(records))
	for _, record := range records {
		gifts = append(gifts, s.toGift(record))
	}

	return gifts, nil
}

func (s *Service) Find(ctx context.Context, giftID string) (Gift, error) {
	if s.store == nil {
		return Gift{}, fmt.Errorf("gift store is nil")
	}

	record, err := s.store.FindByID(ctx, strings.TrimSpace(giftID))
	if err != nil {
		if errors.Is(err, pgrepo.ErrGiftNotFound) {
			return Gift{}, ErrGiftNotFound
		}
		return Gift{}, err
	}

	return s.toGift(record), nil
}

// UploadImage stores a new catalog image for the gift and records its
// relative path, so the CDN base can change without rewriting rows.
func (s *Service) UploadImage(ctx context.Context, giftID, contentType string, body io.Reader, size int64) (string, error) {
	if s.store == nil || s.storage == nil {
		return "", fmt.Errorf("gift dependencies are not configured")
	}
	giftID = strings.TrimSpace(giftID)
	if giftID == "" || body == nil || size <= 0 {
		return "", ErrValidation
	}
	if size > maxImageSize {
		return "", fmt.Errorf("%w: image exceeds %d bytes", ErrValidation, maxImageSize)
	}

	baseType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		baseType = parsed
	}
	ext, ok := allowedImageTypes[baseType]
	if !ok {
		return "", fmt.Errorf("%w: unsupported content type %q", ErrValidation, contentType)
	}

	if _, err := s.store.FindByID(ctx, giftID); err != nil {
		if errors.Is(err, pgrepo.ErrGiftNotFound) {
			return "", ErrGiftNotFound
		}
		return "", err
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	key := path.Join("gifts", fmt.Sprintf("%s_%d%s", giftID, s.now().UTC().Unix(), ext))
	if err := s.storage.PutImage(ctx, key, body, size, baseType); err != nil {
		return "", err
	}

	if err := s.store.UpdateImageURL(ctx, giftID, key); err != nil {
		return "", err
	}

	s.logger.Info("gift image uploaded", zap.String("gift_id", giftID), zap.String("key", key))

	if s.assets != nil {
		return s.assets.Resolve(key), nil
	}
	return key, nil
}

func (s *Service) toGift(record pgrepo.GiftRecord) Gift {
	gift := Gift{
		ID:       record.ID,
		Name:     record.Name,
		Price:    record.Price,
		IsUnique: record.IsUnique,
	}
	if record.Description != nil {
		gift.Description = *record.Description
	}
	if record.Emoji != nil {
		gift.Emoji = *record.Emoji
	}
	if record.ImageURL != nil && *record.ImageURL != "" {
		if s.assets != nil {
			gift.ImageURL = s.assets.Resolve(*record.ImageURL)
		} else {
			gift.ImageURL = *record.ImageURL
		}
	}
	return gift
}
