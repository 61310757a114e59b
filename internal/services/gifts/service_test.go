package gifts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	pgrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/postgres"
	"github.com/FnipsDanil/crashTest-sub001/internal/services/assets"
)

type fakeGiftStore struct {
	gifts   map[string]pgrepo.GiftRecord
	updated map[string]string
}

func (f *fakeGiftStore) ListActive(context.Context) ([]pgrepo.GiftRecord, error) {
	var records []pgrepo.GiftRecord
	for _, record := range f.gifts {
		records = append(records, record)
	}
	return records, nil
}

func (f *fakeGiftStore) FindByID(_ context.Context, giftID string) (pgrepo.GiftRecord, error) {
	record, ok := f.gifts[giftID]
	if !ok {
		return pgrepo.GiftRecord{}, pgrepo.ErrGiftNotFound
	}
	return record, nil
}

func (f *fakeGiftStore) UpdateImageURL(_ context.Context, giftID, imageURL string) error {
	if f.updated == nil {
		f.updated = map[string]string{}
	}
	f.updated[giftID] = imageURL
	return nil
}

type fakeStorage struct {
	keys []string
}

func (f *fakeStorage) EnsureBucket(context.Context) error { return nil }

func (f *fakeStorage) PutImage(_ context.Context, key string, body io.Reader, size int64, _ string) error {
	if _, err := io.CopyN(io.Discard, body, size); err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	return nil
}

func newTestService(store *fakeGiftStore, storage *fakeStorage) *Service {
	return NewService(store, storage, assets.NewResolver("https://cdn.example.com"), nil)
}

func TestListResolvesImageURLs(t *testing.T) {
	image := "gifts/bear.png"
	store := &fakeGiftStore{gifts: map[string]pgrepo.GiftRecord{
		"bear": {ID: "bear", Name: "Bear", Price: 15, ImageURL: &image},
	}}
	svc := newTestService(store, &fakeStorage{})

	gifts, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list gifts: %v", err)
	}
	if len(gifts) != 1 {
		t.Fatalf("expected one gift, got %d", len(gifts))
	}
	if gifts[0].ImageURL != "https://cdn.example.com/gifts/bear.png" {
		t.Fatalf("unexpected image url %q", gifts[0].ImageURL)
	}
}

func TestUploadImage(t *testing.T) {
	store := &fakeGiftStore{gifts: map[string]pgrepo.GiftRecord{
		"bear": {ID: "bear", Name: "Bear", Price: 15},
	}}
	storage := &fakeStorage{}
	svc := newTestService(store, storage)

	body := bytes.NewReader([]byte("png-bytes"))
	url, err := svc.UploadImage(context.Background(), "bear", "image/png", body, int64(body.Len()))
	if err != nil {
		t.Fatalf("upload image: %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.example.com/gifts/bear_") || !strings.HasSuffix(url, ".png") {
		t.Fatalf("unexpected resolved url %q", url)
	}
	if len(storage.keys) != 1 {
		t.Fatalf("expected one stored object, got %d", len(storage.keys))
	}
	if stored := store.updated["bear"]; !strings.HasPrefix(stored, "gifts/") {
		t.Fatalf("expected relative path in database, got %q", stored)
	}
}

func TestUploadImageValidation(t *testing.T) {
	store := &fakeGiftStore{gifts: map[string]pgrepo.GiftRecord{
		"bear": {ID: "bear"},
	}}
	svc := newTestService(store, &fakeStorage{})
	ctx := context.Background()

	if _, err := svc.UploadImage(ctx, "bear", "text/plain", bytes.NewReader([]byte("x")), 1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for content type, got %v", err)
	}
	if _, err := svc.UploadImage(ctx, "bear", "image/png", bytes.NewReader(nil), maxImageSize+1); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for oversized image, got %v", err)
	}
	if _, err := svc.UploadImage(ctx, "ghost", "image/png", bytes.NewReader([]byte("x")), 1); !errors.Is(err, ErrGiftNotFound) {
		t.Fatalf("expected ErrGiftNotFound, got %v", err)
	}
}
