package senders

import (
	"context"
	"errors"
	"testing"
	"time"

	pgrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/postgres"
)

func TestRecordContactCountsMessages(t *testing.T) {
	store := newFakeStore()
	service := NewService(store, nil)

	first, err := service.RecordContact(context.Background(), 100, "sender", "First", "Last")
	if err != nil {
		t.Fatalf("record first contact: %v", err)
	}
	if first.MessageCount != 1 {
		t.Fatalf("expected message count 1, got %d", first.MessageCount)
	}
	if first.Username != "sender" {
		t.Fatalf("unexpected username: %q", first.Username)
	}

	second, err := service.RecordContact(context.Background(), 100, "sender", "First", "Last")
	if err != nil {
		t.Fatalf("record second contact: %v", err)
	}
	if second.MessageCount != 2 {
		t.Fatalf("expected message count 2, got %d", second.MessageCount)
	}
}

func TestRecordContactRejectsZeroChatID(t *testing.T) {
	service := NewService(newFakeStore(), nil)

	if _, err := service.RecordContact(context.Background(), 0, "", "", ""); err == nil {
		t.Fatalf("expected error for zero chat id")
	}
}

func TestCanMessageUnknownChat(t *testing.T) {
	service := NewService(newFakeStore(), nil)

	allowed, err := service.CanMessage(context.Background(), 999)
	if err != nil {
		t.Fatalf("can message: %v", err)
	}
	if allowed {
		t.Fatalf("expected unknown chat to be unreachable")
	}
}

func TestCanMessageBlockedChat(t *testing.T) {
	store := newFakeStore()
	service := NewService(store, nil)

	if _, err := service.RecordContact(context.Background(), 200, "spammer", "", ""); err != nil {
		t.Fatalf("record contact: %v", err)
	}

	allowed, err := service.CanMessage(context.Background(), 200)
	if err != nil {
		t.Fatalf("can message: %v", err)
	}
	if !allowed {
		t.Fatalf("expected fresh sender to be reachable")
	}

	if err := service.SetBlocked(context.Background(), 200, true, "abuse"); err != nil {
		t.Fatalf("set blocked: %v", err)
	}

	allowed, err = service.CanMessage(context.Background(), 200)
	if err != nil {
		t.Fatalf("can message after block: %v", err)
	}
	if allowed {
		t.Fatalf("expected blocked sender to be unreachable")
	}
}

func TestSetBlockedUnknownChat(t *testing.T) {
	service := NewService(newFakeStore(), nil)

	err := service.SetBlocked(context.Background(), 404, true, "")
	if !errors.Is(err, ErrSenderNotFound) {
		t.Fatalf("expected ErrSenderNotFound, got %v", err)
	}
}

func TestListSkipsBlockedByDefault(t *testing.T) {
	store := newFakeStore()
	service := NewService(store, nil)

	for _, chatID := range []int64{1, 2, 3} {
		if _, err := service.RecordContact(context.Background(), chatID, "", "", ""); err != nil {
			t.Fatalf("record contact %d: %v", chatID, err)
		}
	}
	if err := service.SetBlocked(context.Background(), 2, true, ""); err != nil {
		t.Fatalf("set blocked: %v", err)
	}

	visible, err := service.List(context.Background(), 10, 0, false)
	if err != nil {
		t.Fatalf("list senders: %v", err)
	}
	if len(visible) != 2 {
		t.Fatalf("expected 2 visible senders, got %d", len(visible))
	}

	all, err := service.List(context.Background(), 10, 0, true)
	if err != nil {
		t.Fatalf("list all senders: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 senders, got %d", len(all))
	}
}

type fakeStore struct {
	records map[int64]pgrepo.SenderRecord
	order   []int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[int64]pgrepo.SenderRecord)}
}

func (f *fakeStore) Upsert(_ context.Context, chatID int64, username, firstName, lastName string) (pgrepo.SenderRecord, error) {
	now := time.Now()
	record, ok := f.records[chatID]
	if !ok {
		record = pgrepo.SenderRecord{ChatID: chatID, VerifiedAt: now}
		f.order = append(f.order, chatID)
	}
	record.Username = &username
	record.FirstName = &firstName
	record.LastName = &lastName
	record.LastMessageAt = now
	record.MessageCount++
	f.records[chatID] = record
	return record, nil
}

func (f *fakeStore) Find(_ context.Context, chatID int64) (pgrepo.SenderRecord, error) {
	record, ok := f.records[chatID]
	if !ok {
		return pgrepo.SenderRecord{}, pgrepo.ErrSenderNotFound
	}
	return record, nil
}

func (f *fakeStore) List(_ context.Context, limit, offset int, includeBlocked bool) ([]pgrepo.SenderRecord, error) {
	out := make([]pgrepo.SenderRecord, 0, len(f.order))
	for _, chatID := range f.order {
		record := f.records[chatID]
		if record.IsBlocked && !includeBlocked {
			continue
		}
		out = append(out, record)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) SetBlocked(_ context.Context, chatID int64, blocked bool, notes string) error {
	record, ok := f.records[chatID]
	if !ok {
		return pgrepo.ErrSenderNotFound
	}
	record.IsBlocked = blocked
	record.Notes = &notes
	f.records[chatID] = record
	return nil
}
