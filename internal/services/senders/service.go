package senders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/postgres"
)

var ErrSenderNotFound = errors.New("sender not found")

type SenderStore interface {
	Upsert(ctx context.Context, chatID int64, username, firstName, lastName string) (pgrepo.SenderRecord, error)
	Find(ctx context.Context, chatID int64) (pgrepo.SenderRecord, error)
	List(ctx context.Context, limit, offset int, includeBlocked bool) ([]pgrepo.SenderRecord, error)
	SetBlocked(ctx context.Context, chatID int64, blocked bool, notes string) error
}

// Service tracks which chats have messaged the bot, so the payout flow
// only talks to chats Telegram will actually accept messages for.
type Service struct {
	store  SenderStore
	logger *zap.Logger
}

type Sender struct {
	ChatID        int64
	Username      string
	FirstName     string
	LastName      string
	VerifiedAt    time.Time
	LastMessageAt time.Time
	MessageCount  int
	IsBlocked     bool
}

func NewService(store SenderStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// RecordContact registers an inbound message from the chat.
func (s *Service) RecordContact(ctx context.Context, chatID int64, username, firstName, lastName string) (Sender, error) {
	if s.store == nil {
		return Sender{}, fmt.Errorf("sender store is nil")
	}
	if chatID == 0 {
		return Sender{}, fmt.Errorf("invalid chat id")
	}

	record, err := s.store.Upsert(ctx, chatID, username, firstName, lastName)
	if err != nil {
		return Sender{}, err
	}
	if record.MessageCount == 1 {
		s.logger.Info("new verified sender", zap.Int64("chat_id", chatID))
	}

	return toSender(record), nil
}

// CanMessage reports whether the bot may push messages to the chat.
func (s *Service) CanMessage(ctx context.Context, chatID int64) (bool, error) {
	if s.store == nil {
		return false, fmt.Errorf("sender store is nil")
	}

	record, err := s.store.Find(ctx, chatID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrSenderNotFound) {
			return false, nil
		}
		return false, err
	}

	return !record.IsBlocked, nil
}

func (s *Service) List(ctx context.Context, limit, offset int, includeBlocked bool) ([]Sender, error) {
	if s.store == nil {
		return nil, fmt.Errorf("sender store is nil")
	}

	records, err := s.store.List(ctx, limit, offset, includeBlocked)
	if err != nil {
		return nil, err
	}

	senders := make([]Sender, 0, len(records))
	for _, record := range records {
		senders = append(senders, toSender(record))
	}

	return senders, nil
}

func (s *Service) SetBlocked(ctx context.Context, chatID int64, blocked bool, notes string) error {
	if s.store == nil {
		return fmt.Errorf("sender store is nil")
	}

	if err := s.store.SetBlocked(ctx, chatID, blocked, notes); err != nil {
		if errors.Is(err, pgrepo.ErrSenderNotFound) {
			return ErrSenderNotFound
		}
		return err
	}

	s.logger.Info("sender block state changed", zap.Int64("chat_id", chatID), zap.Bool("blocked", blocked))
	return nil
}

func toSender(record pgrepo.SenderRecord) Sender {
	sender := Sender{
		ChatID:        record.ChatID,
		VerifiedAt:    record.VerifiedAt,
		LastMessageAt: record.LastMessageAt,
		MessageCount:  record.MessageCount,
		IsBlocked:     record.IsBlocked,
	}
	if record.Username != nil {
		sender.Username = *record.Username
	}
	if record.FirstName != nil {
		sender.FirstName = *record.FirstName
	}
	if record.LastName != nil {
		sender.LastName = *record.LastName
	}
	return sender
}
