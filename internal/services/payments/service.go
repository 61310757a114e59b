package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FnipsDanil/crashTest-sub001/internal/domain/enums"
	pgrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/postgres"
	redrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/redis"
)

var (
	ErrInvalidAmount   = errors.New("invalid deposit amount")
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrPlayerNotFound  = errors.New("player not found")
)

const (
	minDepositStars = 1
	maxDepositStars = 10000
)

type InvoiceStore interface {
	Put(ctx context.Context, record redrepo.InvoiceRecord) error
	Get(ctx context.Context, payload string) (redrepo.InvoiceRecord, error)
	MarkStatus(ctx context.Context, payload string, status enums.InvoiceStatus) (redrepo.InvoiceRecord, error)
}

type UserStore interface {
	GetOrCreate(ctx context.Context, telegramID int64, username, firstName, lastName, languageCode string) (pgrepo.UserRecord, error)
	LockByTelegramID(ctx context.Context, tx pgx.Tx, telegramID int64) (pgrepo.UserRecord, error)
	ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, userID int64, balanceDelta, lockedDelta float64) (float64, error)
	RecordDeposit(ctx context.Context, tx pgx.Tx, userID int64, amount float64) error
}

type TransactionStore interface {
	Insert(ctx context.Context, tx pgx.Tx, txn pgrepo.NewTransaction) (int64, error)
	FindByPaymentPayload(ctx context.Context, payload string) (pgrepo.TransactionRecord, error)
}

type InvoiceLinker interface {
	CreateInvoiceLink(ctx context.Context, title, description, payload string, amount int) (string, error)
}

type BalanceCache interface {
	Set(ctx context.Context, telegramID int64, balance float64) error
}

type Service struct {
	pool     *pgxpool.Pool
	invoices InvoiceStore
	users    UserStore
	txns     TransactionStore
	linker   InvoiceLinker
	cache    BalanceCache
	logger   *zap.Logger
	now      func() time.Time
}

type Dependencies struct {
	Pool         *pgxpool.Pool
	Invoices     InvoiceStore
	Users        UserStore
	Transactions TransactionStore
	Linker       InvoiceLinker
	BalanceCache BalanceCache
	Logger       *zap.Logger
}

type Invoice struct {
	Payload    string
	InvoiceURL string
	Amount     float64
	Status     enums.InvoiceStatus
}

type Status struct {
	Payload string
	Status  enums.InvoiceStatus
	Amount  float64
}

type Confirmation struct {
	Payload          string
	TelegramID       int64
	Amount           float64
	NewBalance       float64
	AlreadyProcessed bool
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		pool:     deps.Pool,
		invoices: deps.Invoices,
		users:    deps.Users,
		txns:     deps.Transactions,
		linker:   deps.Linker,
		cache:    deps.BalanceCache,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateInvoice issues a Telegram Stars invoice link for a deposit. The
// pending invoice lives in redis until it is paid or expires.
func (s *Service) CreateInvoice(ctx context.Context, telegramID int64, amount int) (Invoice, error) {
	if s.invoices == nil || s.linker == nil || s.users == nil {
		return Invoice{}, fmt.Errorf("payments service is not fully wired")
	}
	if telegramID <= 0 {
		return Invoice{}, fmt.Errorf("invalid telegram id")
	}
	if amount < minDepositStars || amount > maxDepositStars {
		return Invoice{}, ErrInvalidAmount
	}

	if _, err := s.users.GetOrCreate(ctx, telegramID, "", "", "", ""); err != nil {
		return Invoice{}, err
	}

	payload := fmt.Sprintf("deposit_%d_%s", telegramID, uuid.NewString())

	record := redrepo.InvoiceRecord{
		Payload:    payload,
		TelegramID: telegramID,
		Amount:     float64(amount),
		Status:     enums.InvoiceStatusPending,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.invoices.Put(ctx, record); err != nil {
		return Invoice{}, err
	}

	link, err := s.linker.CreateInvoiceLink(ctx,
		"Star Deposit",
		fmt.Sprintf("Deposit %d stars to your game balance", amount),
		payload, amount)
	if err != nil {
		return Invoice{}, fmt.Errorf("create invoice link: %w", err)
	}

	s.logger.Info("deposit invoice created",
		zap.Int64("telegram_id", telegramID),
		zap.Int("amount", amount),
		zap.String("payload", payload),
	)

	return Invoice{
		Payload:    payload,
		InvoiceURL: link,
		Amount:     float64(amount),
		Status:     enums.InvoiceStatusPending,
	}, nil
}

// Status reports the state of a deposit invoice. Once the redis record
// expires, a completed transaction row still answers "paid".
func (s *Service) Status(ctx context.Context, payload string) (Status, error) {
	if s.invoices == nil || s.txns == nil {
		return Status{}, fmt.Errorf("payments service is not fully wired")
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Status{}, ErrInvoiceNotFound
	}

	record, err := s.invoices.Get(ctx, payload)
	if err == nil {
		return Status{Payload: record.Payload, Status: record.Status, Amount: record.Amount}, nil
	}
	if !errors.Is(err, redrepo.ErrInvoiceNotFound) {
		return Status{}, err
	}

	txn, err := s.txns.FindByPaymentPayload(ctx, payload)
	if err != nil {
		if errors.Is(err, pgrepo.ErrTransactionNotFound) {
			return Status{}, ErrInvoiceNotFound
		}
		return Status{}, err
	}

	return Status{Payload: payload, Status: enums.InvoiceStatusPaid, Amount: txn.Amount}, nil
}

// Approve tells whether a pre-checkout query should be accepted.
func (s *Service) Approve(ctx context.Context, telegramID int64, payload string) (bool, string) {
	if s.invoices == nil {
		return false, "Payments are temporarily unavailable"
	}

	record, err := s.invoices.Get(ctx, strings.TrimSpace(payload))
	if err != nil {
		return false, "Invoice not found or expired"
	}
	if record.TelegramID != telegramID {
		return false, "Invoice belongs to another user"
	}
	if record.Status != enums.InvoiceStatusPending {
		return false, "Invoice is no longer payable"
	}

	return true, ""
}

// Confirm credits a successful Stars payment to the player balance. The
// payment payload makes the operation idempotent across redelivered
// updates.
func (s *Service) Confirm(ctx context.Context, telegramID int64, payload string, amount int) (Confirmation, error) {
	if s.pool == nil || s.users == nil || s.txns == nil {
		return Confirmation{}, fmt.Errorf("payments service is not fully wired")
	}
	payload = strings.TrimSpace(payload)
	if telegramID <= 0 || payload == "" || amount <= 0 {
		return Confirmation{}, fmt.Errorf("invalid payment confirmation payload")
	}

	if existing, err := s.txns.FindByPaymentPayload(ctx, payload); err == nil {
		return Confirmation{
			Payload:          payload,
			TelegramID:       telegramID,
			Amount:           existing.Amount,
			NewBalance:       existing.BalanceAfter,
			AlreadyProcessed: true,
		}, nil
	} else if !errors.Is(err, pgrepo.ErrTransactionNotFound) {
		return Confirmation{}, err
	}

	var confirmation Confirmation
	err := pgrepo.WithTx(ctx, s.pool, func(ctx context.Context, tx pgx.Tx) error {
		user, err := s.users.LockByTelegramID(ctx, tx, telegramID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}

		// A deposit also works off the withdrawal requirement attached to
		// promo rewards. The repo floors the locked balance at zero.
		newBalance, err := s.users.ApplyBalanceDelta(ctx, tx, user.ID, float64(amount), -float64(amount))
		if err != nil {
			return err
		}
		if err := s.users.RecordDeposit(ctx, tx, user.ID, float64(amount)); err != nil {
			return err
		}

		if _, err := s.txns.Insert(ctx, tx, pgrepo.NewTransaction{
			UserID:         user.ID,
			Type:           enums.TransactionTypeDeposit,
			Amount:         float64(amount),
			BalanceAfter:   newBalance,
			PaymentPayload: &payload,
			Status:         enums.TransactionStatusCompleted,
		}); err != nil {
			return err
		}

		confirmation = Confirmation{
			Payload:    payload,
			TelegramID: telegramID,
			Amount:     float64(amount),
			NewBalance: newBalance,
		}
		return nil
	})
	if err != nil {
		return Confirmation{}, err
	}

	if s.invoices != nil {
		if _, err := s.invoices.MarkStatus(ctx, payload, enums.InvoiceStatusPaid); err != nil && !errors.Is(err, redrepo.ErrInvoiceNotFound) {
			s.logger.Warn("invoice status update failed", zap.String("payload", payload), zap.Error(err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, telegramID, confirmation.NewBalance); err != nil {
			s.logger.Warn("balance cache refresh failed after deposit",
				zap.Int64("telegram_id", telegramID), zap.Error(err))
		}
	}

	s.logger.Info("deposit confirmed",
		zap.Int64("telegram_id", telegramID),
		zap.String("payload", payload),
		zap.Int("amount", amount),
	)

	return confirmation, nil
}
