package promo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/FnipsDanil/crashTest-sub001/internal/domain/enums"
	pgrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/postgres"
	redrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/redis"
)

var (
	ErrInvalidCode    = errors.New("invalid promo code format")
	ErrCodeNotFound   = errors.New("promo code not found")
	ErrCodeExpired    = errors.New("promo code expired")
	ErrCodeExhausted  = errors.New("promo code exhausted")
	ErrAlreadyUsed    = errors.New("promo code already used")
	ErrRedemptionBusy = errors.New("another redemption is in progress")
	ErrPlayerNotFound = errors.New("player not found")
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]{3,50}$`)

const redemptionLockTTL = 10 * time.Second

type PromoStore interface {
	LockActiveByCode(ctx context.Context, tx pgx.Tx, code string) (pgrepo.PromoRecord, error)
	HasUse(ctx context.Context, tx pgx.Tx, promoID, userID int64) (bool, error)
	InsertUse(ctx context.Context, tx pgx.Tx, promoID, userID int64, balanceGranted float64, withdrawalRequirement *float64) error
	IncrementUses(ctx context.Context, tx pgx.Tx, promoID int64) error
	ListUsesByUser(ctx context.Context, userID int64, limit int) ([]pgrepo.PromoUseRecord, error)
}

type UserStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (pgrepo.UserRecord, error)
	LockByTelegramID(ctx context.Context, tx pgx.Tx, telegramID int64) (pgrepo.UserRecord, error)
	ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, userID int64, balanceDelta, lockedDelta float64) (float64, error)
}

type TransactionStore interface {
	Insert(ctx context.Context, tx pgx.Tx, txn pgrepo.NewTransaction) (int64, error)
}

type LockStore interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (string, error)
	Release(ctx context.Context, name, token string) error
}

type BalanceCache interface {
	Set(ctx context.Context, telegramID int64, balance float64) error
}

type txRunner func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error

type Service struct {
	runTx  txRunner
	promos PromoStore
	users  UserStore
	txns   TransactionStore
	locks  LockStore
	cache  BalanceCache
	logger *zap.Logger
	now    func() time.Time
}

type Dependencies struct {
	Pool         *pgxpool.Pool
	Promos       PromoStore
	Users        UserStore
	Transactions TransactionStore
	Locks        LockStore
	BalanceCache BalanceCache
	Logger       *zap.Logger
}

type Redemption struct {
	Code                  string
	BalanceGranted        float64
	WithdrawalRequirement *float64
	NewBalance            float64
}

type Use struct {
	Code           string
	BalanceGranted float64
	UsedAt         time.Time
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var runTx txRunner
	if deps.Pool != nil {
		pool := deps.Pool
		runTx = func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		}
	}

	return &Service{
		runTx:  runTx,
		promos: deps.Promos,
		users:  deps.Users,
		txns:   deps.Transactions,
		locks:  deps.Locks,
		cache:  deps.BalanceCache,
		logger: logger,
		now:    time.Now,
	}
}

// NormalizeCode uppercases and trims user input and rejects anything
// outside the allowed alphabet.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !codePattern.MatchString(code) {
		return "", ErrInvalidCode
	}
	return code, nil
}

// Redeem grants a promo code to the player exactly once. A short redis
// lock keeps replicas from racing; the row locks inside the transaction
// make the outcome correct even if the redis lock is lost.
func (s *Service) Redeem(ctx context.Context, telegramID int64, rawCode string) (Redemption, error) {
	if s.runTx == nil || s.promos == nil || s.users == nil || s.txns == nil {
		return Redemption{}, fmt.Errorf("promo service is not fully wired")
	}
	if telegramID <= 0 {
		return Redemption{}, fmt.Errorf("invalid telegram id")
	}

	code, err := NormalizeCode(rawCode)
	if err != nil {
		return Redemption{}, err
	}

	if s.locks != nil {
		lockName := fmt.Sprintf("promo:%d", telegramID)
		token, err := s.locks.Acquire(ctx, lockName, redemptionLockTTL)
		if err != nil {
			if errors.Is(err, redrepo.ErrLockNotAcquired) {
				return Redemption{}, ErrRedemptionBusy
			}
			s.logger.Warn("promo lock unavailable, relying on row locks", zap.Error(err))
		} else {
			defer func() {
				if err := s.locks.Release(ctx, lockName, token); err != nil {
					s.logger.Warn("promo lock release failed", zap.Error(err))
				}
			}()
		}
	}

	var result Redemption
	err = s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		user, err := s.users.LockByTelegramID(ctx, tx, telegramID)
		if err != nil {
			if errors.Is(err, pgrepo.ErrUserNotFound) {
				return ErrPlayerNotFound
			}
			return err
		}

		promo, err := s.promos.LockActiveByCode(ctx, tx, code)
		if err != nil {
			if errors.Is(err, pgrepo.ErrPromoNotFound) {
				return ErrCodeNotFound
			}
			return err
		}
		if promo.ExpiresAt != nil && s.now().After(*promo.ExpiresAt) {
			return ErrCodeExpired
		}
		if promo.MaxUses > 0 && promo.CurrentUses >= promo.MaxUses {
			return ErrCodeExhausted
		}

		used, err := s.promos.HasUse(ctx, tx, promo.ID, user.ID)
		if err != nil {
			return err
		}
		if used {
			return ErrAlreadyUsed
		}

		lockedDelta := 0.0
		if promo.WithdrawalRequirement != nil {
			lockedDelta = *promo.WithdrawalRequirement
		}

		newBalance, err := s.users.ApplyBalanceDelta(ctx, tx, user.ID, promo.BalanceReward, lockedDelta)
		if err != nil {
			return err
		}

		if err := s.promos.InsertUse(ctx, tx, promo.ID, user.ID, promo.BalanceReward, promo.WithdrawalRequirement); err != nil {
			if errors.Is(err, pgrepo.ErrPromoAlreadyUsed) {
				return ErrAlreadyUsed
			}
			return err
		}
		if err := s.promos.IncrementUses(ctx, tx, promo.ID); err != nil {
			return err
		}

		if _, err := s.txns.Insert(ctx, tx, pgrepo.NewTransaction{
			UserID:       user.ID,
			Type:         enums.TransactionTypePromoCodeBonus,
			Amount:       promo.BalanceReward,
			BalanceAfter: newBalance,
			Status:       enums.TransactionStatusCompleted,
			ExtraData:    map[string]any{"promo_code": promo.Code},
		}); err != nil {
			return err
		}

		result = Redemption{
			Code:                  promo.Code,
			BalanceGranted:        promo.BalanceReward,
			WithdrawalRequirement: promo.WithdrawalRequirement,
			NewBalance:            newBalance,
		}
		return nil
	})
	if err != nil {
		return Redemption{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, telegramID, result.NewBalance); err != nil {
			s.logger.Warn("balance cache refresh failed after redemption",
				zap.Int64("telegram_id", telegramID), zap.Error(err))
		}
	}

	s.logger.Info("promo code redeemed",
		zap.Int64("telegram_id", telegramID),
		zap.String("code", result.Code),
		zap.Float64("granted", result.BalanceGranted),
	)

	return result, nil
}

func (s *Service) History(ctx context.Context, telegramID int64, limit int) ([]Use, error) {
	if s.promos == nil || s.users == nil {
		return nil, fmt.Errorf("promo service is not fully wired")
	}

	user, err := s.users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	records, err := s.promos.ListUsesByUser(ctx, user.ID, limit)
	if err != nil {
		return nil, err
	}

	uses := make([]Use, 0, len(records))
	for _, record := range records {
		uses = append(uses, Use{
			Code:           record.Code,
			BalanceGranted: record.BalanceGranted,
			UsedAt:         record.UsedAt,
		})
	}

	return uses, nil
}
