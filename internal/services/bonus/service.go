package bonus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
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
	ErrBonusDisabled  = errors.New("channel bonuses are disabled")
	ErrInvalidChannel = errors.New("invalid channel identifier")
	ErrNotSubscribed  = errors.New("user is not subscribed to the channel")
	ErrAlreadyClaimed = errors.New("channel bonus already claimed")
	ErrClaimBusy      = errors.New("another claim is in progress")
	ErrPlayerNotFound = errors.New("player not found")
)

const claimLockTTL = 10 * time.Second

var (
	channelUsernamePattern = regexp.MustCompile(`^@[A-Za-z0-9_]{5,32}$`)
	channelIDPattern       = regexp.MustCompile(`^-100\d{5,13}$`)
)

// bonusAmountSettingKey holds the per-channel bonus override in
// system_settings, as {"<channel>": "7.5", "default": "5.0"}.
const bonusAmountSettingKey = "channel_bonus_amounts"

type BonusStore interface {
	Find(ctx context.Context, userID int64, channelID string) (pgrepo.BonusRecord, error)
	Insert(ctx context.Context, tx pgx.Tx, userID int64, channelID string, amount float64, verifiedAt time.Time) (pgrepo.BonusRecord, error)
	RecordAttempt(ctx context.Context, userID int64, channelID string) error
	ListByUser(ctx context.Context, userID int64) ([]pgrepo.BonusRecord, error)
}

type UserStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (pgrepo.UserRecord, error)
	LockByTelegramID(ctx context.Context, tx pgx.Tx, telegramID int64) (pgrepo.UserRecord, error)
	ApplyBalanceDelta(ctx context.Context, tx pgx.Tx, userID int64, balanceDelta, lockedDelta float64) (float64, error)
}

type TransactionStore interface {
	Insert(ctx context.Context, tx pgx.Tx, txn pgrepo.NewTransaction) (int64, error)
}

type SettingsStore interface {
	Get(ctx context.Context, key string) (json.RawMessage, error)
}

type MembershipChecker interface {
	IsChannelMember(ctx context.Context, channel string, userID int64) (bool, error)
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
	runTx         txRunner
	bonuses       BonusStore
	users         UserStore
	txns          TransactionStore
	settings      SettingsStore
	membership    MembershipChecker
	locks         LockStore
	cache         BalanceCache
	logger        *zap.Logger
	enabled       bool
	defaultAmount float64
	now           func() time.Time
}

type Dependencies struct {
	Pool          *pgxpool.Pool
	Bonuses       BonusStore
	Users         UserStore
	Transactions  TransactionStore
	Settings      SettingsStore
	Membership    MembershipChecker
	Locks         LockStore
	BalanceCache  BalanceCache
	Logger        *zap.Logger
	Enabled       bool
	DefaultAmount string
}

type Claim struct {
	ChannelID   string
	BonusAmount float64
	NewBalance  float64
	ClaimedAt   time.Time
}

type ClaimedBonus struct {
	ChannelID   string
	BonusAmount float64
	ClaimedAt   time.Time
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	amount, err := strconv.ParseFloat(strings.TrimSpace(deps.DefaultAmount), 64)
	if err != nil || amount <= 0 {
		amount = 5.0
	}

	var runTx txRunner
	if deps.Pool != nil {
		pool := deps.Pool
		runTx = func(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
			return pgrepo.WithTx(ctx, pool, fn)
		}
	}

	return &Service{
		runTx:         runTx,
		bonuses:       deps.Bonuses,
		users:         deps.Users,
		txns:          deps.Transactions,
		settings:      deps.Settings,
		membership:    deps.Membership,
		locks:         deps.Locks,
		cache:         deps.BalanceCache,
		logger:        logger,
		enabled:       deps.Enabled,
		defaultAmount: amount,
		now:           time.Now,
	}
}

// NormalizeChannel validates a channel reference, accepting public
// usernames and raw supergroup ids.
func NormalizeChannel(raw string) (string, error) {
	channel := strings.TrimSpace(raw)
	if channelUsernamePattern.MatchString(channel) || channelIDPattern.MatchString(channel) {
		return channel, nil
	}
	return "", ErrInvalidChannel
}

// CheckAndClaim verifies the subscription with Telegram and pays the
// bonus once per user and channel.
func (s *Service) CheckAndClaim(ctx context.Context, telegramID int64, rawChannel string) (Claim, error) {
	if !s.enabled {
		return Claim{}, ErrBonusDisabled
	}
	if s.runTx == nil || s.bonuses == nil || s.users == nil || s.txns == nil || s.membership == nil {
		return Claim{}, fmt.Errorf("bonus service is not fully wired")
	}
	if telegramID <= 0 {
		return Claim{}, fmt.Errorf("invalid telegram id")
	}

	channel, err := NormalizeChannel(rawChannel)
	if err != nil {
		return Claim{}, err
	}

	if s.locks != nil {
		lockName := fmt.Sprintf("bonus:%d", telegramID)
		token, err := s.locks.Acquire(ctx, lockName, claimLockTTL)
		if err != nil {
			if errors.Is(err, redrepo.ErrLockNotAcquired) {
				return Claim{}, ErrClaimBusy
			}
			s.logger.Warn("bonus lock unavailable, relying on the unique claim row", zap.Error(err))
		} else {
			defer func() {
				if err := s.locks.Release(ctx, lockName, token); err != nil {
					s.logger.Warn("bonus lock release failed", zap.Error(err))
				}
			}()
		}
	}

	user, err := s.users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Claim{}, ErrPlayerNotFound
		}
		return Claim{}, err
	}

	if _, err := s.bonuses.Find(ctx, user.ID, channel); err == nil {
		_ = s.bonuses.RecordAttempt(ctx, user.ID, channel)
		return Claim{}, ErrAlreadyClaimed
	} else if !errors.Is(err, pgrepo.ErrBonusNotFound) {
		return Claim{}, err
	}

	subscribed, err := s.membership.IsChannelMember(ctx, channel, telegramID)
	if err != nil {
		return Claim{}, fmt.Errorf("verify channel membership: %w", err)
	}
	if !subscribed {
		return Claim{}, ErrNotSubscribed
	}

	amount := s.bonusAmount(ctx, channel)
	verifiedAt := s.now().UTC()

	var claim Claim
	err = s.runTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		locked, err := s.users.LockByTelegramID(ctx, tx, telegramID)
		if err != nil {
			return err
		}

		record, err := s.bonuses.Insert(ctx, tx, locked.ID, channel, amount, verifiedAt)
		if err != nil {
			if errors.Is(err, pgrepo.ErrBonusAlreadyClaimed) {
				return ErrAlreadyClaimed
			}
			return err
		}

		newBalance, err := s.users.ApplyBalanceDelta(ctx, tx, locked.ID, amount, 0)
		if err != nil {
			return err
		}

		if _, err := s.txns.Insert(ctx, tx, pgrepo.NewTransaction{
			UserID:       locked.ID,
			Type:         enums.TransactionTypeChannelBonus,
			Amount:       amount,
			BalanceAfter: newBalance,
			Status:       enums.TransactionStatusCompleted,
			ExtraData:    map[string]any{"channel_id": channel},
		}); err != nil {
			return err
		}

		claim = Claim{
			ChannelID:   channel,
			BonusAmount: amount,
			NewBalance:  newBalance,
			ClaimedAt:   record.ClaimedAt,
		}
		return nil
	})
	if err != nil {
		return Claim{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, telegramID, claim.NewBalance); err != nil {
			s.logger.Warn("balance cache refresh failed after bonus",
				zap.Int64("telegram_id", telegramID), zap.Error(err))
		}
	}

	s.logger.Info("channel bonus claimed",
		zap.Int64("telegram_id", telegramID),
		zap.String("channel", channel),
		zap.Float64("amount", amount),
	)

	return claim, nil
}

func (s *Service) ListClaimed(ctx context.Context, telegramID int64) ([]ClaimedBonus, error) {
	if s.bonuses == nil || s.users == nil {
		return nil, fmt.Errorf("bonus service is not fully wired")
	}

	user, err := s.users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	records, err := s.bonuses.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	claimed := make([]ClaimedBonus, 0, len(records))
	for _, record := range records {
		claimed = append(claimed, ClaimedBonus{
			ChannelID:   record.ChannelID,
			BonusAmount: record.BonusAmount,
			ClaimedAt:   record.ClaimedAt,
		})
	}

	return claimed, nil
}

// bonusAmount reads per-channel overrides from system settings, falling
// back to the configured default on any problem.
func (s *Service) bonusAmount(ctx context.Context, channel string) float64 {
	if s.settings == nil {
		return s.defaultAmount
	}

	raw, err := s.settings.Get(ctx, bonusAmountSettingKey)
	if err != nil {
		if !errors.Is(err, pgrepo.ErrSettingNotFound) {
			s.logger.Warn("bonus amount settings read failed", zap.Error(err))
		}
		return s.defaultAmount
	}

	var amounts map[string]string
	if err := json.Unmarshal(raw, &amounts); err != nil {
		s.logger.Warn("bonus amount settings are malformed", zap.Error(err))
		return s.defaultAmount
	}

	for _, key := range []string{channel, "default"} {
		if value, ok := amounts[key]; ok {
			if amount, err := strconv.ParseFloat(value, 64); err == nil && amount > 0 {
				return amount
			}
		}
	}

	return s.defaultAmount
}
