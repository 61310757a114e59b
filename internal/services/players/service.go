package players

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	pgrepo "github.com/FnipsDanil/crashTest-sub001/internal/repo/postgres"
)

var ErrPlayerNotFound = errors.New("player not found")

type UserStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (pgrepo.UserRecord, error)
	Leaderboard(ctx context.Context, limit int) ([]pgrepo.LeaderboardEntry, error)
	Rank(ctx context.Context, telegramID int64) (int64, error)
}

type StatsStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (pgrepo.StatsRecord, error)
}

type HistoryStore interface {
	RecentCrashes(ctx context.Context, limit int) ([]pgrepo.RoundRecord, error)
}

type TransactionStore interface {
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]pgrepo.TransactionRecord, error)
}

type BalanceCache interface {
	Get(ctx context.Context, telegramID int64) (float64, bool, error)
	Set(ctx context.Context, telegramID int64, balance float64) error
}

type Service struct {
	users   UserStore
	stats   StatsStore
	history HistoryStore
	txns    TransactionStore
	cache   BalanceCache
	logger  *zap.Logger
}

type Dependencies struct {
	Users        UserStore
	Stats        StatsStore
	History      HistoryStore
	Transactions TransactionStore
	BalanceCache BalanceCache
	Logger       *zap.Logger
}

// LockedBalance is only known on the database path. The cache keeps the
// spendable balance alone, so cache hits leave it nil.
type Balance struct {
	TelegramID    int64
	Balance       float64
	LockedBalance *float64
	FromCache     bool
}

type Stats struct {
	TelegramID     int64
	TotalGames     int
	GamesWon       int
	GamesLost      int
	TotalWagered   float64
	TotalWon       float64
	BestMultiplier float64
}

type RankedPlayer struct {
	Position   int
	TelegramID int64
	Name       string
	TotalWon   float64
	TotalGames int
	GamesWon   int
}

type Transaction struct {
	ID           int64
	Type         string
	Amount       float64
	BalanceAfter float64
	Status       string
	CreatedAt    time.Time
}

type Crash struct {
	CrashPoint  float64
	PlayerCount int
	PlayedAt    time.Time
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		users:   deps.Users,
		stats:   deps.Stats,
		history: deps.History,
		txns:    deps.Transactions,
		cache:   deps.BalanceCache,
		logger:  logger,
	}
}

// Balance serves the cached balance when available and falls back to the
// database, refreshing the cache on the way out.
func (s *Service) Balance(ctx context.Context, telegramID int64) (Balance, error) {
	if s.users == nil {
		return Balance{}, fmt.Errorf("user store is nil")
	}
	if telegramID <= 0 {
		return Balance{}, fmt.Errorf("invalid telegram id")
	}

	if s.cache != nil {
		cached, found, err := s.cache.Get(ctx, telegramID)
		if err != nil {
			s.logger.Warn("balance cache read failed", zap.Int64("telegram_id", telegramID), zap.Error(err))
		} else if found {
			return Balance{TelegramID: telegramID, Balance: cached, FromCache: true}, nil
		}
	}

	user, err := s.users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return Balance{}, ErrPlayerNotFound
		}
		return Balance{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, telegramID, user.Balance); err != nil {
			s.logger.Warn("balance cache write failed", zap.Int64("telegram_id", telegramID), zap.Error(err))
		}
	}

	locked := user.WithdrawalLockedBalance
	return Balance{
		TelegramID:    telegramID,
		Balance:       user.Balance,
		LockedBalance: &locked,
	}, nil
}

func (s *Service) Stats(ctx context.Context, telegramID int64) (Stats, error) {
	if s.stats == nil {
		return Stats{}, fmt.Errorf("stats store is nil")
	}
	if telegramID <= 0 {
		return Stats{}, fmt.Errorf("invalid telegram id")
	}

	record, err := s.stats.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrStatsNotFound) {
			// A player that never finished a round still gets a zero row.
			if _, userErr := s.users.FindByTelegramID(ctx, telegramID); userErr != nil {
				return Stats{}, ErrPlayerNotFound
			}
			return Stats{TelegramID: telegramID}, nil
		}
		return Stats{}, err
	}

	return Stats{
		TelegramID:     record.TelegramID,
		TotalGames:     record.TotalGames,
		GamesWon:       record.GamesWon,
		GamesLost:      record.GamesLost,
		TotalWagered:   record.TotalWagered,
		TotalWon:       record.TotalWon,
		BestMultiplier: record.BestMultiplier,
	}, nil
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]RankedPlayer, error) {
	if s.users == nil {
		return nil, fmt.Errorf("user store is nil")
	}

	entries, err := s.users.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	players := make([]RankedPlayer, 0, len(entries))
	for i, entry := range entries {
		players = append(players, RankedPlayer{
			Position:   i + 1,
			TelegramID: entry.TelegramID,
			Name:       displayName(entry.Username, entry.FirstName),
			TotalWon:   entry.TotalWon,
			TotalGames: entry.TotalGames,
			GamesWon:   entry.GamesWon,
		})
	}

	return players, nil
}

func (s *Service) Rank(ctx context.Context, telegramID int64) (int64, error) {
	if s.users == nil {
		return 0, fmt.Errorf("user store is nil")
	}

	rank, err := s.users.Rank(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return 0, ErrPlayerNotFound
		}
		return 0, err
	}

	return rank, nil
}

func (s *Service) Transactions(ctx context.Context, telegramID int64, limit, offset int) ([]Transaction, error) {
	if s.users == nil || s.txns == nil {
		return nil, fmt.Errorf("player stores are nil")
	}

	user, err := s.users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrUserNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	records, err := s.txns.ListByUser(ctx, user.ID, limit, offset)
	if err != nil {
		return nil, err
	}

	txns := make([]Transaction, 0, len(records))
	for _, record := range records {
		txns = append(txns, Transaction{
			ID:           record.ID,
			Type:         string(record.Type),
			Amount:       record.Amount,
			BalanceAfter: record.BalanceAfter,
			Status:       string(record.Status),
			CreatedAt:    record.CreatedAt,
		})
	}

	return txns, nil
}

func (s *Service) RecentCrashes(ctx context.Context, limit int) ([]Crash, error) {
	if s.history == nil {
		return nil, fmt.Errorf("history store is nil")
	}

	records, err := s.history.RecentCrashes(ctx, limit)
	if err != nil {
		return nil, err
	}

	crashes := make([]Crash, 0, len(records))
	for _, record := range records {
		crashes = append(crashes, Crash{
			CrashPoint:  record.CrashPoint,
			PlayerCount: record.PlayerCount,
			PlayedAt:    record.PlayedAt,
		})
	}

	return crashes, nil
}

func displayName(username, firstName *string) string {
	if username != nil && *username != "" {
		return "@" + *username
	}
	if firstName != nil && *firstName != "" {
		return *firstName
	}
	return "Anonymous"
}
