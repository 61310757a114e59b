package dto

import "time"

type BalanceResponse struct {
	UserID        int64    `json:"user_id"`
	Balance       float64  `json:"balance"`
	LockedBalance *float64 `json:"locked_balance,omitempty"`
}

type StatsResponse struct {
	UserID         int64   `json:"user_id"`
	TotalGames     int     `json:"total_games"`
	GamesWon       int     `json:"games_won"`
	GamesLost      int     `json:"games_lost"`
	TotalWagered   float64 `json:"total_wagered"`
	TotalWon       float64 `json:"total_won"`
	BestMultiplier float64 `json:"best_multiplier"`
}

type LeaderboardEntryResponse struct {
	Position   int     `json:"position"`
	UserID     int64   `json:"user_id"`
	Name       string  `json:"name"`
	TotalWon   float64 `json:"total_won"`
	TotalGames int     `json:"total_games"`
	GamesWon   int     `json:"games_won"`
}

type LeaderboardResponse struct {
	Players []LeaderboardEntryResponse `json:"players"`
}

type PlayerRankResponse struct {
	UserID int64 `json:"user_id"`
	Rank   int64 `json:"rank"`
}

type TransactionResponse struct {
	ID           int64     `json:"id"`
	Type         string    `json:"type"`
	Amount       float64   `json:"amount"`
	BalanceAfter float64   `json:"balance_after"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type TransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

type CrashResponse struct {
	CrashPoint  float64   `json:"crash_point"`
	PlayerCount int       `json:"player_count"`
	PlayedAt    time.Time `json:"played_at"`
}

type RecentCrashesResponse struct {
	Crashes []CrashResponse `json:"crashes"`
}
