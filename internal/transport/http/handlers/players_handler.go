package handlers

import (
	"errors"
	"net/http"

	playersvc "github.com/FnipsDanil/crashTest-sub001/internal/services/players"
	"github.com/FnipsDanil/crashTest-sub001/internal/transport/http/dto"
	httperrors "github.com/FnipsDanil/crashTest-sub001/internal/transport/http/errors"
)

type PlayersHandler struct {
	service *playersvc.Service
}

func NewPlayersHandler(service *playersvc.Service) *PlayersHandler {
	return &PlayersHandler{service: service}
}

func (h *PlayersHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireOwnResource(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PLAYERS_SERVICE_UNAVAILABLE", "players service is unavailable")
		return
	}

	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, playersvc.ErrPlayerNotFound) {
			writeNotFound(w, "PLAYER_NOT_FOUND", "player not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load balance")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BalanceResponse{
		UserID:        balance.TelegramID,
		Balance:       balance.Balance,
		LockedBalance: balance.LockedBalance,
	})
}

func (h *PlayersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireOwnResource(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PLAYERS_SERVICE_UNAVAILABLE", "players service is unavailable")
		return
	}

	stats, err := h.service.Stats(r.Context(), userID)
	if err != nil {
		if errors.Is(err, playersvc.ErrPlayerNotFound) {
			writeNotFound(w, "PLAYER_NOT_FOUND", "player not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load stats")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.StatsResponse{
		UserID:         stats.TelegramID,
		TotalGames:     stats.TotalGames,
		GamesWon:       stats.GamesWon,
		GamesLost:      stats.GamesLost,
		TotalWagered:   stats.TotalWagered,
		TotalWon:       stats.TotalWon,
		BestMultiplier: stats.BestMultiplier,
	})
}

func (h *PlayersHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PLAYERS_SERVICE_UNAVAILABLE", "players service is unavailable")
		return
	}

	players, err := h.service.Leaderboard(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load leaderboard")
		return
	}

	entries := make([]dto.LeaderboardEntryResponse, 0, len(players))
	for _, player := range players {
		entries = append(entries, dto.LeaderboardEntryResponse{
			Position:   player.Position,
			UserID:     player.TelegramID,
			Name:       player.Name,
			TotalWon:   player.TotalWon,
			TotalGames: player.TotalGames,
			GamesWon:   player.GamesWon,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.LeaderboardResponse{Players: entries})
}

func (h *PlayersHandler) Rank(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireOwnResource(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PLAYERS_SERVICE_UNAVAILABLE", "players service is unavailable")
		return
	}

	rank, err := h.service.Rank(r.Context(), userID)
	if err != nil {
		if errors.Is(err, playersvc.ErrPlayerNotFound) {
			writeNotFound(w, "PLAYER_NOT_FOUND", "player has no ranked games yet")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load player rank")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.PlayerRankResponse{UserID: userID, Rank: rank})
}

func (h *PlayersHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireOwnResource(w, r)
	if !ok {
		return
	}
	if h.service == nil {
		writeInternal(w, "PLAYERS_SERVICE_UNAVAILABLE", "players service is unavailable")
		return
	}

	txns, err := h.service.Transactions(r.Context(), userID,
		queryInt(r, "limit", 20), queryInt(r, "offset", 0))
	if err != nil {
		if errors.Is(err, playersvc.ErrPlayerNotFound) {
			writeNotFound(w, "PLAYER_NOT_FOUND", "player not found")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to load transactions")
		return
	}

	records := make([]dto.TransactionResponse, 0, len(txns))
	for _, txn := range txns {
		records = append(records, dto.TransactionResponse{
			ID:           txn.ID,
			Type:         txn.Type,
			Amount:       txn.Amount,
			BalanceAfter: txn.BalanceAfter,
			Status:       txn.Status,
			CreatedAt:    txn.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.TransactionsResponse{Transactions: records})
}

func (h *PlayersHandler) RecentCrashes(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "PLAYERS_SERVICE_UNAVAILABLE", "players service is unavailable")
		return
	}

	crashes, err := h.service.RecentCrashes(r.Context(), queryInt(r, "limit", 20))
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load recent crashes")
		return
	}

	records := make([]dto.CrashResponse, 0, len(crashes))
	for _, crash := range crashes {
		records = append(records, dto.CrashResponse{
			CrashPoint:  crash.CrashPoint,
			PlayerCount: crash.PlayerCount,
			PlayedAt:    crash.PlayedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.RecentCrashesResponse{Crashes: records})
}
