package dto

import "time"

type CheckSubscriptionRequest struct {
	ChannelID string `json:"channel_id"`
}

type CheckSubscriptionResponse struct {
	ChannelID   string    `json:"channel_id"`
	BonusAmount float64   `json:"bonus_amount"`
	NewBalance  float64   `json:"new_balance"`
	ClaimedAt   time.Time `json:"claimed_at"`
}

type ChannelBonusResponse struct {
	ChannelID   string    `json:"channel_id"`
	BonusAmount float64   `json:"bonus_amount"`
	ClaimedAt   time.Time `json:"claimed_at"`
}

type ChannelBonusesResponse struct {
	Bonuses []ChannelBonusResponse `json:"bonuses"`
}
