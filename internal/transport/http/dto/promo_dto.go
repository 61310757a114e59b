package dto

import "time"

type UsePromoCodeRequest struct {
	PromoCode string `json:"promo_code"`
}

type UsePromoCodeResponse struct {
	Code                  string   `json:"code"`
	BalanceGranted        float64  `json:"balance_granted"`
	WithdrawalRequirement *float64 `json:"withdrawal_requirement,omitempty"`
	NewBalance            float64  `json:"new_balance"`
}

type PromoUseResponse struct {
	Code           string    `json:"code"`
	BalanceGranted float64   `json:"balance_granted"`
	UsedAt         time.Time `json:"used_at"`
}

type PromoHistoryResponse struct {
	Uses []PromoUseResponse `json:"uses"`
}
