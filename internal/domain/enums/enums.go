package enums

type TransactionType string

const (
	TransactionTypeDeposit        TransactionType = "deposit"
	TransactionTypeWithdrawal     TransactionType = "withdrawal"
	TransactionTypeGameWin        TransactionType = "game_win"
	TransactionTypeGameLoss       TransactionType = "game_loss"
	TransactionTypeGiftPurchase   TransactionType = "gift_purchase"
	TransactionTypePromoCodeBonus TransactionType = "promo_code_bonus"
	TransactionTypeChannelBonus   TransactionType = "channel_bonus"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusRefunded  TransactionStatus = "refunded"
)

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusExpired   InvoiceStatus = "expired"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeGameWin, TransactionTypeGameLoss,
		TransactionTypeGiftPurchase, TransactionTypePromoCodeBonus, TransactionTypeChannelBonus:
		return true
	}
	return false
}

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusCompleted, TransactionStatusFailed, TransactionStatusRefunded:
		return true
	}
	return false
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusPending, InvoiceStatusPaid, InvoiceStatusExpired, InvoiceStatusCancelled:
		return true
	}
	return false
}
