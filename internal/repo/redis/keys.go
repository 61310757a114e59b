package redis

import "fmt"

const (
	balanceHashKey = "user_balances"
	invoicePrefix  = "payment:"
	lockPrefix     = "lock:"
	ratePrefix     = "rate:"
)

func invoiceKey(payload string) string {
	return invoicePrefix + payload
}

func lockKey(name string) string {
	return lockPrefix + name
}

func rateKey(bucket string, userID int64) string {
	return fmt.Sprintf("%s%s:%d", ratePrefix, bucket, userID)
}
