package redisx

import (
	"fmt"
	"time"
)

const (
	// Idempotent appointment creation: idem:appointment:create:{idempotency_key} -> Record JSON
	KeyIdemAppointmentCreate = "idem:appointment:create:%s"

	// Fixed-window rate limit counters: rl:{client}
	PrefixRateLimit = "rl"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLPending     = 30 * time.Second
)

func IdemCreateKey(idempotencyKey string) string {
	return fmt.Sprintf(KeyIdemAppointmentCreate, idempotencyKey)
}
