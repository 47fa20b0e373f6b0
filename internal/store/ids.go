package store

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomBase36(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(base36[rand.Intn(len(base36))])
	}
	return b.String()
}

// newOrderNumber is replaced in tests to force collisions.
var newOrderNumber = func() string {
	return FormatOrderNumber(time.Now(), randomBase36(6))
}

// FormatOrderNumber renders SJ<epoch millis>-<suffix> with the suffix uppercased.
func FormatOrderNumber(now time.Time, suffix string) string {
	return fmt.Sprintf("SJ%d-%s", now.UnixMilli(), strings.ToUpper(suffix))
}

// NewTransactionID renders TXN_<epoch millis>_<9 base36 chars>.
func NewTransactionID() string {
	return fmt.Sprintf("TXN_%d_%s", time.Now().UnixMilli(), randomBase36(9))
}
