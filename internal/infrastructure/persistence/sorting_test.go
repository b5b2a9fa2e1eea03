package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderDirection(t *testing.T) {
	tests := map[string]string{
		"":                         "DESC",
		"asc":                      "ASC",
		"  ASC ":                   "ASC",
		"desc":                     "DESC",
		"ascending":                "DESC",
		"ASC; DROP TABLE units;--": "DESC",
	}
	for in, want := range tests {
		assert.Equal(t, want, orderDirection(in), "input %q", in)
	}
}

func TestTransactionSort(t *testing.T) {
	t.Run("maps public keys to columns", func(t *testing.T) {
		assert.Equal(t, "payment_method", transactionSort.column("method", "created_at"))
		assert.Equal(t, "amount", transactionSort.column(" amount ", "created_at"))
	})

	t.Run("unknown keys fall back", func(t *testing.T) {
		assert.Equal(t, "created_at", transactionSort.column("", "created_at"))
		assert.Equal(t, "created_at", transactionSort.column("unit_id", "created_at"))
		assert.Equal(t, "created_at", transactionSort.column("amount desc", "created_at"))
	})

	t.Run("orders ties by id in the same direction", func(t *testing.T) {
		assert.Equal(t, []string{"paid_at ASC", "id ASC"}, transactionSort.orderBy("paid_at", "asc", "created_at"))
		assert.Equal(t, []string{"created_at DESC", "id DESC"}, transactionSort.orderBy("bogus", "", "created_at"))
	})
}
