package redisclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "stock:A-1", stockKey("A-1"))
	assert.Equal(t, "idempotency:sale:abc", idempotencyKey("abc"))
	assert.Equal(t, "lock:idempotency:sale:abc", lockKey(idempotencyKey("abc")))
}

func TestNewClientUnreachable(t *testing.T) {
	_, err := NewClient("127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
