package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"type":"payment.completed","data":{"reference":"PMT123"}}`)
	secret := "whsec_test"

	sig := Sign(payload, secret)
	assert.Len(t, sig, 64)
	assert.True(t, VerifySignature(payload, sig, secret))

	t.Run("tampered payload", func(t *testing.T) {
		tampered := append([]byte(nil), payload...)
		tampered[10] ^= 0x01
		assert.False(t, VerifySignature(tampered, sig, secret))
	})

	t.Run("wrong secret", func(t *testing.T) {
		assert.False(t, VerifySignature(payload, sig, "other"))
	})

	t.Run("garbage signature", func(t *testing.T) {
		assert.False(t, VerifySignature(payload, "abc", secret))
		assert.False(t, VerifySignature(payload, "", secret))
	})
}
