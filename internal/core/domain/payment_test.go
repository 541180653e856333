package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayment_StatusGuards(t *testing.T) {
	tests := []struct {
		status         PaymentStatus
		terminal       bool
		canSelectToken bool
		canExecute     bool
		canFail        bool
	}{
		{PaymentStatusPending, false, true, true, true},
		{PaymentStatusProcessing, false, false, false, true},
		{PaymentStatusCompleted, true, false, false, false},
		{PaymentStatusFailed, true, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			p := &Payment{Status: tt.status}
			assert.Equal(t, tt.terminal, p.IsTerminal())
			assert.Equal(t, tt.canSelectToken, p.CanSelectToken())
			assert.Equal(t, tt.canExecute, p.CanExecute())
			assert.Equal(t, tt.canFail, p.CanFail())
		})
	}
}

func TestIsWalletAddress(t *testing.T) {
	valid := []string{
		"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		"So11111111111111111111111111111111111111112",
		"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM",
	}
	for _, addr := range valid {
		assert.True(t, IsWalletAddress(addr), addr)
	}

	invalid := []string{
		"",
		"short",
		"0OIl000000000000000000000000000000000000000",   // forbidden base58 chars
		"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v!", // punctuation
	}
	for _, addr := range invalid {
		assert.False(t, IsWalletAddress(addr), addr)
	}
}
