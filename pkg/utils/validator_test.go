package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("alice@acme.io"))
	assert.Error(t, ValidateEmail("alice"))
	assert.Error(t, ValidateEmail("alice@acme"))
}

func TestValidateCurrencyCode(t *testing.T) {
	tests := []struct {
		code    string
		wantErr bool
	}{
		{"USD", false},
		{"usd", true},
		{"US", true},
		{"USDX", true},
		{"U$D", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := ValidateCurrencyCode(tt.code)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
	assert.NoError(t, ValidateCurrencyCode(NormalizeCurrency(" eur ")))
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(0.01))
	assert.NoError(t, ValidateAmount(250000))
	assert.Error(t, ValidateAmount(0))
	assert.Error(t, ValidateAmount(-5))
	assert.Error(t, ValidateAmount(math.NaN()))
	assert.Error(t, ValidateAmount(math.Inf(1)))
	assert.Error(t, ValidateAmount(math.Inf(-1)))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "line one\nline\ttwo", SanitizeString("line one\n\x00line\ttwo\x7f"))
}
