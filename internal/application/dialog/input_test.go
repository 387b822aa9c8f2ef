package dialog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stroyrent/rentbot/internal/domain/fault"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"89930057019", "+79930057019"},
		{"79930057019", "+79930057019"},
		{"9930057019", "+79930057019"},
		{"+7 (993) 005-70-19", "+79930057019"},
		{"8 993 005 70 19", "+79930057019"},
		{"779930057019", "+779930057019"},
	}
	for _, tt := range tests {
		got, err := NormalizePhone(tt.in)
		assert.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizePhone_Rejected(t *testing.T) {
	for _, in := range []string{"123", "", "abcdef", "12345678901234", "59930057019"} {
		_, err := NormalizePhone(in)
		assert.True(t, fault.IsValidation(err), in)
	}
}

func TestValidateAddress(t *testing.T) {
	addr, err := ValidateAddress("  Москва, ул. Ленина, д. 5  ")
	assert.NoError(t, err)
	assert.Equal(t, "Москва, ул. Ленина, д. 5", addr)

	for _, in := range []string{"Москва", "Москва, Ленина", "Москва, Ленина, дом"} {
		_, err := ValidateAddress(in)
		assert.True(t, fault.IsValidation(err), in)
	}
}
