package address

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var checksummed = []string{
	"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
	"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
	"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
}

func TestNormalizeProducesChecksum(t *testing.T) {
	for _, want := range checksummed {
		got, err := Normalize(strings.ToLower(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)

		got, err = Normalize("0x" + strings.ToUpper(want[2:]))
		require.NoError(t, err)
		assert.Equal(t, want, got)

		got, err = Normalize(want)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestNormalizeRejectsBadChecksum(t *testing.T) {
	bad := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAeD"
	_, err := Normalize(bad)
	assert.True(t, errors.Is(err, rules.ErrInvalidPlayer))
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0x1234",
		"0xZZAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	} {
		assert.False(t, IsValid(in), in)
	}
}

func TestMustNormalizePanics(t *testing.T) {
	assert.Panics(t, func() { MustNormalize("bogus") })
}
