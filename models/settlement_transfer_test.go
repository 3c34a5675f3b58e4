package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransferParty(t *testing.T) {
	t.Run("bank party", func(t *testing.T) {
		bank := BankParty()
		assert.True(t, bank.IsBank())
		assert.Nil(t, bank.PlayerID())
		assert.Empty(t, bank.Name())
	})

	t.Run("player party", func(t *testing.T) {
		alice := PlayerParty(7, "Alice")
		assert.False(t, alice.IsBank())
		require.NotNil(t, alice.PlayerID())
		assert.Equal(t, int64(7), *alice.PlayerID())
		assert.Equal(t, "Alice", alice.Name())
	})

	t.Run("player id is a copy", func(t *testing.T) {
		p := PlayerParty(3, "Ben")
		first := p.PlayerID()
		*first = 99
		assert.Equal(t, int64(3), *p.PlayerID())
	})
}
