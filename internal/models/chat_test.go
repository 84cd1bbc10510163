package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1:2", PairKey(1, 2))
	assert.Equal(t, "1:2", PairKey(2, 1))
	assert.Equal(t, "7:7", PairKey(7, 7))
}

func TestChat_OtherAndHas(t *testing.T) {
	t.Parallel()

	chat := &Chat{ParticipantA: 3, ParticipantB: 9}
	assert.Equal(t, uint(9), chat.Other(3))
	assert.Equal(t, uint(3), chat.Other(9))
	assert.True(t, chat.Has(3))
	assert.True(t, chat.Has(9))
	assert.False(t, chat.Has(4))
}
