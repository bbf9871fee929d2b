package gcal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateSigner_RoundTrip(t *testing.T) {
	s := NewStateSigner("secret")
	state, err := s.Sign(42)
	require.NoError(t, err)

	id, err := s.Verify(state)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestStateSigner_Rejects(t *testing.T) {
	s := NewStateSigner("secret")
	state, err := s.Sign(7)
	require.NoError(t, err)

	_, err = NewStateSigner("other").Verify(state)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = s.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidState)

	later := NewStateSigner("secret")
	later.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	_, err = later.Verify(state)
	assert.ErrorIs(t, err, ErrInvalidState)
}
