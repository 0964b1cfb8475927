package checkout

import (
	"testing"

	"boipoka/internal/commerce"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	t.Run("ForwardOnly", func(t *testing.T) {
		assert.True(t, CanTransition(StatusAwaitingSelection, StatusInitiating))
		assert.True(t, CanTransition(StatusInitiating, StatusMethodInProgress))
		assert.True(t, CanTransition(StatusMethodInProgress, StatusVerifying))
		assert.True(t, CanTransition(StatusVerifying, StatusSucceeded))

		assert.False(t, CanTransition(StatusVerifying, StatusMethodInProgress))
		assert.False(t, CanTransition(StatusMethodInProgress, StatusInitiating))
		assert.False(t, CanTransition(StatusInitiating, StatusAwaitingSelection))
	})

	t.Run("TerminalStatesAreDeadEnds", func(t *testing.T) {
		for _, from := range []Status{StatusSucceeded, StatusFailed, StatusCancelled} {
			for _, to := range []Status{
				StatusIdle, StatusAwaitingSelection, StatusInitiating,
				StatusMethodInProgress, StatusVerifying, StatusFallbackRequired,
				StatusSucceeded, StatusFailed, StatusCancelled,
			} {
				assert.False(t, CanTransition(from, to), "%s -> %s must be rejected", from, to)
			}
		}
	})

	t.Run("FallbackResumesIntoVerifying", func(t *testing.T) {
		assert.True(t, CanTransition(StatusInitiating, StatusFallbackRequired))
		assert.True(t, CanTransition(StatusMethodInProgress, StatusFallbackRequired))
		assert.True(t, CanTransition(StatusFallbackRequired, StatusVerifying))
		assert.True(t, CanTransition(StatusFallbackRequired, StatusCancelled))
		assert.False(t, CanTransition(StatusFallbackRequired, StatusMethodInProgress))
	})

	t.Run("VerifyingCannotBeCancelled", func(t *testing.T) {
		// Once a proof is being consumed the outcome is whatever the
		// verifier says; the user can no longer abandon the attempt.
		assert.False(t, CanTransition(StatusVerifying, StatusCancelled))
	})
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())

	assert.False(t, StatusAwaitingSelection.Terminal())
	assert.False(t, StatusVerifying.Terminal())
	assert.False(t, StatusFallbackRequired.Terminal())
}

func TestNewSession(t *testing.T) {
	items := []commerce.Item{{ProductID: 1, Quantity: 2}}
	sess := NewSession(7, items, commerce.KindBook, commerce.MethodPaypal)

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, StatusAwaitingSelection, sess.Status)
	assert.Equal(t, int64(7), sess.UserID)
	assert.Empty(t, sess.TransactionID)

	other := NewSession(7, items, commerce.KindBook, commerce.MethodPaypal)
	assert.NotEqual(t, sess.ID, other.ID)
}
