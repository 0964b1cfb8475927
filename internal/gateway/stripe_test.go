package gateway

import (
	"context"
	"errors"
	"testing"

	"boipoka/internal/commerce"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v82"
)

type fakeIntents struct {
	gotID     string
	gotParams *stripe.PaymentIntentConfirmParams
	intent    *stripe.PaymentIntent
	err       error
}

func (f *fakeIntents) Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error) {
	f.gotID = id
	f.gotParams = params
	return f.intent, f.err
}

func TestStripeAdapter_Begin(t *testing.T) {
	a := &StripeAdapter{}

	t.Run("NeedsClientSecret", func(t *testing.T) {
		_, err := a.Begin(context.Background(), BeginRequest{TransactionID: "BOI-1"})
		assert.Error(t, err)
	})

	t.Run("MountsElement", func(t *testing.T) {
		handoff, err := a.Begin(context.Background(), BeginRequest{
			TransactionID: "BOI-1",
			ClientSecret:  "pi_123_secret_456",
			Config:        commerce.MethodConfig{PublicKey: "pk_test_1"},
		})
		require.NoError(t, err)
		assert.Equal(t, HandoffClientSDK, handoff.Mode)
		assert.Equal(t, "pk_test_1", handoff.Fields["public_key"])
		assert.Equal(t, "pi_123_secret_456", handoff.Fields["client_secret"])
	})
}

func TestStripeAdapter_Confirm(t *testing.T) {
	req := BeginRequest{
		TransactionID: "BOI-1",
		ClientSecret:  "pi_123_secret_456",
		ClientFields:  map[string]string{"payment_method": "pm_card_visa"},
	}

	t.Run("Succeeded", func(t *testing.T) {
		intents := &fakeIntents{intent: &stripe.PaymentIntent{
			ID:     "pi_123",
			Status: stripe.PaymentIntentStatusSucceeded,
		}}
		a := &StripeAdapter{intents: intents}

		ev := a.Confirm(context.Background(), req)
		assert.Equal(t, OutcomeProof, ev.Outcome)
		assert.Equal(t, commerce.Proof{"payment_intent_id": "pi_123"}, ev.Proof)

		assert.Equal(t, "pi_123", intents.gotID)
		require.NotNil(t, intents.gotParams.PaymentMethod)
		assert.Equal(t, "pm_card_visa", *intents.gotParams.PaymentMethod)
	})

	t.Run("ProcessingCountsAsProof", func(t *testing.T) {
		a := &StripeAdapter{intents: &fakeIntents{intent: &stripe.PaymentIntent{
			ID:     "pi_123",
			Status: stripe.PaymentIntentStatusProcessing,
		}}}

		ev := a.Confirm(context.Background(), req)
		assert.Equal(t, OutcomeProof, ev.Outcome)
	})

	t.Run("CardDeclined", func(t *testing.T) {
		a := &StripeAdapter{intents: &fakeIntents{err: &stripe.Error{
			Code: stripe.ErrorCodeCardDeclined,
			Msg:  "Your card was declined.",
		}}}

		ev := a.Confirm(context.Background(), req)
		assert.Equal(t, OutcomeDeclined, ev.Outcome)
		assert.Contains(t, ev.Reason, "card_declined")
	})

	t.Run("TransportError", func(t *testing.T) {
		a := &StripeAdapter{intents: &fakeIntents{err: errors.New("connection reset")}}

		ev := a.Confirm(context.Background(), req)
		assert.Equal(t, OutcomeError, ev.Outcome)
	})

	t.Run("RequiresActionIsDecline", func(t *testing.T) {
		a := &StripeAdapter{intents: &fakeIntents{intent: &stripe.PaymentIntent{
			ID:     "pi_123",
			Status: stripe.PaymentIntentStatusRequiresAction,
		}}}

		ev := a.Confirm(context.Background(), req)
		assert.Equal(t, OutcomeDeclined, ev.Outcome)
	})

	t.Run("MalformedClientSecret", func(t *testing.T) {
		a := &StripeAdapter{intents: &fakeIntents{}}

		ev := a.Confirm(context.Background(), BeginRequest{TransactionID: "BOI-1", ClientSecret: "garbage"})
		assert.Equal(t, OutcomeError, ev.Outcome)
	})
}

func TestIntentIDFromClientSecret(t *testing.T) {
	assert.Equal(t, "pi_123", intentIDFromClientSecret("pi_123_secret_456"))
	assert.Equal(t, "", intentIDFromClientSecret("garbage"))
	assert.Equal(t, "", intentIDFromClientSecret("_secret_x"))
}
