package notifications

import (
	"context"
	"errors"
	"fmt"

	"boipoka/internal/domain/pushtokens"

	"github.com/9ssi7/exponent"
)

type PaymentEvent string

const (
	PaymentSucceeded PaymentEvent = "SUCCEEDED"
	PaymentFailed    PaymentEvent = "FAILED"
	PaymentCancelled PaymentEvent = "CANCELLED"
)

// SendPaymentNotification pushes a terminal payment outcome to all of the
// buyer's devices. Best-effort: callers log errors and move on; a lost push
// never changes a session outcome.
func SendPaymentNotification(ctx context.Context, push PushSender, tokens pushtokens.Store, userID int64, event PaymentEvent, transactionRef string) error {
	userTokens, err := tokens.GetTokensByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if len(userTokens) == 0 {
		return errors.New("no push tokens")
	}

	var title, body string
	switch event {
	case PaymentSucceeded:
		title = "Payment Successful"
		body = fmt.Sprintf("Your payment (ref: %s) went through. Happy reading! 📚", transactionRef)
	case PaymentFailed:
		title = "Payment Failed"
		body = fmt.Sprintf("Your payment (ref: %s) did not complete. You can try again from checkout.", transactionRef)
	case PaymentCancelled:
		title = "Payment Cancelled"
		body = fmt.Sprintf("Your payment (ref: %s) was cancelled.", transactionRef)
	default:
		title = "Payment Update"
		body = fmt.Sprintf("Your payment (ref: %s) has an update.", transactionRef)
	}

	msgs := make([]*exponent.Message, 0, len(userTokens))
	for _, t := range userTokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
			Data: map[string]string{
				"type":   "payment",
				"event":  string(event),
				"ref":    transactionRef,
				"screen": "orders-screen",
			},
		})
	}

	_, err = push.Publish(ctx, msgs)
	return err
}
