package mailer

import "embed"

const (
	FromName               = "Boipoka"
	maxRetries             = 3
	PaymentReceiptTemplate = "payment_receipt.tmpl"
	PaymentFailedTemplate  = "payment_failed.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
