package gateway

import (
	"context"

	"boipoka/internal/commerce"
)

// CODAdapter handles cash on delivery: there is no provider interaction, so
// the attempt is terminal the moment it begins and verification runs
// against an empty proof.
type CODAdapter struct{}

func NewCODAdapter() *CODAdapter { return &CODAdapter{} }

func (a *CODAdapter) Method() commerce.Method { return commerce.MethodCOD }

func (a *CODAdapter) Begin(ctx context.Context, req BeginRequest) (*Handoff, error) {
	return &Handoff{
		Mode: HandoffNone,
		Event: &Event{
			Method:        commerce.MethodCOD,
			TransactionID: req.TransactionID,
			Outcome:       OutcomeProof,
			Proof:         commerce.Proof{},
		},
	}, nil
}
