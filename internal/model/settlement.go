package model

// Warning is a typed best-effort outcome: a settlement step that
// failed without aborting the settlement.
type Warning struct {
	Step   string `json:"step"`
	Reason string `json:"reason"`
}

// SettlementResult is returned by the orchestrator. Replayed is true
// when the transaction was already settled and the prior outcome was
// returned.
type SettlementResult struct {
	Transaction  *Transaction        `json:"transaction"`
	Distribution *DistributionResult `json:"distribution,omitempty"`
	Activation   *ActivationResult   `json:"activation,omitempty"`
	Replayed     bool                `json:"replayed"`
	Warnings     []Warning           `json:"warnings,omitempty"`
}

func (r *SettlementResult) Warn(step string, err error) {
	r.Warnings = append(r.Warnings, Warning{Step: step, Reason: err.Error()})
}

// Event types published to the notification stream.
const (
	EventPaymentConfirmed = "payment.confirmed"
	EventPayoutCompleted  = "payout.completed"
	EventPayoutFailed     = "payout.failed"
)

// Event is a fire-and-forget notification published after a state
// transition is durably recorded.
type Event struct {
	Type          string `json:"type"`
	UserID        int64  `json:"user_id"`
	TransactionID int64  `json:"transaction_id,omitempty"`
	PayoutID      int64  `json:"payout_id,omitempty"`
	Amount        int64  `json:"amount"`
	Reference     string `json:"reference,omitempty"`
}
