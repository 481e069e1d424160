package events

import "time"

// Event emitted by the settlement-worker after the chain authority
// reports finality for a placed bet.
type BetConfirmed struct {
	BetID       string    `json:"betId"`
	MatchID     string    `json:"matchId"`
	Status      string    `json:"status"` // "CONFIRMED" | "REJECTED"
	Reason      string    `json:"reason,omitempty"`
	TxSignature string    `json:"txSignature,omitempty"`
	Ts          time.Time `json:"ts"`
}
