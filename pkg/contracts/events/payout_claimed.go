package events

// Event published on the "payout_claimed" topic after a winning bettor
// collects their share of the pool.
type PayoutClaimed struct {
	MatchID        string `json:"match_id"`
	BetID          string `json:"bet_id"`
	Bettor         string `json:"bettor"`
	AmountLamports int64  `json:"amount_lamports"`
	TxSignature    string `json:"tx_signature,omitempty"`
	TsUnixMs       int64  `json:"ts_unix_ms"`
}
