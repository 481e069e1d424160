package events

// Event published on the "bet_placed" topic after a stake is recorded.
type BetPlaced struct {
	BetID          string `json:"bet_id"`
	MatchID        string `json:"match_id"`
	Bettor         string `json:"bettor"`
	Side           string `json:"side"` // "player1" | "player2"
	AmountLamports int64  `json:"amount_lamports"`
	TxSignature    string `json:"tx_signature,omitempty"`
	TsUnixMs       int64  `json:"ts_unix_ms"`
}
