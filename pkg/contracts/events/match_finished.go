package events

// Event published on the "match_finished" topic once an outcome is fixed.
// Pool totals are the frozen settlement snapshot every payout is computed
// against.
type MatchFinished struct {
	MatchID      string `json:"match_id"`
	Winner       string `json:"winner"` // "player1" | "player2" | "draw"
	PoolSideA    int64  `json:"pool_side_a"`
	PoolSideB    int64  `json:"pool_side_b"`
	TotalPool    int64  `json:"total_pool"`
	MoveDerived  bool   `json:"move_derived"` // true when the win detector ended the game
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
