package events

// Event published on the "match_created" topic.
type MatchCreated struct {
	MatchID     string `json:"match_id"`
	Creator     string `json:"creator"`
	PoolAddress string `json:"pool_address,omitempty"`
	TsUnixMs    int64  `json:"ts_unix_ms"`
}
