package ws

// ClientMsg is a message received from a websocket client.
// Type: subscribe | unsubscribe | ping
// MatchID: required for subscribe/unsubscribe
type ClientMsg struct {
	Type    string `json:"type"`
	MatchID string `json:"matchId"`
}

// MatchUpdate is a match snapshot pushed to subscribed clients.
type MatchUpdate struct {
	MatchID string      `json:"matchId"`
	Payload interface{} `json:"payload"`
}
