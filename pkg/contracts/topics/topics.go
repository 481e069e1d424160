package topics

const (
	// Matches
	MatchCreated  = "match_created"
	MatchFinished = "match_finished"

	// Bets
	BetPlaced     = "bet_placed"
	BetConfirmed  = "bet_confirmed"
	PayoutClaimed = "payout_claimed"

	// DLQs
	BetPlacedDLQ = "bet_placed_dlq"
)
