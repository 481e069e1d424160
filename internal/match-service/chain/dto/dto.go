// Package dto holds the wire types of the chain-simulator API.
package dto

type CreateMatchRequest struct {
	MatchID string `json:"matchId"`
	Creator string `json:"creator"`
}

type CreateMatchResponse struct {
	PoolAddress string `json:"pool_address"`
}

type JoinMatchRequest struct {
	MatchID  string `json:"matchId"`
	Opponent string `json:"opponent"`
}

type PlaceBetRequest struct {
	MatchID        string `json:"matchId"`
	Bettor         string `json:"bettor"`
	Side           string `json:"side"`
	AmountLamports int64  `json:"amount_lamports"`
}

type ReportResultRequest struct {
	MatchID string `json:"matchId"`
	Winner  string `json:"winner"`
}

type ClaimRequest struct {
	MatchID        string `json:"matchId"`
	Bettor         string `json:"bettor"`
	AmountLamports int64  `json:"amount_lamports"`
}

type RefundBetRequest struct {
	MatchID        string `json:"matchId"`
	Bettor         string `json:"bettor"`
	AmountLamports int64  `json:"amount_lamports"`
}

type TxResponse struct {
	TxSignature string `json:"tx_signature"`
	Status      string `json:"status"`
}

type ConfirmBetRequest struct {
	BetID          string `json:"betId"`
	MatchID        string `json:"matchId"`
	Bettor         string `json:"bettor"`
	AmountLamports int64  `json:"amount_lamports"`
}

type ConfirmBetResponse struct {
	Status      string `json:"status"` // CONFIRMED | REJECTED
	TxSignature string `json:"tx_signature"`
	Reason      string `json:"reason,omitempty"`
}
