package dto

type CreateMatchReq struct {
	MatchID string `json:"matchId"`
	Creator string `json:"creator"`
}

type CreateMatchResp struct {
	PoolAddress string `json:"pool_address"`
}

type JoinMatchReq struct {
	MatchID  string `json:"matchId"`
	Opponent string `json:"opponent"`
}

type PlaceBetReq struct {
	MatchID        string `json:"matchId"`
	Bettor         string `json:"bettor"`
	Side           string `json:"side"`
	AmountLamports int64  `json:"amount_lamports"`
}

type ReportResultReq struct {
	MatchID string `json:"matchId"`
	Winner  string `json:"winner"`
}

type ClaimReq struct {
	MatchID        string `json:"matchId"`
	Bettor         string `json:"bettor"`
	AmountLamports int64  `json:"amount_lamports"`
}

type RefundBetReq struct {
	MatchID        string `json:"matchId"`
	Bettor         string `json:"bettor"`
	AmountLamports int64  `json:"amount_lamports"`
}

type ConfirmBetReq struct {
	BetID          string `json:"betId"`
	MatchID        string `json:"matchId"`
	Bettor         string `json:"bettor"`
	AmountLamports int64  `json:"amount_lamports"`
}

type ConfirmBetResp struct {
	Status      string `json:"status"` // CONFIRMED | REJECTED
	TxSignature string `json:"tx_signature"`
	Reason      string `json:"reason,omitempty"`
}

type TxResp struct {
	TxSignature string `json:"tx_signature"`
	Status      string `json:"status"`
}

const (
	StatusConfirmed = "CONFIRMED"
	StatusRejected  = "REJECTED"
)
