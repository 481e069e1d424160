package dto

import "github.com/go-playground/validator/v10"

var validate = validator.New()

type CreateMatchRequest struct {
	Creator  string `json:"creator" validate:"required"`
	Metadata string `json:"metadata"`
}

func (r *CreateMatchRequest) Validate() error { return validate.Struct(r) }

type JoinMatchRequest struct {
	Opponent string `json:"opponent" validate:"required"`
}

func (r *JoinMatchRequest) Validate() error { return validate.Struct(r) }

type MoveRequest struct {
	Player   string `json:"player" validate:"required"`
	Position int    `json:"position" validate:"gte=0,lte=8"`
}

func (r *MoveRequest) Validate() error { return validate.Struct(r) }

type PlaceBetRequest struct {
	Bettor         string `json:"bettor" validate:"required"`
	Side           string `json:"side" validate:"required,oneof=player1 player2"`
	AmountLamports int64  `json:"amount_lamports" validate:"required,gt=0"`
}

func (r *PlaceBetRequest) Validate() error { return validate.Struct(r) }

type ReportResultRequest struct {
	Reporter string `json:"reporter" validate:"required"`
	Winner   string `json:"winner" validate:"required,oneof=player1 player2 draw"`
}

func (r *ReportResultRequest) Validate() error { return validate.Struct(r) }

type ClaimRequest struct {
	Bettor string `json:"bettor" validate:"required"`
}

func (r *ClaimRequest) Validate() error { return validate.Struct(r) }

type CancelRequest struct {
	Requester string `json:"requester" validate:"required"`
}

func (r *CancelRequest) Validate() error { return validate.Struct(r) }
