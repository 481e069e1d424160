// Package chain provides the two match.Authority implementations: an
// HTTP client for the chain-simulator service and an in-process mock
// for tests and standalone runs.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Akhil-Rawat/Plexo/internal/game"
	chaindto "github.com/Akhil-Rawat/Plexo/internal/match-service/chain/dto"
)

// Client talks to the chain-simulator over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(base string) *Client {
	return &Client{
		BaseURL: base,
		HTTP:    &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *Client) CreateMatch(ctx context.Context, matchID, creator string) (string, error) {
	var out chaindto.CreateMatchResponse
	err := c.post(ctx, "/chain/create_match",
		chaindto.CreateMatchRequest{MatchID: matchID, Creator: creator}, &out)
	if err != nil {
		return "", err
	}
	return out.PoolAddress, nil
}

func (c *Client) JoinMatch(ctx context.Context, matchID, opponent string) error {
	return c.post(ctx, "/chain/join_match",
		chaindto.JoinMatchRequest{MatchID: matchID, Opponent: opponent}, nil)
}

func (c *Client) PlaceBet(ctx context.Context, matchID, bettor string, side game.Side, amount int64) (string, error) {
	var out chaindto.TxResponse
	err := c.post(ctx, "/chain/place_bet", chaindto.PlaceBetRequest{
		MatchID:        matchID,
		Bettor:         bettor,
		Side:           string(side),
		AmountLamports: amount,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.TxSignature, nil
}

func (c *Client) ReportResult(ctx context.Context, matchID string, winner game.Outcome) error {
	return c.post(ctx, "/chain/report_result",
		chaindto.ReportResultRequest{MatchID: matchID, Winner: string(winner)}, nil)
}

func (c *Client) Claim(ctx context.Context, matchID, bettor string, amount int64) (string, error) {
	var out chaindto.TxResponse
	err := c.post(ctx, "/chain/claim", chaindto.ClaimRequest{
		MatchID:        matchID,
		Bettor:         bettor,
		AmountLamports: amount,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.TxSignature, nil
}

func (c *Client) Refund(ctx context.Context, matchID, bettor string, amount int64) (string, error) {
	var out chaindto.TxResponse
	err := c.post(ctx, "/chain/refund_bet", chaindto.RefundBetRequest{
		MatchID:        matchID,
		Bettor:         bettor,
		AmountLamports: amount,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.TxSignature, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, _ := json.Marshal(in)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode >= 300 {
		return fmt.Errorf("chain %s http %d", path, res.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
