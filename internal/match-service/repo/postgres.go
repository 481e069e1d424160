// Package repo persists matches and bets in Postgres, implementing
// match.Store for the match-service.
package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Akhil-Rawat/Plexo/internal/game"
	"github.com/Akhil-Rawat/Plexo/internal/match"
)

type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// EnsureSchema creates the tables on startup. Good enough for a poc;
// a real deployment would run versioned migrations instead.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS matches (
			id            TEXT PRIMARY KEY,
			creator       TEXT NOT NULL,
			opponent      TEXT,
			status        TEXT NOT NULL,
			pool_player1  BIGINT NOT NULL DEFAULT 0,
			pool_player2  BIGINT NOT NULL DEFAULT 0,
			total_pool    BIGINT NOT NULL DEFAULT 0,
			lock_time     TIMESTAMPTZ,
			winner        TEXT,
			winning_line  TEXT,
			pool_address  TEXT NOT NULL,
			metadata      TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS moves (
			match_id  TEXT NOT NULL REFERENCES matches(id),
			idx       INT NOT NULL,
			side      TEXT NOT NULL,
			position  INT NOT NULL,
			ts        TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (match_id, idx)
		);
		CREATE TABLE IF NOT EXISTS bets (
			id               TEXT PRIMARY KEY,
			match_id         TEXT NOT NULL REFERENCES matches(id),
			bettor           TEXT NOT NULL,
			side             TEXT NOT NULL,
			amount_lamports  BIGINT NOT NULL,
			status           TEXT NOT NULL,
			status_reason    TEXT NOT NULL DEFAULT '',
			claimed          BOOLEAN NOT NULL DEFAULT FALSE,
			payout_lamports  BIGINT,
			tx_signature     TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL,
			updated_at       TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS bets_match_idx ON bets(match_id);
		CREATE INDEX IF NOT EXISTS bets_bettor_idx ON bets(bettor);
	`)
	return err
}

func (p *Postgres) CreateMatch(ctx context.Context, m *match.Match) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO matches (id,creator,opponent,status,pool_player1,pool_player2,total_pool,
			lock_time,winner,winning_line,pool_address,metadata,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		m.ID, m.Creator, m.Opponent, m.Status,
		m.Pool.SideA, m.Pool.SideB, m.Pool.Total,
		m.LockTime, winnerCol(m.Winner), lineCol(m.WinningLine),
		m.PoolAddress, m.Metadata, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

func (p *Postgres) GetMatch(ctx context.Context, id string) (*match.Match, error) {
	m, err := p.scanMatch(p.db.QueryRowContext(ctx, `
		SELECT id,creator,opponent,status,pool_player1,pool_player2,total_pool,
			lock_time,winner,winning_line,pool_address,metadata,created_at,updated_at
		FROM matches WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", match.ErrMatchNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT side, position, idx, ts FROM moves WHERE match_id=$1 ORDER BY idx`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r match.MoveRecord
		if err := rows.Scan(&r.Side, &r.Position, &r.Index, &r.Timestamp); err != nil {
			return nil, err
		}
		m.Moves = append(m.Moves, r)
	}
	return m, rows.Err()
}

// UpdateMatch rewrites the match row and appends any moves past the
// ones already stored. Moves are immutable once written.
func (p *Postgres) UpdateMatch(ctx context.Context, m *match.Match) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE matches SET opponent=$2, status=$3,
			pool_player1=$4, pool_player2=$5, total_pool=$6,
			lock_time=$7, winner=$8, winning_line=$9, updated_at=$10
		WHERE id=$1`,
		m.ID, m.Opponent, m.Status,
		m.Pool.SideA, m.Pool.SideB, m.Pool.Total,
		m.LockTime, winnerCol(m.Winner), lineCol(m.WinningLine), m.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", match.ErrMatchNotFound, m.ID)
	}

	for _, r := range m.Moves {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO moves (match_id, idx, side, position, ts)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (match_id, idx) DO NOTHING`,
			m.ID, r.Index, r.Side, r.Position, r.Timestamp); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (p *Postgres) ListMatches(ctx context.Context, f match.Filter) ([]*match.Match, error) {
	q := `
		SELECT id,creator,opponent,status,pool_player1,pool_player2,total_pool,
			lock_time,winner,winning_line,pool_address,metadata,created_at,updated_at
		FROM matches`
	args := []any{}
	if f.Status != "" {
		q += ` WHERE status=$1`
		args = append(args, f.Status)
	}
	q += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*match.Match
	for rows.Next() {
		m, err := p.scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	// Listing skips move histories; fetch a single match for those.
	return out, rows.Err()
}

func (p *Postgres) CreateBet(ctx context.Context, b *match.Bet) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO bets (id,match_id,bettor,side,amount_lamports,status,status_reason,
			claimed,payout_lamports,tx_signature,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		b.ID, b.MatchID, b.Bettor, b.Side, b.Amount, b.Status, b.StatusReason,
		b.Claimed, b.Payout, b.TxSignature, b.CreatedAt, b.UpdatedAt,
	)
	return err
}

func (p *Postgres) GetBet(ctx context.Context, id string) (*match.Bet, error) {
	b, err := scanBet(p.db.QueryRowContext(ctx, betSelect+` WHERE id=$1`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", match.ErrBetNotFound, id)
	}
	return b, err
}

func (p *Postgres) ListBetsByMatch(ctx context.Context, matchID string) ([]*match.Bet, error) {
	return p.listBets(ctx, betSelect+` WHERE match_id=$1 ORDER BY created_at`, matchID)
}

func (p *Postgres) ListBetsByBettor(ctx context.Context, bettor string) ([]*match.Bet, error) {
	return p.listBets(ctx, betSelect+` WHERE bettor=$1 ORDER BY created_at`, bettor)
}

func (p *Postgres) UpdateBetStatus(ctx context.Context, betID string, status match.BetStatus, reason string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bets SET status=$2, status_reason=$3, updated_at=NOW() WHERE id=$1`,
		betID, status, reason)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", match.ErrBetNotFound, betID)
	}
	return nil
}

// MarkBetClaimed flips claimed exactly once. The claimed=false guard
// makes concurrent claims lose the race at the database.
func (p *Postgres) MarkBetClaimed(ctx context.Context, betID string, payout int64, txSignature string) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE bets SET claimed=TRUE, payout_lamports=$2, tx_signature=$3, updated_at=NOW()
		WHERE id=$1 AND claimed=FALSE`,
		betID, payout, txSignature)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := p.db.QueryRowContext(ctx, `SELECT TRUE FROM bets WHERE id=$1`, betID).Scan(&exists); err == sql.ErrNoRows {
			return fmt.Errorf("%w: %s", match.ErrBetNotFound, betID)
		} else if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", match.ErrAlreadyClaimed, betID)
	}
	return nil
}

const betSelect = `
	SELECT id,match_id,bettor,side,amount_lamports,status,status_reason,
		claimed,payout_lamports,tx_signature,created_at,updated_at
	FROM bets`

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *Postgres) scanMatch(row rowScanner) (*match.Match, error) {
	var (
		m      match.Match
		winner sql.NullString
		line   sql.NullString
		lock   sql.NullTime
	)
	err := row.Scan(&m.ID, &m.Creator, &m.Opponent, &m.Status,
		&m.Pool.SideA, &m.Pool.SideB, &m.Pool.Total,
		&lock, &winner, &line, &m.PoolAddress, &m.Metadata,
		&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lock.Valid {
		t := lock.Time
		m.LockTime = &t
	}
	if winner.Valid {
		o := game.Outcome(winner.String)
		m.Winner = &o
	}
	if line.Valid {
		var l [3]int
		if _, err := fmt.Sscanf(line.String, "%d,%d,%d", &l[0], &l[1], &l[2]); err != nil {
			return nil, fmt.Errorf("bad winning_line %q: %w", line.String, err)
		}
		m.WinningLine = &l
	}
	return &m, nil
}

func scanBet(row rowScanner) (*match.Bet, error) {
	var b match.Bet
	err := row.Scan(&b.ID, &b.MatchID, &b.Bettor, &b.Side, &b.Amount,
		&b.Status, &b.StatusReason, &b.Claimed, &b.Payout, &b.TxSignature,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (p *Postgres) listBets(ctx context.Context, q string, arg any) ([]*match.Bet, error) {
	rows, err := p.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*match.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func winnerCol(o *game.Outcome) any {
	if o == nil {
		return nil
	}
	return string(*o)
}

func lineCol(l *[3]int) any {
	if l == nil {
		return nil
	}
	return fmt.Sprintf("%d,%d,%d", l[0], l[1], l[2])
}
