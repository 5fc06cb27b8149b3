package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/notify"
	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// GameRecordRepository stores finished games and the per-game notification journal.
type GameRecordRepository struct {
	db *DB
}

// NewGameRecordRepository creates a repository on db.
func NewGameRecordRepository(db *DB) *GameRecordRepository {
	return &GameRecordRepository{db: db}
}

// SaveFinishedGame upserts the final state of a game.
func (r *GameRecordRepository) SaveFinishedGame(ctx context.Context, state *game.StateView) error {
	if state == nil || !state.IsFinished {
		return fmt.Errorf("game is not finished")
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode game state: %w", err)
	}
	player2 := ""
	if state.Player2 != nil {
		player2 = state.Player2.Player
	}

	query := `
		INSERT INTO finished_games
			(game_id, player1, player2, winner, turn_number, final_seq, checksum, state, created_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (game_id) DO UPDATE SET
			winner = EXCLUDED.winner,
			turn_number = EXCLUDED.turn_number,
			final_seq = EXCLUDED.final_seq,
			checksum = EXCLUDED.checksum,
			state = EXCLUDED.state,
			finished_at = EXCLUDED.finished_at,
			recorded_at = now()`

	_, err = r.db.Pool.Exec(ctx, query,
		state.GameID,
		state.Player1.Player,
		player2,
		state.Winner,
		state.TurnNumber,
		int64(state.Seq),
		state.Checksum,
		payload,
		state.CreatedAt,
		state.StartedAt,
		state.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save finished game %s: %w", state.GameID, err)
	}
	return nil
}

// GetFinishedGame returns the stored final state of gameID.
func (r *GameRecordRepository) GetFinishedGame(ctx context.Context, gameID string) (*game.StateView, error) {
	var payload []byte
	err := r.db.Pool.QueryRow(ctx, `SELECT state FROM finished_games WHERE game_id = $1`, gameID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get finished game %s: %w", gameID, err)
	}
	var state game.StateView
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("failed to decode finished game %s: %w", gameID, err)
	}
	return &state, nil
}

// CountWins returns how many recorded games player has won.
func (r *GameRecordRepository) CountWins(ctx context.Context, player string) (int, error) {
	var wins int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM finished_games WHERE winner = $1`, player).Scan(&wins); err != nil {
		return 0, fmt.Errorf("failed to count wins: %w", err)
	}
	return wins, nil
}

// AppendNotification journals n. Re-appending the same notification is a no-op.
func (r *GameRecordRepository) AppendNotification(ctx context.Context, n notify.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	query := `
		INSERT INTO game_notifications (game_id, seq, kind, actor, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (game_id, seq, kind) DO NOTHING`
	if _, err := r.db.Pool.Exec(ctx, query, n.GameID, int64(n.Seq), string(n.Kind), n.Actor, payload, n.Timestamp); err != nil {
		return fmt.Errorf("failed to append notification %s/%d: %w", n.GameID, n.Seq, err)
	}
	return nil
}

// ListNotifications returns the journal of gameID in commit order.
func (r *GameRecordRepository) ListNotifications(ctx context.Context, gameID string) ([]notify.Notification, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT payload FROM game_notifications
		WHERE game_id = $1
		ORDER BY seq, occurred_at`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []notify.Notification
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		var n notify.Notification
		if err := json.Unmarshal(payload, &n); err != nil {
			return nil, fmt.Errorf("failed to decode notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return out, nil
}
