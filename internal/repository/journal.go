package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tile-race-bot/internal/model"
)

// DefaultHistoryLimit is the number of moves returned when no limit is given.
const DefaultHistoryLimit = 10

// JournalRepository records moves in PostgreSQL. The journal is an audit
// trail only; game state is never restored from it.
type JournalRepository struct {
	pool *pgxpool.Pool
}

// NewJournalRepository creates a new JournalRepository instance.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// Record inserts a move and fills in its ID and CreatedAt.
func (r *JournalRepository) Record(ctx context.Context, m *model.Move) error {
	const query = `
		INSERT INTO moves (team, kind, from_tile, to_tile, roll, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, m.Team, m.Kind, m.FromTile, m.ToTile, m.Roll, m.ActorID).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record move: %w", err)
	}
	return nil
}

// Recent returns the latest moves, newest first. An empty team returns moves
// of all teams.
func (r *JournalRepository) Recent(ctx context.Context, team string, limit int) ([]*model.Move, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	const query = `
		SELECT id, team, kind, from_tile, to_tile, roll, actor_id, created_at
		FROM moves
		WHERE $1 = '' OR team = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, team, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get moves: %w", err)
	}

	moves, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Move])
	if err != nil {
		return nil, fmt.Errorf("failed to scan moves: %w", err)
	}
	return moves, nil
}

// MemoryJournal keeps the most recent moves in memory. It is used when the
// database is disabled.
type MemoryJournal struct {
	mu     sync.Mutex
	moves  []*model.Move
	nextID int64
	max    int
}

// NewMemoryJournal creates a journal that retains at most max moves.
func NewMemoryJournal(max int) *MemoryJournal {
	if max <= 0 {
		max = 500
	}
	return &MemoryJournal{max: max}
}

// Record appends a move, dropping the oldest once full.
func (j *MemoryJournal) Record(_ context.Context, m *model.Move) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.nextID++
	m.ID = j.nextID
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	c := *m
	j.moves = append(j.moves, &c)
	if len(j.moves) > j.max {
		j.moves = j.moves[len(j.moves)-j.max:]
	}
	return nil
}

// Recent returns the latest moves, newest first.
func (j *MemoryJournal) Recent(_ context.Context, team string, limit int) ([]*model.Move, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	var out []*model.Move
	for i := len(j.moves) - 1; i >= 0 && len(out) < limit; i-- {
		m := j.moves[i]
		if team != "" && m.Team != team {
			continue
		}
		c := *m
		out = append(out, &c)
	}
	return out, nil
}
