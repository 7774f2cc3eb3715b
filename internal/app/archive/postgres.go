package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"syncroom/internal/app/db"
)

const (
	insertMessageSQL = `
INSERT INTO chat_messages (room_name, room_instance, seq, author, body, posted_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	selectHistorySQL = `
SELECT room_name, room_instance, seq, author, body, posted_at
FROM chat_messages
WHERE room_name = $1
ORDER BY posted_at DESC, seq DESC
LIMIT $2`
)

// PostgresStore is a Store backed by the chat_messages table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a Store using pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Save(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, insertMessageSQL,
		rec.Room, rec.RoomInstance, int64(rec.Seq), rec.Author, rec.Text, rec.PostedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil
		}
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

func (s *PostgresStore) History(ctx context.Context, room string, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, selectHistorySQL, room, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat history: %w", err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var rec Record
		var seq int64
		if err := row.Scan(&rec.Room, &rec.RoomInstance, &seq, &rec.Author, &rec.Text, &rec.PostedAt); err != nil {
			return Record{}, err
		}
		rec.Seq = uint64(seq)
		return rec, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan chat history: %w", err)
	}

	reverse(records)
	return records, nil
}

func reverse(records []Record) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}
