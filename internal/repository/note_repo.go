package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"notes-console/internal/domain"
)

// NoteRepository lee la coleccion de notas; la escritura pertenece a otra parte del producto.
type NoteRepository interface {
	ListAll(ctx context.Context) ([]domain.Note, error)
	ListByUserID(ctx context.Context, userID string) ([]domain.Note, error)
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

type PgNoteRepository struct {
	pool *pgxpool.Pool
}

func NewPgNoteRepository(pool *pgxpool.Pool) *PgNoteRepository {
	return &PgNoteRepository{pool: pool}
}

func (r *PgNoteRepository) ListAll(ctx context.Context) ([]domain.Note, error) {
	const query = `
		SELECT id, title, user_id, content, created_at
		FROM notes
		ORDER BY created_at ASC
	`
	return r.list(ctx, query)
}

func (r *PgNoteRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Note, error) {
	const query = `
		SELECT id, title, user_id, content, created_at
		FROM notes
		WHERE user_id = $1
		ORDER BY created_at ASC
	`
	return r.list(ctx, query, userID)
}

func (r *PgNoteRepository) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notes WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgNoteRepository) list(ctx context.Context, query string, args ...any) ([]domain.Note, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var n domain.Note
		err = rows.Scan(
			&n.ID,
			&n.Title,
			&n.UserID,
			&n.Content,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return notes, nil
}
