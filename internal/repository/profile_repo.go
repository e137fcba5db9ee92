package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"notes-console/internal/domain"
)

// ProfileRepository es el adaptador del documento de perfil, uno por identidad.
// Las lecturas de un id inexistente devuelven pgx.ErrNoRows.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
	// CreateIfAbsent escribe el perfil solo si no existe y devuelve el que quedo guardado.
	CreateIfAbsent(ctx context.Context, profile domain.Profile) (domain.Profile, bool, error)
	Put(ctx context.Context, profile domain.Profile) error
	UpdateField(ctx context.Context, id string, update domain.FieldUpdate) error
	Delete(ctx context.Context, id string) error
}

type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

// Columnas que UpdateField puede tocar; nunca se interpola otra cosa.
var profileColumns = map[domain.ProfileField]string{
	domain.FieldRole:         "role",
	domain.FieldSubscription: "subscription",
	domain.FieldStatus:       "status",
	domain.FieldName:         "name",
}

const profileSelect = `
	SELECT id, email, role, subscription, status, name, created_at
	FROM profiles
`

func (r *PgProfileRepository) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	var p domain.Profile
	err := scanProfile(r.pool.QueryRow(ctx, profileSelect+` WHERE id = $1`, id), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, err
	}
	return p, err
}

func (r *PgProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.pool.Query(ctx, profileSelect+` ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := scanProfile(rows, &p); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *PgProfileRepository) CreateIfAbsent(ctx context.Context, profile domain.Profile) (domain.Profile, bool, error) {
	const query = `
		INSERT INTO profiles (id, email, role, subscription, status, name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query,
		profile.ID,
		profile.Email,
		string(profile.Role),
		string(profile.Subscription),
		string(profile.Status),
		profile.Name,
		profile.CreatedAt,
	)
	if err != nil {
		return domain.Profile{}, false, err
	}
	if tag.RowsAffected() == 1 {
		return profile, true, nil
	}
	// Otro escritor gano la carrera: se devuelve su version.
	existing, err := r.GetByID(ctx, profile.ID)
	return existing, false, err
}

func (r *PgProfileRepository) Put(ctx context.Context, profile domain.Profile) error {
	const query = `
		INSERT INTO profiles (id, email, role, subscription, status, name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			subscription = EXCLUDED.subscription,
			status = EXCLUDED.status,
			name = EXCLUDED.name,
			created_at = EXCLUDED.created_at
	`
	_, err := r.pool.Exec(ctx, query,
		profile.ID,
		profile.Email,
		string(profile.Role),
		string(profile.Subscription),
		string(profile.Status),
		profile.Name,
		profile.CreatedAt,
	)
	return err
}

func (r *PgProfileRepository) UpdateField(ctx context.Context, id string, update domain.FieldUpdate) error {
	column, ok := profileColumns[update.Field]
	if !ok {
		return &domain.ValidationError{Field: "field", Value: string(update.Field)}
	}
	query := fmt.Sprintf(`UPDATE profiles SET %s = $2 WHERE id = $1`, column)
	tag, err := r.pool.Exec(ctx, query, id, update.Value)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgProfileRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanProfile(row pgx.Row, p *domain.Profile) error {
	var role, subscription, status string
	err := row.Scan(
		&p.ID,
		&p.Email,
		&role,
		&subscription,
		&status,
		&p.Name,
		&p.CreatedAt,
	)
	if err != nil {
		return err
	}
	p.Role = domain.Role(role)
	p.Subscription = domain.Subscription(subscription)
	p.Status = domain.Status(status)
	return nil
}
