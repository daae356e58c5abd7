package apikeys

import (
	"context"
	"strings"

	"github.com/snipvault/snipvault/internal/db"
)

type Repository struct {
	base *db.Base
}

func NewRepository(base *db.Base) *Repository {
	return &Repository{base: base}
}

const (
	sqlKeyInsert = `INSERT INTO api_keys (id, name, scope, token_hash, token_prefix)
		VALUES ($1, $2, $3, $4, $5)`

	sqlKeyList = `SELECT id, name, scope, token_prefix, created_at, revoked_at
		FROM api_keys
		ORDER BY created_at DESC`

	sqlKeyGetByHash = `SELECT id, name, scope, token_prefix, created_at, revoked_at
		FROM api_keys
		WHERE token_hash = $1`

	sqlKeyRevoke = `UPDATE api_keys
		SET revoked_at = now()
		WHERE id = $1 AND revoked_at IS NULL`
)

func (r *Repository) Create(ctx context.Context, k *Key) error {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	row := r.base.Q().QueryRow(ctx, sqlKeyInsert+" RETURNING created_at", k.ID, k.Name, string(k.Scope), k.TokenHash, k.TokenPrefix)
	return row.Scan(&k.CreatedAt)
}

func (r *Repository) List(ctx context.Context) ([]*Key, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	rows, err := r.base.Q().Query(ctx, sqlKeyList)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Key
	for rows.Next() {
		var k Key
		var scope string
		if err := rows.Scan(&k.ID, &k.Name, &scope, &k.TokenPrefix, &k.CreatedAt, &k.RevokedAt); err != nil {
			return nil, err
		}
		k.Scope = Scope(scope)
		out = append(out, &k)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) GetByTokenHash(ctx context.Context, hash string) (*Key, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	var k Key
	var scope string
	err := r.base.Q().QueryRow(ctx, sqlKeyGetByHash, strings.TrimSpace(hash)).Scan(
		&k.ID,
		&k.Name,
		&scope,
		&k.TokenPrefix,
		&k.CreatedAt,
		&k.RevokedAt,
	)
	if IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	k.Scope = Scope(scope)
	return &k, nil
}

func (r *Repository) Revoke(ctx context.Context, id string) (bool, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	tag, err := r.base.Q().Exec(ctx, sqlKeyRevoke, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
