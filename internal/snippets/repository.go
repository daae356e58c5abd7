package snippets

import (
	"context"
	"fmt"
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
	sqlSnippetInsert = `INSERT INTO snippets (name, "desc", code, scope, active, network, cloud_id, revision)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at;`

	sqlSnippetSelect = `SELECT id, name, "desc", code, scope, active, network, cloud_id, revision, created_at, updated_at
		FROM snippets`

	sqlSnippetDelete = `DELETE FROM snippets WHERE id = $1;`
)

// Save inserts the snippet when its ID is zero, otherwise rewrites
// every column. The persisted ID is written back onto the value.
func (r *Repository) Save(ctx context.Context, s *Snippet) error {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	if s.ID == 0 {
		return r.base.Q().QueryRow(ctx, sqlSnippetInsert,
			s.Name,
			s.Desc,
			s.Code,
			string(s.Scope),
			s.Active,
			s.Network,
			s.CloudID,
			s.Revision,
		).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	}

	const sqlUpdate = `UPDATE snippets
		SET name = $1, "desc" = $2, code = $3, scope = $4, active = $5, network = $6, cloud_id = $7, revision = $8, updated_at = now()
		WHERE id = $9
		RETURNING updated_at;`

	err := r.base.Q().QueryRow(ctx, sqlUpdate,
		s.Name,
		s.Desc,
		s.Code,
		string(s.Scope),
		s.Active,
		s.Network,
		s.CloudID,
		s.Revision,
		s.ID,
	).Scan(&s.UpdatedAt)
	if IsNotFound(err) {
		return ErrNotFound
	}
	return err
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*Snippet, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	return scanSnippet(r.base.Q().QueryRow(ctx, sqlSnippetSelect+` WHERE id = $1 LIMIT 1;`, id))
}

func (r *Repository) GetByCloudID(ctx context.Context, cloudID string) (*Snippet, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	return scanSnippet(r.base.Q().QueryRow(ctx, sqlSnippetSelect+` WHERE cloud_id = $1 LIMIT 1;`, cloudID))
}

// List returns every stored snippet, oldest first. The reconciler
// iterates the full set, so there is no pagination here.
func (r *Repository) List(ctx context.Context) ([]*Snippet, error) {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	rows, err := r.base.Q().Query(ctx, sqlSnippetSelect+` ORDER BY id;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Snippet
	for rows.Next() {
		var s Snippet
		var scope string
		if err := rows.Scan(
			&s.ID,
			&s.Name,
			&s.Desc,
			&s.Code,
			&scope,
			&s.Active,
			&s.Network,
			&s.CloudID,
			&s.Revision,
			&s.CreatedAt,
			&s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		s.Scope = Scope(scope)
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateFields applies a partial update to a single snippet.
func (r *Repository) UpdateFields(ctx context.Context, id int64, f Fields) error {
	set := []string{"updated_at = now()"}
	args := make([]any, 0, 8)
	argPos := 1

	add := func(column string, value any) {
		set = append(set, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if f.Name != nil {
		add("name", *f.Name)
	}
	if f.Desc != nil {
		add(`"desc"`, *f.Desc)
	}
	if f.Code != nil {
		add("code", *f.Code)
	}
	if f.Active != nil {
		add("active", *f.Active)
	}
	if f.Revision != nil {
		add("revision", *f.Revision)
	}
	if f.SetCloudID {
		add("cloud_id", f.CloudID)
	}

	query := fmt.Sprintf(`UPDATE snippets SET %s WHERE id = $%d;`, strings.Join(set, ", "), argPos)
	args = append(args, id)

	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	tag, err := r.base.Q().Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.base.WithTimeout(ctx)
	defer cancel()

	tag, err := r.base.Q().Exec(ctx, sqlSnippetDelete, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSnippet(row interface{ Scan(dest ...any) error }) (*Snippet, error) {
	var s Snippet
	var scope string
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Desc,
		&s.Code,
		&scope,
		&s.Active,
		&s.Network,
		&s.CloudID,
		&s.Revision,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.Scope = Scope(scope)
	return &s, nil
}
