package cloud

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/snipvault/snipvault/internal/db"
)

// SettingsStore persists the single cloud connection record.
type SettingsStore interface {
	Load(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
}

// PGSettingsStore keeps the connection record in a single-row table.
type PGSettingsStore struct {
	base *db.Base
}

func NewPGSettingsStore(base *db.Base) *PGSettingsStore {
	return &PGSettingsStore{base: base}
}

const sqlSettingsSelect = `SELECT cloud_token, local_token, token_verified, code_verifier, code_challenge, state
	FROM cloud_settings WHERE id = 1;`

const sqlSettingsUpsert = `INSERT INTO cloud_settings (id, cloud_token, local_token, token_verified, code_verifier, code_challenge, state, updated_at)
	VALUES (1, $1, $2, $3, $4, $5, $6, now())
	ON CONFLICT (id) DO UPDATE
	SET cloud_token = EXCLUDED.cloud_token,
	    local_token = EXCLUDED.local_token,
	    token_verified = EXCLUDED.token_verified,
	    code_verifier = EXCLUDED.code_verifier,
	    code_challenge = EXCLUDED.code_challenge,
	    state = EXCLUDED.state,
	    updated_at = now();`

// Load returns the stored settings, or a zero value when the row has
// never been written.
func (p *PGSettingsStore) Load(ctx context.Context) (*Settings, error) {
	ctx, cancel := p.base.WithTimeout(ctx)
	defer cancel()

	var s Settings
	err := p.base.Q().QueryRow(ctx, sqlSettingsSelect).Scan(
		&s.CloudToken,
		&s.LocalToken,
		&s.TokenVerified,
		&s.CodeVerifier,
		&s.CodeChallenge,
		&s.State,
	)
	if err != nil {
		if isNoRows(err) {
			return &Settings{}, nil
		}
		return nil, err
	}
	return &s, nil
}

func (p *PGSettingsStore) Save(ctx context.Context, s *Settings) error {
	ctx, cancel := p.base.WithTimeout(ctx)
	defer cancel()

	_, err := p.base.Q().Exec(ctx, sqlSettingsUpsert,
		s.CloudToken,
		s.LocalToken,
		s.TokenVerified,
		s.CodeVerifier,
		s.CodeChallenge,
		s.State,
	)
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
