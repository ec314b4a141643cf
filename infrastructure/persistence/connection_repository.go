package persistence

import (
	"context"
	"database/sql"

	"prism-connector/domain/model"
)

// ConnectionRepository persists persona credentials using PostgreSQL
// (native sql.DB).
type ConnectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) *ConnectionRepository { return &ConnectionRepository{db: db} }

func (r *ConnectionRepository) Upsert(ctx context.Context, conn *model.Connection) error {
	q := `INSERT INTO ig_connections (persona_id, access_token, account_id, account_handle, kind, connected_at, refreshed_at, expires_in)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		  ON CONFLICT (persona_id) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			account_id=EXCLUDED.account_id,
			account_handle=EXCLUDED.account_handle,
			kind=EXCLUDED.kind,
			connected_at=EXCLUDED.connected_at,
			refreshed_at=EXCLUDED.refreshed_at,
			expires_in=EXCLUDED.expires_in`
	_, err := r.db.ExecContext(ctx, q,
		conn.PersonaID, conn.AccessToken, conn.AccountID, conn.AccountHandle,
		string(conn.Kind), conn.ConnectedAt, conn.RefreshedAt, conn.ExpiresIn)
	return err
}

func (r *ConnectionRepository) Get(ctx context.Context, personaID string) (*model.Connection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT persona_id, access_token, account_id, account_handle, kind, connected_at, refreshed_at, expires_in
		 FROM ig_connections WHERE persona_id=$1`, personaID)
	return scanConnection(row)
}

func (r *ConnectionRepository) Remove(ctx context.Context, personaID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ig_connections WHERE persona_id=$1`, personaID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ConnectionRepository) List(ctx context.Context) ([]*model.Connection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT persona_id, access_token, account_id, account_handle, kind, connected_at, refreshed_at, expires_in
		 FROM ig_connections ORDER BY persona_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, conn)
	}
	return list, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConnection(row rowScanner) (*model.Connection, error) {
	conn := &model.Connection{}
	var kind string
	var refreshed sql.NullTime
	if err := row.Scan(&conn.PersonaID, &conn.AccessToken, &conn.AccountID, &conn.AccountHandle,
		&kind, &conn.ConnectedAt, &refreshed, &conn.ExpiresIn); err != nil {
		return nil, err
	}
	conn.Kind = model.CredentialKind(kind)
	if refreshed.Valid {
		t := refreshed.Time
		conn.RefreshedAt = &t
	}
	return conn, nil
}
