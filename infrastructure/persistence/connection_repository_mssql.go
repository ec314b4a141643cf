package persistence

import (
	"context"
	"database/sql"

	"prism-connector/domain/model"
)

// ConnectionRepositoryMSSQL persists persona credentials using SQL Server.
type ConnectionRepositoryMSSQL struct{ db *sql.DB }

func NewConnectionRepositoryMSSQL(db *sql.DB) *ConnectionRepositoryMSSQL {
	return &ConnectionRepositoryMSSQL{db: db}
}

func (r *ConnectionRepositoryMSSQL) Upsert(ctx context.Context, conn *model.Connection) error {
	var refreshed sql.NullTime
	if conn.RefreshedAt != nil {
		refreshed.Valid = true
		refreshed.Time = *conn.RefreshedAt
	}
	// MERGE upsert by persona_id
	q := `MERGE dbo.[ig_connections] AS target
USING (VALUES (@p1)) AS src(persona_id)
ON target.persona_id = src.persona_id
WHEN MATCHED THEN UPDATE SET
    access_token=@p2,
    account_id=@p3,
    account_handle=@p4,
    kind=@p5,
    connected_at=@p6,
    refreshed_at=@p7,
    expires_in=@p8
WHEN NOT MATCHED THEN
    INSERT (persona_id, access_token, account_id, account_handle, kind, connected_at, refreshed_at, expires_in)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8);`
	_, err := r.db.ExecContext(ctx, q,
		conn.PersonaID, conn.AccessToken, conn.AccountID, conn.AccountHandle,
		string(conn.Kind), conn.ConnectedAt, refreshed, conn.ExpiresIn)
	return err
}

func (r *ConnectionRepositoryMSSQL) Get(ctx context.Context, personaID string) (*model.Connection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT persona_id, access_token, account_id, account_handle, kind, connected_at, refreshed_at, expires_in
		 FROM dbo.[ig_connections] WHERE persona_id=@p1`, personaID)
	return scanConnection(row)
}

func (r *ConnectionRepositoryMSSQL) Remove(ctx context.Context, personaID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM dbo.[ig_connections] WHERE persona_id=@p1`, personaID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ConnectionRepositoryMSSQL) List(ctx context.Context) ([]*model.Connection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT persona_id, access_token, account_id, account_handle, kind, connected_at, refreshed_at, expires_in
		 FROM dbo.[ig_connections] ORDER BY persona_id`)
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
