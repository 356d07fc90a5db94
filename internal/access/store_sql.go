package access

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLRoleStore answers role checks from the course_roles table.
type SQLRoleStore struct {
	db *sql.DB
}

func NewSQLRoleStore(db *sql.DB) *SQLRoleStore { return &SQLRoleStore{db: db} }

func (s *SQLRoleStore) Grant(ctx context.Context, userID string, role Role, scope string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO course_roles (user_id, role, scope) VALUES ($1,$2,$3) ON CONFLICT DO NOTHING`,
		userID, string(role), scope)
	return err
}

func (s *SQLRoleStore) Revoke(ctx context.Context, userID string, role Role, scope string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM course_roles WHERE user_id=$1 AND role=$2 AND scope=$3`,
		userID, string(role), scope)
	return err
}

func (s *SQLRoleStore) HasRole(ctx context.Context, userID string, role Role, scope string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM course_roles WHERE user_id=$1 AND role=$2 AND scope=$3`,
		userID, string(role), scope).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("access: role check user=%s role=%s: %w", userID, role, err)
	}
	return true, nil
}
