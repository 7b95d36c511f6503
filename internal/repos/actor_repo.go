package repos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"litledger/internal/domain"
)

type ActorRepo struct{ db *sqlx.DB }

func NewActorRepo(db *sqlx.DB) *ActorRepo { return &ActorRepo{db: db} }

func (r *ActorRepo) Get(ctx context.Context, id int64) (domain.Actor, error) {
	var a domain.Actor
	err := r.db.GetContext(ctx, &a, r.db.Rebind(`
		SELECT actor_id, role, display_name, created_at, updated_at FROM actors WHERE actor_id = ?
	`), id)
	return a, storeErr(err, "actor %d", id)
}

// Role returns RoleNone for unknown actors.
func (r *ActorRepo) Role(ctx context.Context, id int64) (domain.Role, error) {
	a, err := r.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.RoleNone, nil
	}
	if err != nil {
		return domain.RoleNone, err
	}
	return a.Role, nil
}

// Assign creates or updates the actor with the given role.
func (r *ActorRepo) Assign(ctx context.Context, id int64, role domain.Role, name string) error {
	if role == domain.RoleNone {
		return errors.Wrap(domain.ErrValidation, "cannot assign an empty role")
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO actors(actor_id, role, display_name)
		VALUES (?, ?, ?)
		ON CONFLICT(actor_id) DO UPDATE SET
		  role = excluded.role,
		  display_name = excluded.display_name,
		  updated_at = CURRENT_TIMESTAMP
	`), id, string(role), name)
	return storeErr(err, "assign %s to %d", role, id)
}

// firstAdminLock serialises first-admin promotions on postgres, where the
// NOT EXISTS check alone does not stop two READ COMMITTED inserts.
const firstAdminLock = 0x6c69746c65646772

// PromoteFirstAdmin inserts id as administrator only while no administrator
// exists and id has no role yet. It reports whether the promotion happened.
func (r *ActorRepo) PromoteFirstAdmin(ctx context.Context, id int64, name string) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, storeErr(err, "begin promote %d", id)
	}
	defer func() { _ = tx.Rollback() }()

	if isPostgres(r.db) {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(firstAdminLock)); err != nil {
			return false, storeErr(err, "lock promote %d", id)
		}
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO actors(actor_id, role, display_name)
		SELECT CAST(? AS BIGINT), 'admin', CAST(? AS TEXT)
		WHERE NOT EXISTS (SELECT 1 FROM actors WHERE role = 'admin' OR actor_id = ?)
	`), id, name, id)
	if err != nil {
		return false, storeErr(err, "promote %d", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(err, "promote %d", id)
	}
	if err := tx.Commit(); err != nil {
		return false, storeErr(err, "commit promote %d", id)
	}
	return n == 1, nil
}

func (r *ActorRepo) HasAdmin(ctx context.Context) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM actors WHERE role = 'admin'`)
	return n > 0, storeErr(err, "count admins")
}

func (r *ActorRepo) List(ctx context.Context) ([]domain.Actor, error) {
	rows := []domain.Actor{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT actor_id, role, display_name, created_at, updated_at FROM actors ORDER BY role, actor_id
	`)
	return rows, storeErr(err, "list actors")
}
