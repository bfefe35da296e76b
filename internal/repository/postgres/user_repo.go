package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/namma-finance/ledger-core/internal/domain"
)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	const q = `
		INSERT INTO users (id, email, password_hash, name, role, active,
			may_delete_collections, may_delete_customers, may_delete_users, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING created_at, updated_at`
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	row := r.db.exec(ctx).QueryRow(ctx, q, u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.Active,
		u.MayDeleteCollections, u.MayDeleteCustomers, u.MayDeleteUsers)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if IsUniqueViolation(err) {
			return nil, domain.ErrEmailAlreadyExists
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.Active,
		&u.MayDeleteCollections, &u.MayDeleteCustomers, &u.MayDeleteUsers, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapNotFound(err, domain.ErrUserNotFound)
	}
	return u, nil
}

const selectUserColumns = `id, email, password_hash, name, role, active, may_delete_collections, may_delete_customers, may_delete_users, created_at, updated_at`

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.exec(ctx).QueryRow(ctx, `SELECT `+selectUserColumns+` FROM users WHERE id = $1`, id)
	return r.scanUser(row)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.exec(ctx).QueryRow(ctx, `SELECT `+selectUserColumns+` FROM users WHERE email = $1`, email)
	return r.scanUser(row)
}

func (r *UserRepo) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	const q = `
		UPDATE users SET name = $2, role = $3, active = $4,
			may_delete_collections = $5, may_delete_customers = $6, may_delete_users = $7, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	row := r.db.exec(ctx).QueryRow(ctx, q, u.ID, u.Name, u.Role, u.Active,
		u.MayDeleteCollections, u.MayDeleteCustomers, u.MayDeleteUsers)
	if err := row.Scan(&u.UpdatedAt); err != nil {
		return nil, mapNotFound(err, domain.ErrUserNotFound)
	}
	return u, nil
}

func (r *UserRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	ct, err := r.db.exec(ctx).Exec(ctx, `UPDATE users SET active = false, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepo) List(ctx context.Context, role domain.Role, page, limit int) ([]*domain.User, int, error) {
	offset := (page - 1) * limit
	var rows pgx.Rows
	var err error
	var total int

	if role == "" {
		err = r.db.exec(ctx).QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total)
		if err != nil {
			return nil, 0, err
		}
		rows, err = r.db.exec(ctx).Query(ctx, `SELECT `+selectUserColumns+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	} else {
		err = r.db.exec(ctx).QueryRow(ctx, `SELECT count(*) FROM users WHERE role = $1`, role).Scan(&total)
		if err != nil {
			return nil, 0, err
		}
		rows, err = r.db.exec(ctx).Query(ctx, `SELECT `+selectUserColumns+` FROM users WHERE role = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, role, limit, offset)
	}
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}
