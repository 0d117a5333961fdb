package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"cyimg.org/internal/auth"
	"cyimg.org/internal/settings"
)

// Store persists users and settings in Postgres.
type Store struct {
	db *sql.DB
}

var (
	_ auth.UserStore = (*Store)(nil)
	_ settings.Store = (*Store)(nil)
)

// Open connects with tuned pool defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle (tests use sqlmock here).
func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for the readiness probe and the KV backend.
func (s *Store) DB() *sql.DB { return s.db }

// --- users ---

func (s *Store) Create(ctx context.Context, u *auth.User) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from users where email = $1 or username = $2)`,
		u.Email, u.Username,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return auth.ErrAlreadyExists
	}
	_, err = s.db.ExecContext(ctx, `
		insert into users(id, username, email, password_hash, user_type, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Username, u.Email, u.PasswordHash, u.UserType, u.CreatedAt)
	return err
}

func (s *Store) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return s.findOne(ctx, `where id = $1`, id)
}

func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (*auth.User, error) {
	if strings.Contains(identifier, "@") {
		return s.findOne(ctx, `where email = $1`, identifier)
	}
	return s.findOne(ctx, `where username = $1`, identifier)
}

func (s *Store) findOne(ctx context.Context, where string, arg any) (*auth.User, error) {
	u := &auth.User{}
	err := s.db.QueryRowContext(ctx,
		`select id, username, email, password_hash, user_type, created_at from users `+where,
		arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.UserType, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) List(ctx context.Context, filter auth.UserFilter) ([]auth.User, int, error) {
	var conditions []string
	var args []any
	if v := strings.TrimSpace(filter.Username); v != "" {
		args = append(args, "%"+v+"%")
		conditions = append(conditions, fmt.Sprintf("username like $%d", len(args)))
	}
	if v := strings.TrimSpace(filter.Email); v != "" {
		args = append(args, "%"+v+"%")
		conditions = append(conditions, fmt.Sprintf("email like $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = "where " + strings.Join(conditions, " and ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`select count(*) from users %s`, where), args...,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.PerPage
	args = append(args, filter.PerPage, offset)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		select id, username, email, user_type, created_at from users %s
		order by created_at desc limit $%d offset $%d
	`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		var u auth.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.UserType, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

func (s *Store) Update(ctx context.Context, id string, upd auth.UserUpdate) error {
	var sets []string
	var args []any
	add := func(column string, value *string) {
		if value != nil {
			args = append(args, *value)
			sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		}
	}
	add("username", upd.Username)
	add("email", upd.Email)
	add("password_hash", upd.PasswordHash)
	add("user_type", upd.UserType)
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`update users set %s where id = $%d`, strings.Join(sets, ", "), len(args)),
		args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// --- settings ---

func (s *Store) AllSettings(ctx context.Context) ([]settings.Setting, error) {
	rows, err := s.db.QueryContext(ctx, `select key, value, value_type from settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []settings.Setting
	for rows.Next() {
		var row settings.Setting
		if err := rows.Scan(&row.Key, &row.Value, &row.ValueType); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (s *Store) GetSetting(ctx context.Context, key string) (settings.Setting, error) {
	var row settings.Setting
	err := s.db.QueryRowContext(ctx,
		`select key, value, value_type from settings where key = $1`, key,
	).Scan(&row.Key, &row.Value, &row.ValueType)
	if errors.Is(err, sql.ErrNoRows) {
		return settings.Setting{}, settings.ErrNotFound
	}
	if err != nil {
		return settings.Setting{}, err
	}
	return row, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	res, err := s.db.ExecContext(ctx,
		`update settings set value = $2 where key = $1`, key, value)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return settings.ErrNotFound
	}
	return nil
}
