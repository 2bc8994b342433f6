package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrUserExists   = errors.New("username already exists")
	ErrUserNotFound = errors.New("user not found")
)

type User struct {
	Username     string    `json:"username"`
	Firstname    string    `json:"firstname"`
	Lastname     string    `json:"lastname"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserStore keeps account records in sqlite. It backs the AuthService
// boundary; the fanout core never touches it.
type UserStore struct {
	db *sql.DB
}

func OpenUserStore(path string) (*UserStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		username VARCHAR(50) PRIMARY KEY,
		firstname VARCHAR(100) NOT NULL,
		lastname VARCHAR(100) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return &UserStore{db: db}, nil
}

func (s *UserStore) Create(ctx context.Context, username, firstname, lastname, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (username, firstname, lastname, password_hash) VALUES (?, ?, ?, ?)",
		username, firstname, lastname, passwordHash,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return ErrUserExists
		}
		return err
	}
	return nil
}

func (s *UserStore) ByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		"SELECT username, firstname, lastname, password_hash, created_at FROM users WHERE username = ?",
		username,
	).Scan(&u.Username, &u.Firstname, &u.Lastname, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *UserStore) Close() error {
	return s.db.Close()
}
