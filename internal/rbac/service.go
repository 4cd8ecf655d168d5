package rbac

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// ErrInvalidKey is returned for unknown, inactive or mismatching API keys.
var ErrInvalidKey = errors.New("rbac: invalid api key")

// Store is the persistence port of the RBAC service.
type Store interface {
	FindRole(ctx context.Context, name string) (Role, error)
	InsertRole(ctx context.Context, role Role) (Role, error)
	FindKeyByPrefix(ctx context.Context, prefix string) (APIKey, error)
	FindKeyByName(ctx context.Context, name string) (APIKey, error)
	InsertKey(ctx context.Context, key APIKey) (APIKey, error)
}

// Service resolves API keys into principals and provisions roles.
type Service struct {
	store Store
	cost  int
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store, cost: bcrypt.DefaultCost}
}

// WithCost overrides the bcrypt cost, used by tests.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

// Authenticate splits "prefix.secret", loads the key and compares the secret.
func (s *Service) Authenticate(ctx context.Context, presented string) (Principal, error) {
	prefix, secret, ok := strings.Cut(strings.TrimSpace(presented), ".")
	if !ok || prefix == "" || secret == "" {
		return Principal{}, ErrInvalidKey
	}
	key, err := s.store.FindKeyByPrefix(ctx, prefix)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidKey
		}
		return Principal{}, err
	}
	if !key.Active {
		return Principal{}, ErrInvalidKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(key.SecretHash), []byte(secret)); err != nil {
		return Principal{}, ErrInvalidKey
	}
	return Principal{Name: key.Name, Roles: key.Roles}, nil
}

// EnsureRole creates the role when missing. It reports whether it created one.
func (s *Service) EnsureRole(ctx context.Context, role Role) (bool, error) {
	name := strings.TrimSpace(role.Name)
	if name == "" {
		return false, errors.New("rbac: role name required")
	}
	if _, err := s.store.FindRole(ctx, name); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	role.Name = name
	if _, err := s.store.InsertRole(ctx, role); err != nil {
		return false, fmt.Errorf("rbac: insert role %s: %w", name, err)
	}
	return true, nil
}

// IssueKey creates an API key named name when none exists and returns the
// plaintext token once. An existing key yields an empty token.
func (s *Service) IssueKey(ctx context.Context, name string, roles []string) (string, error) {
	if _, err := s.store.FindKeyByName(ctx, name); err == nil {
		return "", nil
	} else if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	prefix, err := randomHex(6)
	if err != nil {
		return "", err
	}
	secret, err := randomHex(24)
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", fmt.Errorf("rbac: hash key: %w", err)
	}
	if _, err := s.store.InsertKey(ctx, APIKey{Name: name, Prefix: prefix, SecretHash: string(hash), Roles: roles, Active: true}); err != nil {
		return "", fmt.Errorf("rbac: insert key: %w", err)
	}
	return prefix + "." + secret, nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// PGStore is the PostgreSQL implementation of Store.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// FindRole loads a role by name.
func (s *PGStore) FindRole(ctx context.Context, name string) (Role, error) {
	var r Role
	err := s.pool.QueryRow(ctx, `SELECT id, name, description, created_at FROM roles WHERE name = $1`, name).
		Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Role{}, ErrNotFound
	}
	return r, err
}

// InsertRole inserts a role.
func (s *PGStore) InsertRole(ctx context.Context, role Role) (Role, error) {
	err := s.pool.QueryRow(ctx, `INSERT INTO roles (name, description, created_at) VALUES ($1, $2, NOW()) RETURNING id, created_at`,
		role.Name, role.Description).Scan(&role.ID, &role.CreatedAt)
	return role, err
}

// FindKeyByPrefix loads an API key by its public prefix.
func (s *PGStore) FindKeyByPrefix(ctx context.Context, prefix string) (APIKey, error) {
	return s.findKey(ctx, `WHERE prefix = $1`, prefix)
}

// FindKeyByName loads an API key by its name.
func (s *PGStore) FindKeyByName(ctx context.Context, name string) (APIKey, error) {
	return s.findKey(ctx, `WHERE name = $1`, name)
}

func (s *PGStore) findKey(ctx context.Context, where string, arg any) (APIKey, error) {
	var k APIKey
	err := s.pool.QueryRow(ctx, `SELECT id, name, prefix, secret_hash, roles, active, created_at FROM api_keys `+where, arg).
		Scan(&k.ID, &k.Name, &k.Prefix, &k.SecretHash, &k.Roles, &k.Active, &k.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return APIKey{}, ErrNotFound
	}
	return k, err
}

// InsertKey inserts an API key.
func (s *PGStore) InsertKey(ctx context.Context, key APIKey) (APIKey, error) {
	err := s.pool.QueryRow(ctx, `INSERT INTO api_keys (name, prefix, secret_hash, roles, active, created_at)
VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id, created_at`,
		key.Name, key.Prefix, key.SecretHash, key.Roles, key.Active).Scan(&key.ID, &key.CreatedAt)
	return key, err
}
