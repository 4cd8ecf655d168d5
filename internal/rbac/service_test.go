package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type memoryStore struct {
	roles map[string]Role
	keys  map[string]APIKey
}

func newMemoryStore() *memoryStore {
	return &memoryStore{roles: map[string]Role{}, keys: map[string]APIKey{}}
}

func (m *memoryStore) FindRole(ctx context.Context, name string) (Role, error) {
	r, ok := m.roles[name]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (m *memoryStore) InsertRole(ctx context.Context, role Role) (Role, error) {
	role.ID = int64(len(m.roles) + 1)
	m.roles[role.Name] = role
	return role, nil
}

func (m *memoryStore) FindKeyByPrefix(ctx context.Context, prefix string) (APIKey, error) {
	for _, k := range m.keys {
		if k.Prefix == prefix {
			return k, nil
		}
	}
	return APIKey{}, ErrNotFound
}

func (m *memoryStore) FindKeyByName(ctx context.Context, name string) (APIKey, error) {
	k, ok := m.keys[name]
	if !ok {
		return APIKey{}, ErrNotFound
	}
	return k, nil
}

func (m *memoryStore) InsertKey(ctx context.Context, key APIKey) (APIKey, error) {
	key.ID = int64(len(m.keys) + 1)
	m.keys[key.Name] = key
	return key, nil
}

func TestEnsureRoleIsIdempotent(t *testing.T) {
	svc := NewService(newMemoryStore())
	created, err := svc.EnsureRole(context.Background(), Role{Name: RoleAccountsUser})
	require.NoError(t, err)
	require.True(t, created)

	created, err = svc.EnsureRole(context.Background(), Role{Name: " " + RoleAccountsUser + " "})
	require.NoError(t, err)
	require.False(t, created)

	_, err = svc.EnsureRole(context.Background(), Role{Name: "  "})
	require.Error(t, err)
}

func TestIssueAndAuthenticateKey(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store).WithCost(bcrypt.MinCost)
	ctx := context.Background()

	token, err := svc.IssueKey(ctx, "finance-bot", []string{RoleAccountsUser})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	again, err := svc.IssueKey(ctx, "finance-bot", []string{RoleAccountsUser})
	require.NoError(t, err)
	require.Empty(t, again)

	principal, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "finance-bot", principal.Name)
	require.True(t, principal.HasAny(RoleAccountsUser))
	require.False(t, principal.HasAny(RoleMediaManager))

	_, err = svc.Authenticate(ctx, token+"x")
	require.ErrorIs(t, err, ErrInvalidKey)
	_, err = svc.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidKey)

	key := store.keys["finance-bot"]
	key.Active = false
	store.keys["finance-bot"] = key
	_, err = svc.Authenticate(ctx, token)
	require.ErrorIs(t, err, ErrInvalidKey)
}

func TestSystemManagerHoldsEveryRole(t *testing.T) {
	p := Principal{Name: "admin", Roles: []string{RoleSystemManager}}
	require.True(t, p.HasAny(RoleMediaManager))
}

func TestMiddlewareAuthenticatesAndAuthorizes(t *testing.T) {
	svc := NewService(newMemoryStore()).WithCost(bcrypt.MinCost)
	token, err := svc.IssueKey(context.Background(), "media", []string{RoleMediaManager})
	require.NoError(t, err)

	mw := Middleware{Service: svc}
	protected := mw.Authenticate(mw.RequireAny(RoleMediaManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
	denied := mw.Authenticate(mw.RequireAny(RoleAccountsUser)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	cases := []struct {
		name    string
		handler http.Handler
		key     string
		status  int
	}{
		{"anonymous", protected, "", http.StatusUnauthorized},
		{"bad key", protected, "abc.def", http.StatusUnauthorized},
		{"granted", protected, token, http.StatusNoContent},
		{"wrong role", denied, token, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.key != "" {
				req.Header.Set(HeaderAPIKey, tc.key)
			}
			rr := httptest.NewRecorder()
			tc.handler.ServeHTTP(rr, req)
			require.Equal(t, tc.status, rr.Code)
		})
	}
}
