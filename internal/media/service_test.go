package media

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-rentals/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-rentals/internal/property"
	"github.com/odyssey-erp/odyssey-rentals/internal/rbac"
	"github.com/odyssey-erp/odyssey-rentals/internal/shared"
)

type memoryRepo struct {
	nextID int64
	items  map[int64]Installation
}

func (m *memoryRepo) Create(ctx context.Context, in Installation) (Installation, error) {
	m.nextID++
	in.ID = m.nextID
	m.items[in.ID] = in
	return in, nil
}

func (m *memoryRepo) Update(ctx context.Context, in Installation) (Installation, error) {
	if _, ok := m.items[in.ID]; !ok {
		return Installation{}, shared.ErrNotFound
	}
	m.items[in.ID] = in
	return in, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Installation, error) {
	in, ok := m.items[id]
	if !ok {
		return Installation{}, shared.ErrNotFound
	}
	return in, nil
}

func (m *memoryRepo) ListByProperty(ctx context.Context, propertyID int64) ([]Installation, error) {
	var out []Installation
	for _, in := range m.items {
		if in.PropertyID == propertyID {
			out = append(out, in)
		}
	}
	return out, nil
}

type properties map[int64]property.Property

func (p properties) Get(ctx context.Context, id int64) (property.Property, error) {
	prop, ok := p[id]
	if !ok {
		return property.Property{}, shared.ErrNotFound
	}
	return prop, nil
}

type countingCache struct{ bumps int }

func (c *countingCache) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func newTestService(today string) (*Service, *memoryRepo, *countingCache) {
	repo := &memoryRepo{items: map[int64]Installation{}}
	cache := &countingCache{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, properties{7: {ID: 7, Name: "Westlands Tower"}}, nil, cache, shared.FixedClock(day(today)), logger)
	svc.newID = func() uuid.UUID { return uuid.MustParse("9b2e4c11-0000-4000-8000-000000000000") }
	return svc, repo, cache
}

func sampleInput() Input {
	return Input{
		PropertyID: 7,
		Customer:   "Acme Outdoor",
		Project:    "Launch Q1",
		MediaType:  "Billboard",
		StartDate:  shared.NewDate(day("2024-01-01")),
		EndDate:    shared.NewDate(day("2024-03-31")),
		Rate:       decimal.NewFromInt(1500),
		RateBasis:  PerMonth,
	}
}

func TestValidateRejectsInvertedDatesAndZeroRate(t *testing.T) {
	in := sampleInput()
	in.EndDate = shared.NewDate(day("2023-12-31"))
	in.Rate = decimal.Zero
	_, err := Validate(in, day("2024-01-10"))
	var fe interface{ Fields() map[string]string }
	require.ErrorAs(t, err, &fe)
	require.Contains(t, fe.Fields(), "end_date")
	require.Contains(t, fe.Fields(), "rate")
}

func TestValidateAcceptsSingleDayRental(t *testing.T) {
	in := sampleInput()
	in.EndDate = in.StartDate
	in.RateBasis = PerDay
	inst, err := Validate(in, day("2024-02-01"))
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, inst.RentalStatus)
	require.True(t, decimal.NewFromInt(1500).Equal(inst.TotalRevenue))
}

func TestCreateDerivesStatusRevenueAndCode(t *testing.T) {
	svc, _, cache := newTestService("2024-02-15")
	inst, err := svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)
	require.Equal(t, "MI-9B2E4C11", inst.InstallationCode)
	require.Equal(t, StatusActive, inst.RentalStatus)
	require.True(t, decimal.NewFromInt(3000).Equal(inst.TotalRevenue))
	require.Equal(t, 1, cache.bumps)
}

func TestCreateRejectsUnknownProperty(t *testing.T) {
	svc, _, _ := newTestService("2024-02-15")
	in := sampleInput()
	in.PropertyID = 99
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestUpdateRecomputesAndKeepsCode(t *testing.T) {
	svc, _, _ := newTestService("2024-05-01")
	created, err := svc.Create(context.Background(), sampleInput())
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, created.RentalStatus)
	require.True(t, decimal.NewFromInt(4500).Equal(created.TotalRevenue))

	in := sampleInput()
	in.EndDate = shared.NewDate(day("2024-06-30"))
	updated, err := svc.Update(context.Background(), created.ID, in)
	require.NoError(t, err)
	require.Equal(t, created.InstallationCode, updated.InstallationCode)
	require.Equal(t, StatusActive, updated.RentalStatus)
	require.True(t, decimal.NewFromInt(7500).Equal(updated.TotalRevenue))
}

func newTestRouter(svc *Service, roles ...string) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, rbac.Middleware{})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := rbac.ContextWithPrincipal(req.Context(), rbac.Principal{Name: "tester", Roles: roles})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api/installations", h.MountRoutes)
	return r
}

func TestHandlerCreateAndShow(t *testing.T) {
	svc, _, _ := newTestService("2024-02-15")
	router := newTestRouter(svc, rbac.RoleMediaManager)
	body := `{"property_id":7,"customer":"Acme Outdoor","start_date":"2024-02-01","end_date":"2024-02-29","rate":"200","rate_basis":"Per Day"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/installations/", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got Installation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, StatusActive, got.RentalStatus)
	require.True(t, decimal.NewFromInt(3000).Equal(got.TotalRevenue))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/installations/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/installations/?property_id=7", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []Installation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
}

func TestHandlerRejectsWritesWithoutMediaRole(t *testing.T) {
	svc, _, _ := newTestService("2024-02-15")
	router := newTestRouter(svc, rbac.RoleAccountsUser)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/installations/", bytes.NewBufferString(`{}`)))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
