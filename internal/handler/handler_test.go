package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// newCtx builds an echo context with the validator installed. body is sent
// as JSON when non-empty.
func newCtx(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func asAdmin(c echo.Context, userID, clubID uint64) {
	c.Set(middleware.CtxUserID, userID)
	c.Set(middleware.CtxRole, model.RoleAdmin)
	c.Set(middleware.CtxClubID, clubID)
}

func asSudo(c echo.Context) {
	c.Set(middleware.CtxUserID, uint64(1))
	c.Set(middleware.CtxRole, model.RoleSudo)
	c.Set(middleware.CtxClubID, uint64(0))
}

func withParams(c echo.Context, kv ...string) {
	var names, values []string
	for i := 0; i+1 < len(kv); i += 2 {
		names = append(names, kv[i])
		values = append(values, kv[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}

// ----- health -----

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestReady(t *testing.T) {
	c, rec := newCtx(http.MethodGet, "/ready", "")
	require.NoError(t, Ready(pinger{})(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newCtx(http.MethodGet, "/ready", "")
	require.NoError(t, Ready(pinger{err: errors.New("down")})(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// ----- auth -----

type fakeUsers struct {
	byEmail map[string]model.User
	created []string
	err     error
}

func (f *fakeUsers) Create(_ context.Context, email, _, _ string, _ uint64, _ int) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, email)
	return uint64(len(f.created)), nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

type fakeTokens struct {
	stored     map[string]uint64
	revoked    []string
	revokedAll []uint64
}

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, _ time.Time) error {
	if f.stored == nil {
		f.stored = map[string]uint64{}
	}
	f.stored[hash] = userID
	return nil
}

func (f *fakeTokens) ValidateRefresh(_ context.Context, hash string) (uint64, error) {
	id, ok := f.stored[hash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

func (f *fakeTokens) RevokeByHash(_ context.Context, hash string) error {
	delete(f.stored, hash)
	f.revoked = append(f.revoked, hash)
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	f.revokedAll = append(f.revokedAll, userID)
	return nil
}

func authFixture(t *testing.T) (*AuthHandler, *fakeUsers, *fakeTokens) {
	t.Helper()
	hash, err := utils.HashPassword("correct-horse", 4)
	require.NoError(t, err)
	users := &fakeUsers{byEmail: map[string]model.User{
		"admin@club.test": {ID: 7, ClubID: 3, Email: "admin@club.test", PasswordHash: hash, Role: model.RoleAdmin, IsActive: true},
		"gone@club.test":  {ID: 8, ClubID: 3, Email: "gone@club.test", PasswordHash: hash, Role: model.RoleAdmin},
	}}
	tokens := &fakeTokens{}
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 5, RefreshTTLDays: 1, BcryptCost: 4}
	return NewAuthHandler(cfg, users, tokens), users, tokens
}

func TestCreateUser(t *testing.T) {
	h, users, _ := authFixture(t)

	c, rec := newCtx(http.MethodPost, "/api/users", `{"email":"New@Club.test","password":"longenough","role":"ADMIN","club_id":3}`)
	require.NoError(t, h.CreateUser(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"new@club.test"}, users.created)

	// admins need a club
	c, rec = newCtx(http.MethodPost, "/api/users", `{"email":"x@club.test","password":"longenough","role":"ADMIN"}`)
	require.NoError(t, h.CreateUser(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newCtx(http.MethodPost, "/api/users", `{"email":"x@club.test","password":"longenough","role":"OWNER","club_id":1}`)
	require.NoError(t, h.CreateUser(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	users.err = repository.ErrConflict
	c, rec = newCtx(http.MethodPost, "/api/users", `{"email":"admin@club.test","password":"longenough","role":"SUDO"}`)
	require.NoError(t, h.CreateUser(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	h, _, tokens := authFixture(t)

	c, rec := newCtx(http.MethodPost, "/api/auth/login", `{"email":"admin@club.test","password":"correct-horse"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"club_id":3`)
	assert.Len(t, tokens.stored, 1)

	for _, body := range []string{
		`{"email":"admin@club.test","password":"wrong"}`,
		`{"email":"nobody@club.test","password":"correct-horse"}`,
		`{"email":"gone@club.test","password":"correct-horse"}`,
	} {
		c, rec = newCtx(http.MethodPost, "/api/auth/login", body)
		require.NoError(t, h.Login(c))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, body)
	}
}

func TestRefreshRotates(t *testing.T) {
	h, _, tokens := authFixture(t)
	tokens.stored = map[string]uint64{utils.HashRefreshRaw("old"): 7}

	c, rec := newCtx(http.MethodPost, "/api/auth/refresh", `{"refresh_token":"old"}`)
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{utils.HashRefreshRaw("old")}, tokens.revoked)
	assert.Len(t, tokens.stored, 1)

	c, rec = newCtx(http.MethodPost, "/api/auth/refresh", `{"refresh_token":"old"}`)
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	h, _, tokens := authFixture(t)

	c, rec := newCtx(http.MethodPost, "/api/auth/logout", "")
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tok, err := utils.NewAccessToken("test-secret", 7, model.RoleAdmin, 3, 5)
	require.NoError(t, err)
	c, rec = newCtx(http.MethodPost, "/api/auth/logout", "")
	c.Request().Header.Set("Authorization", "Bearer "+tok.Token)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uint64{7}, tokens.revokedAll)
}

// ----- events -----

type fakeEvents struct {
	events    map[uint64]model.Event
	takenSlug string
	deleted   []uint64 // club ids passed to Delete
	listClub  uint64
	savedCfg  *model.EventConfig
}

func (f *fakeEvents) GetByID(_ context.Context, id uint64) (model.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	return e, nil
}

func (f *fakeEvents) GetBySlug(_ context.Context, slug string) (model.Event, error) {
	for _, e := range f.events {
		if e.Slug == slug {
			return e, nil
		}
	}
	return model.Event{}, repository.ErrNotFound
}

func (f *fakeEvents) ResolveSlug(_ context.Context, e *model.Event, custom string) error {
	if custom == "" {
		e.Slug = utils.GenerateSlug(e.Name)
		return nil
	}
	if custom == f.takenSlug {
		return repository.ErrConflict
	}
	e.Slug = custom
	return nil
}

func (f *fakeEvents) Create(_ context.Context, e *model.Event) error {
	e.ID = 99
	return nil
}

func (f *fakeEvents) Update(_ context.Context, e *model.Event, clubID uint64) error {
	if clubID != 0 && clubID != e.ClubID {
		return repository.ErrNotFound
	}
	f.events[e.ID] = *e
	return nil
}

func (f *fakeEvents) SaveConfig(_ context.Context, id uint64, cfg model.EventConfig) error {
	if _, ok := f.events[id]; !ok {
		return repository.ErrNotFound
	}
	f.savedCfg = &cfg
	return nil
}

func (f *fakeEvents) Delete(_ context.Context, _ uint64, clubID uint64) error {
	f.deleted = append(f.deleted, clubID)
	return nil
}

func (f *fakeEvents) ListByClub(_ context.Context, clubID uint64, page, size int) (repository.Page[model.Event], error) {
	f.listClub = clubID
	return repository.NewPage([]model.Event{}, 0, page, size), nil
}

func (f *fakeEvents) ListActive(_ context.Context, clubID uint64, _ time.Time) ([]model.Event, error) {
	f.listClub = clubID
	return []model.Event{}, nil
}

func eventFixture() (*EventHandler, *fakeEvents, *int) {
	store := &fakeEvents{events: map[uint64]model.Event{
		5: {ID: 5, ClubID: 3, Name: "Spring Gala", Slug: "spring-gala", Config: model.DefaultEventConfig()},
	}}
	invalidations := 0
	h := NewEventHandler(store, func(context.Context) error { invalidations++; return nil }, zerolog.Nop())
	return h, store, &invalidations
}

func TestEventCreate(t *testing.T) {
	h, _, inv := eventFixture()

	body := `{"name":"Summer Fest","start_datetime":"2025-07-01T18:00:00Z","currency":"eur"}`
	c, rec := newCtx(http.MethodPost, "/api/events", body)
	asAdmin(c, 7, 3)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slug":"summer-fest"`)
	assert.Contains(t, rec.Body.String(), `"currency":"EUR"`)
	assert.Contains(t, rec.Body.String(), `"club_id":3`)
	assert.Contains(t, rec.Body.String(), `"timezone":"UTC"`)
	assert.Equal(t, 1, *inv)

	h.DefaultCurrency = "CAD"
	c, rec = newCtx(http.MethodPost, "/api/events", `{"name":"Winter Fest","start_datetime":"2025-12-01T18:00:00Z"}`)
	asAdmin(c, 7, 3)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"currency":"CAD"`)
}

func TestEventCreate_Rejects(t *testing.T) {
	h, store, _ := eventFixture()
	store.takenSlug = "taken"

	cases := map[string]string{
		"missing name":   `{"start_datetime":"2025-07-01T18:00:00Z"}`,
		"end before":     `{"name":"A","start_datetime":"2025-07-01T18:00:00Z","end_datetime":"2025-07-01T10:00:00Z"}`,
		"slug taken":     `{"name":"A","slug":"taken","start_datetime":"2025-07-01T18:00:00Z"}`,
		"bad tax type":   `{"name":"A","start_datetime":"2025-07-01T18:00:00Z","tax_type":"vat"}`,
		"malformed json": `{"name":`,
	}
	for name, body := range cases {
		c, rec := newCtx(http.MethodPost, "/api/events", body)
		asAdmin(c, 7, 3)
		require.NoError(t, h.Create(c), name)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}

	// SUDO has no club of its own and must name one
	c, rec := newCtx(http.MethodPost, "/api/events", `{"name":"A","start_datetime":"2025-07-01T18:00:00Z"}`)
	asSudo(c)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventUpdate_OtherClub(t *testing.T) {
	h, _, _ := eventFixture()
	c, rec := newCtx(http.MethodPut, "/api/events/5", `{"name":"Renamed","start_datetime":"2025-07-01T18:00:00Z"}`)
	withParams(c, "id", "5")
	asAdmin(c, 9, 4)
	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventGetBySlug(t *testing.T) {
	h, _, _ := eventFixture()

	c, rec := newCtx(http.MethodGet, "/api/public/events/spring-gala", "")
	withParams(c, "slug", "spring-gala")
	require.NoError(t, h.GetBySlug(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newCtx(http.MethodGet, "/api/public/events/nope", "")
	withParams(c, "slug", "nope")
	require.NoError(t, h.GetBySlug(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventSaveConfig(t *testing.T) {
	h, store, _ := eventFixture()

	body := `{"isAllDay":"true","maxTicketsPerRegistration":"4","dateFormat":"DD MMM YYYY","timezone":"Europe/Berlin"}`
	c, rec := newCtx(http.MethodPut, "/api/events/5/config", body)
	withParams(c, "id", "5")
	asAdmin(c, 7, 3)
	require.NoError(t, h.SaveConfig(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.savedCfg)
	assert.True(t, store.savedCfg.IsAllDay)
	assert.Equal(t, 4, store.savedCfg.MaxTicketsPerRegistration)

	c, rec = newCtx(http.MethodPut, "/api/events/5/config", `{"timezone":"Mars/Olympus"}`)
	withParams(c, "id", "5")
	require.NoError(t, h.SaveConfig(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventDelete_SudoUsesEventClub(t *testing.T) {
	h, store, _ := eventFixture()
	c, rec := newCtx(http.MethodDelete, "/api/events/5", "")
	withParams(c, "id", "5")
	asSudo(c)
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []uint64{3}, store.deleted)
}

func TestEventList(t *testing.T) {
	h, store, _ := eventFixture()

	c, rec := newCtx(http.MethodGet, "/api/events?page=2&itemsPerPage=500", "")
	asAdmin(c, 7, 3)
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(3), store.listClub)
	assert.Contains(t, rec.Body.String(), `"itemsPerPage":100`)

	c, rec = newCtx(http.MethodGet, "/api/clubs/9/events", "")
	asSudo(c)
	withParams(c, "clubId", "9")
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(9), store.listClub)

	c, rec = newCtx(http.MethodGet, "/api/events", "")
	asSudo(c)
	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newCtx(http.MethodGet, "/api/public/events/active", "")
	require.NoError(t, h.ListActive(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
