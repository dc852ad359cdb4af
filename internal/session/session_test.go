package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusconnect/internal/model"
)

func newManager(store Store) *Manager {
	return NewManager(store, Options{Secret: "test-secret", TTL: time.Hour})
}

func requestWith(cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func establish(t *testing.T, m *Manager, p model.Principal) (*Session, *http.Cookie) {
	t.Helper()
	rr := httptest.NewRecorder()
	s, err := m.Establish(rr, requestWith(), p)
	require.NoError(t, err)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	return s, cookies[0]
}

func TestManager_EstablishAndLoad(t *testing.T) {
	store := NewMemoryStore()
	m := newManager(store)
	p := model.Principal{ID: "u1", Role: model.RoleStudent, Name: "Alice"}

	s, cookie := establish(t, m, p)
	assert.Equal(t, "campus.sid", cookie.Name)
	assert.True(t, cookie.HttpOnly)

	loaded, err := m.Load(requestWith(cookie))
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, s.ID, loaded.ID)
	assert.Equal(t, p, loaded.Principal)
}

func TestManager_LoadWithoutCookie(t *testing.T) {
	m := newManager(NewMemoryStore())
	s, err := m.Load(requestWith())
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestManager_TamperedCookieIgnored(t *testing.T) {
	m := newManager(NewMemoryStore())
	_, cookie := establish(t, m, model.Principal{ID: "u1", Role: model.RoleStudent})

	cookie.Value = cookie.Value[:len(cookie.Value)-2] + "xx"
	s, err := m.Load(requestWith(cookie))
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestManager_ExpiredSessionIgnored(t *testing.T) {
	m := newManager(NewMemoryStore())
	_, cookie := establish(t, m, model.Principal{ID: "u1", Role: model.RoleStudent})

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	s, err := m.Load(requestWith(cookie))
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestManager_EstablishRotatesOldSession(t *testing.T) {
	store := NewMemoryStore()
	m := newManager(store)
	_, first := establish(t, m, model.Principal{ID: "u1", Role: model.RoleStudent})

	rr := httptest.NewRecorder()
	_, err := m.Establish(rr, requestWith(first), model.Principal{ID: "a1", Role: model.RoleAdmin})
	require.NoError(t, err)

	assert.Equal(t, 1, store.Len())
	s, err := m.Load(requestWith(first))
	assert.NoError(t, err)
	assert.Nil(t, s)
}

func TestManager_DestroyIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	m := newManager(store)
	_, cookie := establish(t, m, model.Principal{ID: "u1", Role: model.RoleStudent})

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		require.NoError(t, m.Destroy(rr, requestWith(cookie)))
		cleared := rr.Result().Cookies()
		require.Len(t, cleared, 1)
		assert.Equal(t, -1, cleared[0].MaxAge)
	}
	assert.Equal(t, 0, store.Len())

	require.NoError(t, m.Destroy(httptest.NewRecorder(), requestWith()))
}

type failingStore struct{ *MemoryStore }

func (f *failingStore) Delete(context.Context, string) error { return errors.New("boom") }

func TestManager_DestroyStoreFailure(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore()}
	m := newManager(store)
	_, cookie := establish(t, m, model.Principal{ID: "u1", Role: model.RoleStudent})

	err := m.Destroy(httptest.NewRecorder(), requestWith(cookie))
	assert.Error(t, err)
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, PrincipalFrom(ctx))

	p := &model.Principal{ID: "u1"}
	assert.Same(t, p, PrincipalFrom(WithPrincipal(ctx, p)))
}
