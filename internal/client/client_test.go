package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusconnect/internal/api/api"
	"campusconnect/internal/dto"
	"campusconnect/internal/model"
	"campusconnect/internal/notify"
	"campusconnect/internal/reconciler"
	"campusconnect/internal/repo"
	"campusconnect/internal/service"
	"campusconnect/internal/session"
)

func newServer(t *testing.T) (*httptest.Server, *repo.MemoryRepository) {
	t.Helper()
	log := zerolog.Nop()
	store := repo.NewMemoryRepository()
	sessions := session.NewManager(session.NewMemoryStore(), session.Options{Secret: "test"})
	svc := service.NewService(store, &log, sessions, nil, service.UploadConfig{Dir: t.TempDir()})
	srv := httptest.NewServer(api.NewRouters(&api.Routers{Service: svc, Sessions: sessions, Mode: "test"}))
	t.Cleanup(srv.Close)

	ctx := context.Background()
	hash, err := service.HashPassword("student123")
	require.NoError(t, err)
	require.NoError(t, store.UpsertUser(ctx, &model.User{SRN: "PES1UG21CS001", Name: "Alice", Password: hash}))
	_, err = service.EnsureDefaultAdmin(ctx, store, "AD101", "admin123")
	require.NoError(t, err)
	return srv, store
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("localhost:5000", "")
	assert.Error(t, err)
}

func TestClient_SessionSurvivesRestart(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()
	state := filepath.Join(t.TempDir(), "session.json")

	c, err := New(srv.URL, state)
	require.NoError(t, err)

	p, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = c.Login(ctx, "PES1UG21CS001", "student123")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Alice", p.Name)
	assert.FileExists(t, state)

	again, err := New(srv.URL, state)
	require.NoError(t, err)
	p, err = again.Me(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "PES1UG21CS001", p.SRN)

	require.NoError(t, again.Logout(ctx))
	_, err = os.Stat(state)
	assert.True(t, os.IsNotExist(err))

	p, err = c.Me(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestClient_APIErrors(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()
	c, err := New(srv.URL, "")
	require.NoError(t, err)

	_, err = c.Login(ctx, "PES1UG21CS001", "wrong")
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid credentials", apiErr.Message)

	_, err = c.Mine(ctx)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	_, err = c.CreateEvent(ctx, dto.CreateEventRequest{Title: "X", Date: "2025-11-10"})
	assert.True(t, IsStatus(err, http.StatusUnauthorized))

	_, err = c.Event(ctx, "nothing here")
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestClient_AdminCreatesStudentRegisters(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()

	admin, err := New(srv.URL, "")
	require.NoError(t, err)
	_, err = admin.AdminLogin(ctx, "AD101", "admin123")
	require.NoError(t, err)
	created, err := admin.CreateEvent(ctx, dto.CreateEventRequest{Title: "Hackathon", Date: "2025-11-10", Category: "Hackathon"})
	require.NoError(t, err)
	_, err = admin.CreateEvent(ctx, dto.CreateEventRequest{Title: "Orientation", Date: "2025-11-05"})
	require.NoError(t, err)

	events, err := admin.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Orientation", events[0].Title)

	groups, err := admin.GroupedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Hackathon", groups[0].Category)

	found, err := admin.Event(ctx, "hackathon")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	student, err := New(srv.URL, "")
	require.NoError(t, err)
	_, err = student.Login(ctx, "PES1UG21CS001", "student123")
	require.NoError(t, err)

	ack, err := student.Register(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "registered", ack)
	ack, err = student.Register(ctx, created.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "already registered", ack)

	mine, err := student.Mine(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Hackathon", mine[0].Title)

	require.NoError(t, admin.DeleteEvent(ctx, created.ID.Hex()))
	assert.True(t, IsStatus(admin.DeleteEvent(ctx, created.ID.Hex()), http.StatusNotFound))
}

func TestClient_AdminUpdatesAndUploads(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()

	admin, err := New(srv.URL, "")
	require.NoError(t, err)
	_, err = admin.AdminLogin(ctx, "AD101", "admin123")
	require.NoError(t, err)
	created, err := admin.CreateEvent(ctx, dto.CreateEventRequest{Title: "Hackathon", Date: "2025-11-10"})
	require.NoError(t, err)

	title, club := "Hackathon 2.0", "Coding Club"
	updated, err := admin.UpdateEvent(ctx, created.ID.Hex(), dto.UpdateEventRequest{Title: &title, Club: &club})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Hackathon 2.0", updated.Title)
	assert.Equal(t, "Coding Club", updated.Club)
	assert.True(t, created.Date.Equal(updated.Date))

	poster := filepath.Join(t.TempDir(), "poster.png")
	require.NoError(t, os.WriteFile(poster, append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...), 0o600))
	url, err := admin.UploadImage(ctx, poster)
	require.NoError(t, err)
	assert.Contains(t, url, "/uploads/image-")
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	notImage := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("just text"), 0o600))
	_, err = admin.UploadImage(ctx, notImage)
	assert.True(t, IsStatus(err, http.StatusBadRequest))

	student, err := New(srv.URL, "")
	require.NoError(t, err)
	_, err = student.Login(ctx, "PES1UG21CS001", "student123")
	require.NoError(t, err)
	_, err = student.UpdateEvent(ctx, created.ID.Hex(), dto.UpdateEventRequest{Title: &title})
	assert.True(t, IsStatus(err, http.StatusForbidden))
	_, err = student.UploadImage(ctx, poster)
	assert.True(t, IsStatus(err, http.StatusForbidden))
}

func TestAuthority_WithReconciler(t *testing.T) {
	srv, store := newServer(t)
	ctx := context.Background()
	e := &model.Event{Title: "Hackathon", Date: time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, store.CreateEvent(ctx, e))

	c, err := New(srv.URL, "")
	require.NoError(t, err)
	_, err = c.Login(ctx, "PES1UG21CS001", "student123")
	require.NoError(t, err)

	bus := notify.NewBus()
	var seen int
	bus.Subscribe(func(notify.Message) { seen++ })
	fallback := reconciler.NewMemoryStore()
	r := reconciler.New(Authority{C: c}, fallback, bus, nil)

	out, err := r.RegisterIntent(ctx, reconciler.EntryFromEvent(*e))
	require.NoError(t, err)
	assert.Equal(t, reconciler.OutcomeConfirmed, out)

	// not on the server yet, so it lands in the fallback list
	out, err = r.RegisterIntent(ctx, reconciler.Entry{Title: "Kodikon", Date: "2025-12-01"})
	require.NoError(t, err)
	assert.Equal(t, reconciler.OutcomeStoredLocally, out)
	assert.Equal(t, 3, seen)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	local, err := fallback.Load(ctx, reconciler.ScopeKey(me))
	require.NoError(t, err)
	require.Len(t, local, 1)

	listing, err := r.ListMine(ctx)
	require.NoError(t, err)
	assert.False(t, listing.Partial)
	require.Len(t, listing.Events, 2)
	assert.Equal(t, e.ID.Hex(), listing.Events[0].ID)
	assert.Equal(t, "Kodikon", listing.Events[1].Title)
}

func TestAuthority_ServerDown(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()
	c, err := New(srv.URL, "")
	require.NoError(t, err)
	srv.Close()

	fallback := reconciler.NewMemoryStore()
	r := reconciler.New(Authority{C: c}, fallback, nil, nil)

	out, err := r.RegisterIntent(ctx, reconciler.Entry{ID: "65f000000000000000000001", Title: "Hackathon"})
	require.NoError(t, err)
	assert.Equal(t, reconciler.OutcomeStoredLocally, out)

	local, err := fallback.Load(ctx, "localRegisteredEvents:anon")
	require.NoError(t, err)
	assert.Len(t, local, 1)

	listing, err := r.ListMine(ctx)
	require.NoError(t, err)
	assert.True(t, listing.Partial)
	assert.Len(t, listing.Events, 1)
}
