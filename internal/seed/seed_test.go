package seed

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"campusconnect/internal/model"
	"campusconnect/internal/repo"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()
	r := repo.NewMemoryRepository()
	now := time.Date(2025, 11, 1, 15, 0, 0, 0, time.UTC)

	stale := &model.Event{Title: "Stale", Date: now}
	require.NoError(t, r.CreateEvent(ctx, stale))

	res, err := Run(ctx, r, now, &log)
	require.NoError(t, err)
	assert.Equal(t, Result{Events: 4, Students: 2, Admins: 1}, res)

	events, err := r.GetAllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "Hack-O-Ween", events[0].Title)
	assert.Equal(t, "Orientation", events[1].Title)
	assert.Equal(t, "Hackathon", events[2].Title)
	assert.Equal(t, "Cultural Night", events[3].Title)
	assert.Equal(t, model.DefaultCategory, events[1].Category)

	u, err := r.GetUserBySRN(ctx, "PES1UG21CS001")
	require.NoError(t, err)
	assert.Equal(t, "Alice", u.Name)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("PES1UG21CS001")))

	a, err := r.GetAdminByAdminID(ctx, "ADMIN01")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(a.Password), []byte("Admin01Pass")))

	// a second run leaves the same data behind
	_, err = Run(ctx, r, now, &log)
	require.NoError(t, err)
	events, _ = r.GetAllEvents(ctx)
	assert.Len(t, events, 4)
	n, _ := r.CountAdmins(ctx)
	assert.EqualValues(t, 1, n)
}

func TestUpsertResetsPassword(t *testing.T) {
	ctx := context.Background()
	r := repo.NewMemoryRepository()

	require.NoError(t, UpsertStudent(ctx, r, Account{ID: "s1", Name: "Test Student", Password: "old"}))
	first, _ := r.GetUserBySRN(ctx, "s1")
	require.NoError(t, UpsertStudent(ctx, r, Account{ID: "s1", Name: "Test Student", Password: "student123"}))
	second, _ := r.GetUserBySRN(ctx, "s1")

	assert.Equal(t, first.ID, second.ID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(second.Password), []byte("student123")))

	require.NoError(t, UpsertAdmin(ctx, r, Account{ID: "AD101", Password: "x"}))
	require.NoError(t, UpsertAdmin(ctx, r, Account{ID: "AD101", Password: "admin123"}))
	n, _ := r.CountAdmins(ctx)
	assert.EqualValues(t, 1, n)
}
