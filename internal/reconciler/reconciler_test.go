package reconciler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusconnect/internal/model"
	"campusconnect/internal/notify"
)

var errNetwork = errors.New("dial tcp: connection refused")

type fakeAuthority struct {
	principal   *model.Principal
	whoAmICalls int

	registerErr error
	ack         string
	registered  []string

	mine    []Entry
	mineErr error
}

func (f *fakeAuthority) WhoAmI(context.Context) (*model.Principal, error) {
	f.whoAmICalls++
	return f.principal, nil
}

func (f *fakeAuthority) Register(_ context.Context, eventID string) (string, error) {
	f.registered = append(f.registered, eventID)
	if f.registerErr != nil {
		return "", f.registerErr
	}
	if f.ack == "" {
		return ackRegistered, nil
	}
	return f.ack, nil
}

func (f *fakeAuthority) Mine(context.Context) ([]Entry, error) {
	return f.mine, f.mineErr
}

type failingStore struct {
	*MemoryStore
	err error
}

func (s failingStore) Save(context.Context, string, []Entry) error { return s.err }

type unreadableStore struct {
	*MemoryStore
	err error
}

func (s unreadableStore) Load(context.Context, string) ([]Entry, error) { return nil, s.err }

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

type recorder struct {
	msgs []notify.Message
}

func newRecorder(bus *notify.Bus) *recorder {
	r := &recorder{}
	bus.Subscribe(func(m notify.Message) { r.msgs = append(r.msgs, m) })
	return r
}

func student(id string) *model.Principal {
	return &model.Principal{ID: id, Role: model.RoleStudent, Name: "Alice"}
}

func TestScopeKey(t *testing.T) {
	assert.Equal(t, "localRegisteredEvents:anon", ScopeKey(nil))
	assert.Equal(t, "localRegisteredEvents:anon", ScopeKey(&model.Principal{}))
	assert.Equal(t, "localRegisteredEvents:u1", ScopeKey(student("u1")))
}

func TestRegisterIntent_Confirmed(t *testing.T) {
	auth := &fakeAuthority{principal: student("u1")}
	store := NewMemoryStore()
	bus := notify.NewBus()
	rec := newRecorder(bus)
	r := New(auth, store, bus, nil)

	out, err := r.RegisterIntent(context.Background(), Entry{ID: "e1", Title: "Hackathon"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, out)
	assert.True(t, r.IsRegistered("e1"))
	assert.Equal(t, []string{"e1"}, auth.registered)

	require.Len(t, rec.msgs, 1)
	assert.Equal(t, notify.KindRegistered, rec.msgs[0].Kind)
	assert.Equal(t, "e1", rec.msgs[0].EventID)

	local, _ := store.Load(context.Background(), "localRegisteredEvents:u1")
	assert.Empty(t, local)
}

func TestRegisterIntent_ServerAlreadyRegisteredIsFinal(t *testing.T) {
	auth := &fakeAuthority{principal: student("u1"), ack: "already registered"}
	store := NewMemoryStore()
	r := New(auth, store, nil, nil)

	out, err := r.RegisterIntent(context.Background(), Entry{ID: "e1", Title: "Hackathon"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, out)
	local, _ := store.Load(context.Background(), "localRegisteredEvents:u1")
	assert.Empty(t, local)
}

func TestRegisterIntent_Idempotent(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthority{principal: student("u1"), registerErr: errNetwork}
	store := NewMemoryStore()
	r := New(auth, store, nil, nil)

	out, err := r.RegisterIntent(ctx, Entry{ID: "e1", Title: "Hackathon"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStoredLocally, out)

	out, err = r.RegisterIntent(ctx, Entry{ID: "e1", Title: "Hackathon"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyRegistered, out)

	assert.Len(t, auth.registered, 1)
	local, _ := store.Load(ctx, "localRegisteredEvents:u1")
	assert.Len(t, local, 1)
}

func TestRegisterIntent_FallbackOnNetworkError(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthority{principal: student("u1"), registerErr: errNetwork}
	store := NewMemoryStore()
	bus := notify.NewBus()
	rec := newRecorder(bus)
	r := New(auth, store, bus, nil)

	out, err := r.RegisterIntent(ctx, Entry{ID: "e1", Title: "Hackathon", Date: "2025-11-10"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStoredLocally, out)

	local, _ := store.Load(ctx, "localRegisteredEvents:u1")
	require.Len(t, local, 1)
	assert.Equal(t, Entry{ID: "e1", Title: "Hackathon", Date: "2025-11-10"}, local[0])

	// optimistic, then fallback confirm
	require.Len(t, rec.msgs, 2)
	for _, m := range rec.msgs {
		assert.Equal(t, notify.KindRegistered, m.Kind)
		assert.Equal(t, "e1", m.EventID)
	}
}

func TestRegisterIntent_UnexpectedAckFallsBack(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthority{ack: "event not found"}
	store := NewMemoryStore()
	r := New(auth, store, nil, nil)

	out, err := r.RegisterIntent(ctx, Entry{ID: "e1", Title: "Hackathon"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStoredLocally, out)

	local, _ := store.Load(ctx, "localRegisteredEvents:anon")
	assert.Len(t, local, 1)
}

func TestRegisterIntent_FallbackDedupesByTitle(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthority{principal: student("u1"), registerErr: errNetwork}
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "localRegisteredEvents:u1", []Entry{{Title: "Hackathon"}}))
	bus := notify.NewBus()
	rec := newRecorder(bus)
	r := New(auth, store, bus, nil)

	out, err := r.RegisterIntent(ctx, Entry{ID: "42", Title: "Hackathon"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStoredLocally, out)

	local, _ := store.Load(ctx, "localRegisteredEvents:u1")
	assert.Len(t, local, 1)
	assert.Len(t, rec.msgs, 1)
}

func TestRegisterIntent_SynthesizesLocalID(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthority{registerErr: errNetwork}
	store := NewMemoryStore()
	r := New(auth, store, nil, nil)

	_, err := r.RegisterIntent(ctx, Entry{Title: "Kodikon"})
	require.NoError(t, err)

	local, _ := store.Load(ctx, "localRegisteredEvents:anon")
	require.Len(t, local, 1)
	assert.Regexp(t, `^local-\d+-[0-9a-f]{8}$`, local[0].ID)
	assert.True(t, r.IsRegistered(local[0].ID))
}

func TestRegisterIntent_SameTitleWithoutIDIsIdempotent(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthority{principal: student("u1"), registerErr: errNetwork}
	store := NewMemoryStore()
	r := New(auth, store, nil, nil)

	out, err := r.RegisterIntent(ctx, Entry{Title: "Kodikon"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStoredLocally, out)

	r.now = fixedClock(2000)
	out, err = r.RegisterIntent(ctx, Entry{Title: "Kodikon"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyRegistered, out)

	assert.Len(t, auth.registered, 1)
	local, _ := store.Load(ctx, "localRegisteredEvents:u1")
	assert.Len(t, local, 1)
}

func TestRegisterIntent_SameTitleAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i, ms := range []int64{1000, 2000} {
		auth := &fakeAuthority{principal: student("u1"), registerErr: errNetwork}
		r := New(auth, store, nil, nil)
		r.now = fixedClock(ms)
		require.NoError(t, r.Sync(ctx))

		out, err := r.RegisterIntent(ctx, Entry{Title: "Kodikon"})
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, OutcomeStoredLocally, out)
		} else {
			assert.Equal(t, OutcomeAlreadyRegistered, out)
			assert.Empty(t, auth.registered)
		}
	}

	// without a Sync the fallback list still refuses a second copy
	r := New(&fakeAuthority{principal: student("u1"), registerErr: errNetwork}, store, nil, nil)
	out, err := r.RegisterIntent(ctx, Entry{Title: "Kodikon"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStoredLocally, out)

	listing, err := r.ListMine(ctx)
	require.NoError(t, err)
	require.Len(t, listing.Events, 1)
	assert.Equal(t, "Kodikon", listing.Events[0].Title)
}

func TestRegisterIntent_DistinctTitlesInSameMillisecond(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	r := New(&fakeAuthority{registerErr: errNetwork}, store, nil, nil)
	r.now = fixedClock(5000)

	for _, title := range []string{"Kodikon", "Robotics Expo"} {
		out, err := r.RegisterIntent(ctx, Entry{Title: title})
		require.NoError(t, err)
		assert.Equal(t, OutcomeStoredLocally, out, title)
	}

	local, _ := store.Load(ctx, "localRegisteredEvents:anon")
	require.Len(t, local, 2)
	assert.NotEqual(t, local[0].ID, local[1].ID)
	assert.Equal(t, "Robotics Expo", local[1].Title)
}

func TestRegisterIntent_FallbackReadFailure(t *testing.T) {
	auth := &fakeAuthority{principal: student("u1"), registerErr: errNetwork}
	boom := errors.New("permission denied")
	r := New(auth, unreadableStore{MemoryStore: NewMemoryStore(), err: boom}, nil, nil)

	out, err := r.RegisterIntent(context.Background(), Entry{ID: "e1", Title: "Hackathon"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, OutcomeFailed, out)
	assert.Equal(t, "failed", out.String())
}

func TestRegisterIntent_FallbackSaveFailureIsReturned(t *testing.T) {
	auth := &fakeAuthority{principal: student("u1"), registerErr: errNetwork}
	boom := errors.New("disk full")
	r := New(auth, failingStore{MemoryStore: NewMemoryStore(), err: boom}, nil, nil)

	out, err := r.RegisterIntent(context.Background(), Entry{ID: "e1", Title: "Hackathon"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, OutcomeFailed, out)
}

func TestRegisterIntent_ScopeKeyFollowsPrincipal(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthority{principal: student("u1"), registerErr: errNetwork}
	store := NewMemoryStore()
	r := New(auth, store, nil, nil)

	_, err := r.RegisterIntent(ctx, Entry{ID: "e1", Title: "Hackathon"})
	require.NoError(t, err)

	auth.principal = student("u2")
	_, err = r.RegisterIntent(ctx, Entry{ID: "e2", Title: "Workshop"})
	require.NoError(t, err)

	u1, _ := store.Load(ctx, "localRegisteredEvents:u1")
	u2, _ := store.Load(ctx, "localRegisteredEvents:u2")
	require.Len(t, u1, 1)
	require.Len(t, u2, 1)
	assert.Equal(t, "e1", u1[0].ID)
	assert.Equal(t, "e2", u2[0].ID)
	assert.Equal(t, 2, auth.whoAmICalls)
}

func TestListMine_Union(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthority{
		principal: student("u1"),
		mine:      []Entry{{ID: "1", Title: "A"}},
	}
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "localRegisteredEvents:u1", []Entry{{ID: "1", Title: "A"}, {Title: "B"}}))
	r := New(auth, store, nil, nil)

	first, err := r.ListMine(ctx)
	require.NoError(t, err)
	assert.False(t, first.Partial)
	require.Len(t, first.Events, 2)
	assert.Equal(t, "A", first.Events[0].Title)
	assert.Equal(t, "B", first.Events[1].Title)

	second, err := r.ListMine(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestListMine_TitleDedup(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthority{principal: student("u1"), mine: []Entry{{ID: "42", Title: "Hackathon"}}}
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "localRegisteredEvents:u1", []Entry{{Title: "Hackathon"}}))
	r := New(auth, store, nil, nil)

	listing, err := r.ListMine(ctx)
	require.NoError(t, err)
	require.Len(t, listing.Events, 1)
	assert.Equal(t, "42", listing.Events[0].ID)
}

func TestListMine_ServerDownShowsFallback(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthority{principal: student("u1"), mineErr: errNetwork}
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "localRegisteredEvents:u1", []Entry{{ID: "gone", Title: "Deleted on server"}}))
	r := New(auth, store, nil, nil)

	listing, err := r.ListMine(ctx)
	require.NoError(t, err)
	assert.True(t, listing.Partial)
	require.Len(t, listing.Events, 1)
	assert.Equal(t, "gone", listing.Events[0].ID)
}

func TestMerge(t *testing.T) {
	cases := []struct {
		name string
		in   [][]Entry
		want []Entry
	}{
		{
			name: "empty",
			want: []Entry{},
		},
		{
			name: "distinct ids with equal titles stay apart",
			in:   [][]Entry{{{ID: "1", Title: "Fest"}}, {{ID: "2", Title: "Fest"}}},
			want: []Entry{{ID: "1", Title: "Fest"}, {ID: "2", Title: "Fest"}},
		},
		{
			name: "local id is not matched against server id",
			in:   [][]Entry{{{ID: "65f0", Title: "Fest"}}, {{ID: "local-1", Title: "Fest"}}},
			want: []Entry{{ID: "65f0", Title: "Fest"}, {ID: "local-1", Title: "Fest"}},
		},
		{
			name: "id-less first entry adopts id",
			in:   [][]Entry{{{Title: "Fest"}}, {{ID: "9", Title: "Fest"}}},
			want: []Entry{{ID: "9", Title: "Fest"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Merge(tc.in...))
		})
	}
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	auth := &fakeAuthority{principal: student("u1"), mine: []Entry{{ID: "s1", Title: "A"}}}
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, "localRegisteredEvents:u1", []Entry{{ID: "l1", Title: "B"}}))
	r := New(auth, store, nil, nil)

	require.NoError(t, r.Sync(ctx))
	assert.True(t, r.IsRegistered("s1"))
	assert.True(t, r.IsRegistered("l1"))
	assert.False(t, r.IsRegistered("other"))

	out, err := r.RegisterIntent(ctx, Entry{ID: "s1", Title: "A"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyRegistered, out)
	assert.Empty(t, auth.registered)
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "registrations.json")
	s := NewFileStore(path)

	got, err := s.Load(ctx, "localRegisteredEvents:u1")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Save(ctx, "localRegisteredEvents:u1", []Entry{{ID: "1", Title: "A"}}))
	require.NoError(t, s.Save(ctx, "localRegisteredEvents:anon", []Entry{{Title: "B"}}))

	reopened := NewFileStore(path)
	got, err = reopened.Load(ctx, "localRegisteredEvents:u1")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{ID: "1", Title: "A"}}, got)
	got, err = reopened.Load(ctx, "localRegisteredEvents:anon")
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Title: "B"}}, got)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err = reopened.Load(ctx, "localRegisteredEvents:u1")
	assert.Error(t, err)
}
