package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"campusconnect/internal/model"
)

// MemoryRepository is a process-local Repository for development runs
// without Mongo and for tests. It mirrors the Mongo query semantics.
type MemoryRepository struct {
	mu     sync.RWMutex
	events map[primitive.ObjectID]model.Event
	users  map[primitive.ObjectID]model.User
	admins map[primitive.ObjectID]model.Admin
	now    func() time.Time
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		events: make(map[primitive.ObjectID]model.Event),
		users:  make(map[primitive.ObjectID]model.User),
		admins: make(map[primitive.ObjectID]model.Admin),
		now:    time.Now,
	}
}

func (m *MemoryRepository) EnsureIndexes(context.Context) error { return nil }

func (m *MemoryRepository) CreateEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ApplyDefaults(m.now())
	e.ID = primitive.NewObjectID()
	m.events[e.ID] = *e
	return nil
}

func (m *MemoryRepository) InsertEvents(ctx context.Context, events []model.Event) ([]model.Event, error) {
	for i := range events {
		if err := m.CreateEvent(ctx, &events[i]); err != nil {
			return nil, err
		}
	}
	return events, nil
}

func (m *MemoryRepository) GetEventByID(_ context.Context, id string) (*model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrEventNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[oid]
	if !ok {
		return nil, ErrEventNotFound
	}
	return &e, nil
}

func (m *MemoryRepository) FindEventByText(ctx context.Context, text string) (*model.Event, error) {
	if text == "" {
		return nil, ErrEventNotFound
	}
	events, _ := m.GetAllEvents(ctx)
	needle := strings.ToLower(text)

	matchers := []func(model.Event) bool{
		func(e model.Event) bool { return strings.ToLower(e.Title) == needle },
		func(e model.Event) bool { return strings.Contains(strings.ToLower(e.Title), needle) },
		func(e model.Event) bool { return strings.Contains(strings.ToLower(e.Category), needle) },
	}
	for _, match := range matchers {
		for _, e := range events {
			if match(e) {
				return &e, nil
			}
		}
	}
	return nil, ErrEventNotFound
}

func (m *MemoryRepository) GetAllEvents(context.Context) ([]model.Event, error) {
	m.mu.RLock()
	events := make([]model.Event, 0, len(m.events))
	for _, e := range m.events {
		events = append(events, e)
	}
	m.mu.RUnlock()

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date.Equal(events[j].Date) {
			return events[i].ID.Hex() < events[j].ID.Hex()
		}
		return events[i].Date.Before(events[j].Date)
	})
	return events, nil
}

func (m *MemoryRepository) UpdateEvent(_ context.Context, id string, p model.EventPatch) (*model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrEventNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[oid]
	if !ok {
		return nil, ErrEventNotFound
	}

	setString(&e.Title, p.Title)
	setString(&e.Club, p.Club)
	setString(&e.Description, p.Description)
	setString(&e.RegistrationLink, p.RegistrationLink)
	setString(&e.GoogleForm, p.GoogleForm)
	setString(&e.Image, p.Image)
	setString(&e.Category, p.Category)
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Deadline != nil {
		d := *p.Deadline
		e.Deadline = &d
	}
	if p.EndDate != nil {
		d := *p.EndDate
		e.EndDate = &d
	}

	m.events[oid] = e
	return &e, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (m *MemoryRepository) DeleteEvent(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrEventNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[oid]; !ok {
		return ErrEventNotFound
	}
	delete(m.events, oid)
	return nil
}

func (m *MemoryRepository) DeleteAllEvents(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = make(map[primitive.ObjectID]model.Event)
	return nil
}

func (m *MemoryRepository) GetUserBySRN(_ context.Context, srn string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.SRN == srn {
			return copyUser(u), nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *MemoryRepository) GetUserByID(_ context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[oid]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(u), nil
}

func copyUser(u model.User) *model.User {
	u.RegisteredEvents = append([]primitive.ObjectID(nil), u.RegisteredEvents...)
	return &u
}

func (m *MemoryRepository) UpsertUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.users {
		if existing.SRN == u.SRN {
			existing.Name = u.Name
			existing.Password = u.Password
			m.users[id] = existing
			u.ID = id
			u.RegisteredEvents = append([]primitive.ObjectID(nil), existing.RegisteredEvents...)
			return nil
		}
	}
	u.ID = primitive.NewObjectID()
	u.RegisteredEvents = []primitive.ObjectID{}
	m.users[u.ID] = *copyUser(*u)
	return nil
}

func (m *MemoryRepository) DeleteAllUsers(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users = make(map[primitive.ObjectID]model.User)
	return nil
}

func (m *MemoryRepository) AddRegisteredEvent(_ context.Context, userID, eventID string) (bool, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, ErrUserNotFound
	}
	eid, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return false, ErrEventNotFound
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return false, ErrUserNotFound
	}
	for _, id := range u.RegisteredEvents {
		if id == eid {
			return false, nil
		}
	}
	u.RegisteredEvents = append(u.RegisteredEvents, eid)
	m.users[uid] = u
	return true, nil
}

func (m *MemoryRepository) GetRegisteredEvents(ctx context.Context, userID string) ([]model.Event, error) {
	u, err := m.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	events := make([]model.Event, 0, len(u.RegisteredEvents))
	for _, id := range u.RegisteredEvents {
		if e, ok := m.events[id]; ok {
			events = append(events, e)
		}
	}
	return events, nil
}

func (m *MemoryRepository) GetAdminByAdminID(_ context.Context, adminID string) (*model.Admin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.admins {
		if a.AdminID == adminID {
			return &a, nil
		}
	}
	return nil, ErrAdminNotFound
}

func (m *MemoryRepository) CountAdmins(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.admins)), nil
}

func (m *MemoryRepository) UpsertAdmin(_ context.Context, a *model.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.admins {
		if existing.AdminID == a.AdminID {
			existing.Password = a.Password
			if a.Name != "" {
				existing.Name = a.Name
			}
			m.admins[id] = existing
			a.ID = id
			return nil
		}
	}
	a.ID = primitive.NewObjectID()
	m.admins[a.ID] = *a
	return nil
}
