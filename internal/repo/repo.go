package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusconnect/internal/model"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrAdminNotFound = errors.New("admin not found")
	ErrDuplicate     = errors.New("duplicate key")
)

const (
	eventsCollection   = "events"
	usersCollection    = "users"
	adminsCollection   = "admins"
	sessionsCollection = "sessions"
)

type EventStore interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	FindEventByText(ctx context.Context, text string) (*model.Event, error)
	GetAllEvents(ctx context.Context) ([]model.Event, error)
	UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	DeleteAllEvents(ctx context.Context) error
	InsertEvents(ctx context.Context, events []model.Event) ([]model.Event, error)
}

type UserStore interface {
	GetUserBySRN(ctx context.Context, srn string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpsertUser(ctx context.Context, u *model.User) error
	DeleteAllUsers(ctx context.Context) error
	// AddRegisteredEvent reports whether the event was newly added.
	AddRegisteredEvent(ctx context.Context, userID, eventID string) (bool, error)
	GetRegisteredEvents(ctx context.Context, userID string) ([]model.Event, error)
}

type AdminStore interface {
	GetAdminByAdminID(ctx context.Context, adminID string) (*model.Admin, error)
	CountAdmins(ctx context.Context) (int64, error)
	UpsertAdmin(ctx context.Context, a *model.Admin) error
}

type Repository interface {
	EventStore
	UserStore
	AdminStore
	EnsureIndexes(ctx context.Context) error
}

type repository struct {
	db  *mongo.Database
	log *zerolog.Logger
	now func() time.Time
}

func NewRepository(ctx context.Context, client *mongo.Client, dbName string, log *zerolog.Logger) (Repository, error) {
	if client == nil {
		return nil, fmt.Errorf("mongo client cannot be nil")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &repository{db: client.Database(dbName), log: log, now: time.Now}, nil
}

func (r *repository) events() *mongo.Collection { return r.db.Collection(eventsCollection) }
func (r *repository) users() *mongo.Collection  { return r.db.Collection(usersCollection) }
func (r *repository) admins() *mongo.Collection { return r.db.Collection(adminsCollection) }

// EnsureIndexes creates the unique and ordering indexes the queries rely on.
func (r *repository) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{r.users(), mongo.IndexModel{Keys: bson.D{{Key: "srn", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{r.admins(), mongo.IndexModel{Keys: bson.D{{Key: "adminId", Value: 1}}, Options: options.Index().SetUnique(true)}},
		{r.events(), mongo.IndexModel{Keys: bson.D{{Key: "date", Value: 1}}}},
		{r.db.Collection(sessionsCollection), mongo.IndexModel{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		}},
	}

	for _, idx := range indexes {
		if _, err := idx.coll.Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.coll.Name(), err)
		}
	}

	r.log.Info().Msg("Mongo indexes ensured")
	return nil
}
