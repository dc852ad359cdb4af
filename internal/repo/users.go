package repo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusconnect/internal/model"
)

func (r *repository) GetUserBySRN(ctx context.Context, srn string) (*model.User, error) {
	return r.findUser(ctx, bson.M{"srn": srn})
}

func (r *repository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return r.findUser(ctx, bson.M{"_id": oid})
}

func (r *repository) findUser(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	if err := r.users().FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// UpsertUser creates the student or replaces name and password of an existing
// one with the same srn. Registrations are preserved.
func (r *repository) UpsertUser(ctx context.Context, u *model.User) error {
	var out model.User
	err := r.users().FindOneAndUpdate(ctx,
		bson.M{"srn": u.SRN},
		bson.M{
			"$set":         bson.M{"name": u.Name, "password": u.Password},
			"$setOnInsert": bson.M{"registeredEvents": bson.A{}},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	u.ID = out.ID
	u.RegisteredEvents = out.RegisteredEvents
	return nil
}

func (r *repository) DeleteAllUsers(ctx context.Context) error {
	if _, err := r.users().DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear users: %w", err)
	}
	return nil
}

func (r *repository) AddRegisteredEvent(ctx context.Context, userID, eventID string) (bool, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, ErrUserNotFound
	}
	eid, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return false, ErrEventNotFound
	}

	res, err := r.users().UpdateOne(ctx,
		bson.M{"_id": uid},
		bson.M{"$addToSet": bson.M{"registeredEvents": eid}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to add registration: %w", err)
	}
	if res.MatchedCount == 0 {
		return false, ErrUserNotFound
	}
	return res.ModifiedCount > 0, nil
}

// GetRegisteredEvents resolves the user's registrations in registration
// order. Ids whose event has since been deleted are skipped.
func (r *repository) GetRegisteredEvents(ctx context.Context, userID string) ([]model.Event, error) {
	u, err := r.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(u.RegisteredEvents) == 0 {
		return []model.Event{}, nil
	}

	cur, err := r.events().Find(ctx, bson.M{"_id": bson.M{"$in": u.RegisteredEvents}})
	if err != nil {
		return nil, fmt.Errorf("failed to get registered events: %w", err)
	}
	defer cur.Close(ctx)

	var found []model.Event
	if err := cur.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode registered events: %w", err)
	}

	byID := make(map[primitive.ObjectID]model.Event, len(found))
	for _, e := range found {
		byID[e.ID] = e
	}
	events := make([]model.Event, 0, len(found))
	for _, id := range u.RegisteredEvents {
		if e, ok := byID[id]; ok {
			events = append(events, e)
		}
	}
	return events, nil
}

func (r *repository) GetAdminByAdminID(ctx context.Context, adminID string) (*model.Admin, error) {
	var a model.Admin
	if err := r.admins().FindOne(ctx, bson.M{"adminId": adminID}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrAdminNotFound
		}
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}
	return &a, nil
}

func (r *repository) CountAdmins(ctx context.Context) (int64, error) {
	n, err := r.admins().CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}

func (r *repository) UpsertAdmin(ctx context.Context, a *model.Admin) error {
	set := bson.M{"password": a.Password}
	if a.Name != "" {
		set["name"] = a.Name
	}

	var out model.Admin
	err := r.admins().FindOneAndUpdate(ctx,
		bson.M{"adminId": a.AdminID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to upsert admin: %w", err)
	}
	a.ID = out.ID
	return nil
}
