package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusconnect/internal/model"
)

func (r *repository) CreateEvent(ctx context.Context, e *model.Event) error {
	e.ApplyDefaults(r.now())

	res, err := r.events().InsertOne(ctx, e)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	e.ID = id
	return nil
}

func (r *repository) InsertEvents(ctx context.Context, events []model.Event) ([]model.Event, error) {
	if len(events) == 0 {
		return nil, nil
	}
	docs := make([]interface{}, 0, len(events))
	for i := range events {
		events[i].ApplyDefaults(r.now())
		docs = append(docs, events[i])
	}

	res, err := r.events().InsertMany(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to insert events: %w", err)
	}
	for i, raw := range res.InsertedIDs {
		if id, ok := raw.(primitive.ObjectID); ok {
			events[i].ID = id
		}
	}
	return events, nil
}

// GetEventByID returns ErrEventNotFound for ids that are not valid ObjectIDs.
func (r *repository) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrEventNotFound
	}

	var e model.Event
	if err := r.events().FindOne(ctx, bson.M{"_id": oid}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

// FindEventByText matches, in order of preference, the exact title, a title
// substring and a category substring, all case-insensitive.
func (r *repository) FindEventByText(ctx context.Context, text string) (*model.Event, error) {
	if text == "" {
		return nil, ErrEventNotFound
	}
	quoted := regexp.QuoteMeta(text)

	filters := []bson.M{
		{"title": primitive.Regex{Pattern: "^" + quoted + "$", Options: "i"}},
		{"title": primitive.Regex{Pattern: quoted, Options: "i"}},
		{"category": primitive.Regex{Pattern: quoted, Options: "i"}},
	}

	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: 1}})
	for _, filter := range filters {
		var e model.Event
		err := r.events().FindOne(ctx, filter, opts).Decode(&e)
		if err == nil {
			return &e, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to search events: %w", err)
		}
	}
	return nil, ErrEventNotFound
}

func (r *repository) GetAllEvents(ctx context.Context) ([]model.Event, error) {
	cur, err := r.events().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer cur.Close(ctx)

	events := make([]model.Event, 0)
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

func (r *repository) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrEventNotFound
	}

	set := patchToSet(patch)
	if len(set) == 0 {
		return r.GetEventByID(ctx, id)
	}

	var e model.Event
	err = r.events().FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return &e, nil
}

func patchToSet(p model.EventPatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Club != nil {
		set["club"] = *p.Club
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Date != nil {
		set["date"] = *p.Date
	}
	if p.Deadline != nil {
		set["deadline"] = *p.Deadline
	}
	if p.EndDate != nil {
		set["endDate"] = *p.EndDate
	}
	if p.RegistrationLink != nil {
		set["registrationLink"] = *p.RegistrationLink
	}
	if p.GoogleForm != nil {
		set["googleForm"] = *p.GoogleForm
	}
	if p.Image != nil {
		set["image"] = *p.Image
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	return set
}

func (r *repository) DeleteEvent(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrEventNotFound
	}

	res, err := r.events().DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *repository) DeleteAllEvents(ctx context.Context) error {
	if _, err := r.events().DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}
	return nil
}
