package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultClub     = "General"
	DefaultCategory = "Other"

	RoleStudent = "student"
	RoleAdmin   = "admin"
)

type Event struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title            string             `bson:"title" json:"title"`
	Club             string             `bson:"club" json:"club"`
	Description      string             `bson:"description,omitempty" json:"description,omitempty"`
	Date             time.Time          `bson:"date" json:"date"`
	Deadline         *time.Time         `bson:"deadline,omitempty" json:"deadline,omitempty"`
	EndDate          *time.Time         `bson:"endDate,omitempty" json:"endDate,omitempty"`
	RegistrationLink string             `bson:"registrationLink,omitempty" json:"registrationLink,omitempty"`
	GoogleForm       string             `bson:"googleForm,omitempty" json:"googleForm,omitempty"`
	Image            string             `bson:"image,omitempty" json:"image,omitempty"`
	Category         string             `bson:"category" json:"category"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
}

// ApplyDefaults fills the fields the store treats as defaulted.
func (e *Event) ApplyDefaults(now time.Time) {
	if e.Club == "" {
		e.Club = DefaultClub
	}
	if e.Category == "" {
		e.Category = DefaultCategory
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
}

// Link returns the registration link, preferring the explicit one over the form.
func (e *Event) Link() string {
	if e.RegistrationLink != "" {
		return e.RegistrationLink
	}
	return e.GoogleForm
}

// EventPatch is a partial update; nil fields are left untouched.
type EventPatch struct {
	Title            *string
	Club             *string
	Description      *string
	Date             *time.Time
	Deadline         *time.Time
	EndDate          *time.Time
	RegistrationLink *string
	GoogleForm       *string
	Image            *string
	Category         *string
}

func (p EventPatch) Empty() bool {
	return p.Title == nil && p.Club == nil && p.Description == nil && p.Date == nil &&
		p.Deadline == nil && p.EndDate == nil && p.RegistrationLink == nil &&
		p.GoogleForm == nil && p.Image == nil && p.Category == nil
}

type User struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	SRN              string               `bson:"srn" json:"srn"`
	Name             string               `bson:"name" json:"name"`
	Password         string               `bson:"password" json:"-"`
	RegisteredEvents []primitive.ObjectID `bson:"registeredEvents" json:"registeredEvents"`
}

type Admin struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AdminID  string             `bson:"adminId" json:"adminId"`
	Name     string             `bson:"name,omitempty" json:"name"`
	Password string             `bson:"password" json:"-"`
}

// Principal is the identity attached to a session.
type Principal struct {
	ID      string `bson:"id" json:"id"`
	Role    string `bson:"role" json:"role"`
	Name    string `bson:"name" json:"name"`
	SRN     string `bson:"srn,omitempty" json:"srn,omitempty"`
	AdminID string `bson:"adminId,omitempty" json:"adminId,omitempty"`
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

func (p *Principal) IsStudent() bool {
	return p != nil && p.Role == RoleStudent
}

func StudentPrincipal(u *User) Principal {
	return Principal{
		ID:   u.ID.Hex(),
		Role: RoleStudent,
		Name: u.Name,
		SRN:  u.SRN,
	}
}

func AdminPrincipal(a *Admin) Principal {
	return Principal{
		ID:      a.ID.Hex(),
		Role:    RoleAdmin,
		Name:    a.Name,
		AdminID: a.AdminID,
	}
}
