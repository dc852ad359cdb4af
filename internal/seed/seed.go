// Package seed loads the demo catalogue and accounts used for local runs.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"campusconnect/internal/model"
	"campusconnect/internal/repo"
	"campusconnect/internal/service"
)

type Account struct {
	ID       string
	Name     string
	Password string
}

var (
	Students = []Account{
		{ID: "PES1UG21CS001", Name: "Alice", Password: "PES1UG21CS001"},
		{ID: "PES1UG21CS002", Name: "Bob", Password: "PES1UG21CS002"},
	}
	Admins = []Account{
		{ID: "ADMIN01", Name: "Admin User", Password: "Admin01Pass"},
	}
)

// Events returns the demo events dated relative to now.
func Events(now time.Time) []model.Event {
	day := func(offset int) time.Time {
		y, m, d := now.Date()
		return time.Date(y, m, d+offset, 0, 0, 0, 0, now.Location())
	}
	deadline := day(5)
	hackoweenEnd := time.Date(2024, 10, 26, 0, 0, 0, 0, time.UTC)

	return []model.Event{
		{
			Title:       "Orientation",
			Club:        "Student Affairs",
			Date:        day(-10),
			Description: "Welcome to a new academic year! Get to know your campus, clubs, and peers.",
		},
		{
			Title:       "Hackathon",
			Club:        "Code Club",
			Category:    "Hackathon",
			Date:        day(10),
			Deadline:    &deadline,
			Description: "A thrilling 24-hour coding marathon with exciting problem statements!",
		},
		{
			Title:       "Cultural Night",
			Club:        "Cultural Club",
			Date:        day(30),
			Description: "An evening of vibrant performances, music, and dance celebrating diversity.",
		},
		{
			Title:            "Hack-O-Ween",
			Club:             "ARCH (Dept. of CSE AI & ML, PES University)",
			Category:         "Hackathon",
			Date:             time.Date(2024, 10, 25, 0, 0, 0, 0, time.UTC),
			EndDate:          &hackoweenEnd,
			Description:      "Trick, Treat, Code, Repeat! A 24-hour hackathon of thrills, chills, and code skills.",
			RegistrationLink: "https://forms.gle/pSB1yqESmhbndWJP7",
		},
	}
}

type Result struct {
	Events   int
	Students int
	Admins   int
}

// Run clears events and students, then inserts the demo data. Admin
// accounts are created or reset in place.
func Run(ctx context.Context, r repo.Repository, now time.Time, log *zerolog.Logger) (Result, error) {
	var res Result

	if err := r.DeleteAllUsers(ctx); err != nil {
		return res, fmt.Errorf("clear users: %w", err)
	}
	if err := r.DeleteAllEvents(ctx); err != nil {
		return res, fmt.Errorf("clear events: %w", err)
	}
	log.Info().Msg("cleared old users and events")

	events, err := r.InsertEvents(ctx, Events(now))
	if err != nil {
		return res, fmt.Errorf("insert events: %w", err)
	}
	res.Events = len(events)

	for _, s := range Students {
		if err := UpsertStudent(ctx, r, s); err != nil {
			return res, err
		}
		log.Info().Str("srn", s.ID).Msg("student created")
		res.Students++
	}
	for _, a := range Admins {
		if err := UpsertAdmin(ctx, r, a); err != nil {
			return res, err
		}
		log.Info().Str("admin_id", a.ID).Msg("admin created")
		res.Admins++
	}
	return res, nil
}

// UpsertStudent creates the student or resets the password of an
// existing one.
func UpsertStudent(ctx context.Context, users repo.UserStore, a Account) error {
	hash, err := service.HashPassword(a.Password)
	if err != nil {
		return err
	}
	if err := users.UpsertUser(ctx, &model.User{SRN: a.ID, Name: a.Name, Password: hash}); err != nil {
		return fmt.Errorf("upsert student %s: %w", a.ID, err)
	}
	return nil
}

// UpsertAdmin creates the admin or resets the password of an existing one.
func UpsertAdmin(ctx context.Context, admins repo.AdminStore, a Account) error {
	hash, err := service.HashPassword(a.Password)
	if err != nil {
		return err
	}
	if err := admins.UpsertAdmin(ctx, &model.Admin{AdminID: a.ID, Name: a.Name, Password: hash}); err != nil {
		return fmt.Errorf("upsert admin %s: %w", a.ID, err)
	}
	return nil
}
