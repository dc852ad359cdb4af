// Package reconciler presents one deduplicated "my registered events" view
// over two uncoordinated write paths: the server's registration record and
// a client-local fallback list used when the server write does not go
// through.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"campusconnect/internal/model"
	"campusconnect/internal/notify"
)

const (
	scopePrefix = "localRegisteredEvents:"
	anonScope   = scopePrefix + "anon"

	ackRegistered        = "registered"
	ackAlreadyRegistered = "already registered"
)

// Entry is the fixed shape kept for a registered event in either store.
type Entry struct {
	ID               string `json:"id,omitempty"`
	Title            string `json:"title"`
	Date             string `json:"date,omitempty"`
	Club             string `json:"club,omitempty"`
	Description      string `json:"description,omitempty"`
	Image            string `json:"image,omitempty"`
	RegistrationLink string `json:"registrationLink,omitempty"`
}

// EntryFromEvent snapshots a server event.
func EntryFromEvent(e model.Event) Entry {
	entry := Entry{
		Title:            e.Title,
		Club:             e.Club,
		Description:      e.Description,
		Image:            e.Image,
		RegistrationLink: e.Link(),
	}
	if !e.ID.IsZero() {
		entry.ID = e.ID.Hex()
	}
	if !e.Date.IsZero() {
		entry.Date = e.Date.Format(time.RFC3339)
	}
	return entry
}

// sameEvent reports whether a and b can be proven to be the same event:
// equal ids, or equal titles when either id is missing.
func sameEvent(a, b Entry) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return a.Title != "" && a.Title == b.Title
}

// storedAs reports whether stored already covers snapshot in a fallback
// list: same id, or same title regardless of ids.
func storedAs(stored, snapshot Entry) bool {
	if stored.ID != "" && stored.ID == snapshot.ID {
		return true
	}
	return stored.Title != "" && stored.Title == snapshot.Title
}

type Outcome int

const (
	// OutcomeFailed comes with a non-nil error.
	OutcomeFailed Outcome = iota
	OutcomeAlreadyRegistered
	OutcomeConfirmed
	OutcomeStoredLocally
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeAlreadyRegistered:
		return "already registered"
	case OutcomeConfirmed:
		return "registered"
	case OutcomeStoredLocally:
		return "saved locally"
	default:
		return "unknown"
	}
}

// Authority is the server side of registration.
type Authority interface {
	// WhoAmI returns the current principal, or nil when anonymous.
	WhoAmI(ctx context.Context) (*model.Principal, error)
	// Register returns the server's acknowledgement message.
	Register(ctx context.Context, eventID string) (string, error)
	Mine(ctx context.Context) ([]Entry, error)
}

// FallbackStore persists fallback lists by scope key.
type FallbackStore interface {
	Load(ctx context.Context, key string) ([]Entry, error)
	Save(ctx context.Context, key string, entries []Entry) error
}

// ScopeKey partitions the fallback store by principal.
func ScopeKey(p *model.Principal) string {
	if p == nil || p.ID == "" {
		return anonScope
	}
	return scopePrefix + p.ID
}

// Listing is the merged view. Partial is set when the server list could
// not be read and only fallback entries are shown.
type Listing struct {
	Events  []Entry
	Partial bool
}

type Reconciler struct {
	authority Authority
	fallback  FallbackStore
	pub       notify.Publisher
	log       *zerolog.Logger
	now       func() time.Time

	mu     sync.Mutex
	marked map[string]struct{}
	titles map[string]struct{}
}

func New(authority Authority, fallback FallbackStore, pub notify.Publisher, log *zerolog.Logger) *Reconciler {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	return &Reconciler{
		authority: authority,
		fallback:  fallback,
		pub:       pub,
		log:       log,
		now:       time.Now,
		marked:    make(map[string]struct{}),
		titles:    make(map[string]struct{}),
	}
}

// RegisterIntent records the intent to attend the event described by
// snapshot. The UI state and the "registered" notification change before
// the server is asked; a failed server write lands in the fallback store.
// Only a fallback store failure is returned as an error. A snapshot
// without an id is known by its title until it gets a local one.
func (r *Reconciler) RegisterIntent(ctx context.Context, snapshot Entry) (Outcome, error) {
	byTitle := snapshot.ID == ""
	if byTitle {
		snapshot.ID = r.localID()
	}

	if !r.mark(snapshot, byTitle) {
		return OutcomeAlreadyRegistered, nil
	}
	r.publish(ctx, snapshot)

	ack, err := r.authority.Register(ctx, snapshot.ID)
	if err == nil && (ack == ackRegistered || ack == ackAlreadyRegistered) {
		r.log.Debug().Str("event_id", snapshot.ID).Str("ack", ack).Msg("registration confirmed")
		return OutcomeConfirmed, nil
	}
	if err == nil {
		err = fmt.Errorf("unexpected acknowledgement %q", ack)
	}
	r.log.Warn().Err(err).Str("event_id", snapshot.ID).Msg("server registration failed, storing locally")

	key := r.scopeKey(ctx)
	entries, err := r.fallback.Load(ctx, key)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("read fallback registrations: %w", err)
	}
	for _, e := range entries {
		if storedAs(e, snapshot) {
			return OutcomeStoredLocally, nil
		}
	}

	entries = append(entries, snapshot)
	if err := r.fallback.Save(ctx, key, entries); err != nil {
		return OutcomeFailed, fmt.Errorf("save fallback registration: %w", err)
	}
	r.publish(ctx, snapshot)
	return OutcomeStoredLocally, nil
}

// ListMine merges the server list with the fallback list for the current
// scope. Server entries come first, then fallback entries in stored order.
func (r *Reconciler) ListMine(ctx context.Context) (Listing, error) {
	server, serverErr := r.authority.Mine(ctx)
	if serverErr != nil {
		r.log.Warn().Err(serverErr).Msg("failed to fetch server registrations")
	}

	key := r.scopeKey(ctx)
	local, localErr := r.fallback.Load(ctx, key)
	if localErr != nil {
		r.log.Warn().Err(localErr).Str("key", key).Msg("failed to read fallback list")
	}

	if serverErr != nil && localErr != nil {
		return Listing{}, errors.Join(serverErr, localErr)
	}

	return Listing{
		Events:  Merge(server, local),
		Partial: serverErr != nil,
	}, nil
}

// Merge unions lists keyed by id, or by title when an id is missing. The
// first occurrence wins and adopts a duplicate's id if it has none.
func Merge(lists ...[]Entry) []Entry {
	merged := make([]Entry, 0)
	for _, list := range lists {
	next:
		for _, e := range list {
			for i := range merged {
				if sameEvent(merged[i], e) {
					if merged[i].ID == "" {
						merged[i].ID = e.ID
					}
					continue next
				}
			}
			merged = append(merged, e)
		}
	}
	return merged
}

// Sync rebuilds the UI state from both stores.
func (r *Reconciler) Sync(ctx context.Context) error {
	listing, err := r.ListMine(ctx)
	if err != nil {
		return err
	}

	marked := make(map[string]struct{}, len(listing.Events))
	titles := make(map[string]struct{}, len(listing.Events))
	for _, e := range listing.Events {
		if e.ID != "" {
			marked[e.ID] = struct{}{}
		}
		if e.Title != "" {
			titles[e.Title] = struct{}{}
		}
	}

	r.mu.Lock()
	r.marked = marked
	r.titles = titles
	r.mu.Unlock()
	return nil
}

func (r *Reconciler) IsRegistered(eventID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.marked[eventID]
	return ok
}

// mark reports false when e was already marked, by title when byTitle is
// set and by id otherwise.
func (r *Reconciler) mark(e Entry, byTitle bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if byTitle {
		if _, ok := r.titles[e.Title]; ok && e.Title != "" {
			return false
		}
	} else if _, ok := r.marked[e.ID]; ok {
		return false
	}
	r.marked[e.ID] = struct{}{}
	if e.Title != "" {
		r.titles[e.Title] = struct{}{}
	}
	return true
}

func (r *Reconciler) localID() string {
	return "local-" + strconv.FormatInt(r.now().UnixMilli(), 10) + "-" + uuid.NewString()[:8]
}

// scopeKey resolves the principal afresh; a failed lookup counts as
// anonymous.
func (r *Reconciler) scopeKey(ctx context.Context) string {
	p, err := r.authority.WhoAmI(ctx)
	if err != nil {
		r.log.Debug().Err(err).Msg("principal lookup failed, using anonymous scope")
		return anonScope
	}
	return ScopeKey(p)
}

func (r *Reconciler) publish(ctx context.Context, e Entry) {
	if r.pub == nil {
		return
	}
	msg := notify.Message{Kind: notify.KindRegistered, EventID: e.ID, Title: e.Title, At: r.now()}
	if err := r.pub.Publish(ctx, msg); err != nil {
		r.log.Warn().Err(err).Msg("failed to publish registration")
	}
}
