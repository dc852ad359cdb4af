package consumerWorker

import (
	"context"
	"errors"

	"github.com/wb-go/wbf/zlog"

	"campusconnect/internal/model"
	"campusconnect/internal/notify"
	"campusconnect/internal/repo"
)

type Consumer interface {
	Consume(handler func(notify.Message) error) error
}

type Notifier interface {
	SendRegistrationNotice(eventTitle, studentName, studentID string) error
}

type Lookup interface {
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

type Reader struct {
	RMQ    Consumer
	repo   Lookup
	mail   Notifier
	done   chan struct{}
	cancel context.CancelFunc
}

func NewReader(rmq Consumer, repo Lookup, mail Notifier) *Reader {
	return &Reader{
		RMQ:  rmq,
		repo: repo,
		mail: mail,
		done: make(chan struct{}),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	zlog.Logger.Info().Msg("🐇 RabbitMQ Reader started")

	go func() {
		defer close(r.done)

		if err := r.RMQ.Consume(func(msg notify.Message) error {
			return r.handle(cctx, msg)
		}); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("🛑 RabbitMQ Reader stopped by context")
	}()
}

func (r *Reader) handle(ctx context.Context, msg notify.Message) error {
	zlog.Logger.Info().
		Str("kind", string(msg.Kind)).
		Str("event_id", msg.EventID).
		Msg("📩 Received message from RabbitMQ")

	switch msg.Kind {
	case notify.KindRegistered:
		return r.handleRegistered(ctx, msg)
	case notify.KindEventsUpdated:
		zlog.Logger.Info().Str("event_id", msg.EventID).Msg("events catalogue changed")
		return nil
	default:
		zlog.Logger.Warn().Str("kind", string(msg.Kind)).Msg("unknown notification kind, skipping")
		return nil
	}
}

func (r *Reader) handleRegistered(ctx context.Context, msg notify.Message) error {
	event, err := r.repo.GetEventByID(ctx, msg.EventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			zlog.Logger.Info().Str("event_id", msg.EventID).Msg("⏳ Event gone before notice was sent — skipping email")
			return nil
		}
		zlog.Logger.Error().Err(err).Str("event_id", msg.EventID).Msg("Failed to get event from DB in worker")
		return err
	}

	var name string
	if u, err := r.repo.GetUserByID(ctx, msg.UserID); err == nil {
		name = u.Name
	} else if !errors.Is(err, repo.ErrUserNotFound) {
		zlog.Logger.Error().Err(err).Str("user_id", msg.UserID).Msg("Failed to get user from DB in worker")
		return err
	}

	if err := r.mail.SendRegistrationNotice(event.Title, name, msg.UserID); err != nil {
		zlog.Logger.Warn().Err(err).Msg("Failed to send notification on e-mail")
	}
	return nil
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
