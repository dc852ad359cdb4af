package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"campusconnect/internal/model"
	"campusconnect/internal/notify"
	"campusconnect/internal/repo"
	"campusconnect/internal/session"
)

type Service interface {
	Login(ctx *ginext.Context)
	AdminLogin(ctx *ginext.Context)
	Me(ctx *ginext.Context)
	Logout(ctx *ginext.Context)

	GetAllEvents(ctx *ginext.Context)
	GetEvent(ctx *ginext.Context)
	CreateEvent(ctx *ginext.Context)
	UpdateEvent(ctx *ginext.Context)
	DeleteEvent(ctx *ginext.Context)
	UploadImage(ctx *ginext.Context)

	Mine(ctx *ginext.Context)
	Register(ctx *ginext.Context)
}

type UploadConfig struct {
	Dir string
	// URLPath is the public prefix the upload dir is served under.
	URLPath string
}

type service struct {
	repo     repo.Repository
	log      *zerolog.Logger
	sessions *session.Manager
	pub      notify.Publisher
	uploads  UploadConfig
	now      func() time.Time
}

func NewService(repo repo.Repository, logger *zerolog.Logger, sessions *session.Manager, pub notify.Publisher, uploads UploadConfig) Service {
	if uploads.URLPath == "" {
		uploads.URLPath = "/uploads"
	}
	return &service{
		repo:     repo,
		log:      logger,
		sessions: sessions,
		pub:      pub,
		uploads:  uploads,
		now:      time.Now,
	}
}

// publish is fire-and-forget; a broker outage must not fail the request.
func (s *service) publish(ctx context.Context, msg notify.Message) {
	if s.pub == nil {
		return
	}
	msg.At = s.now()
	if err := s.pub.Publish(ctx, msg); err != nil {
		s.log.Warn().Err(err).Str("kind", string(msg.Kind)).Msg("failed to publish notification")
	}
}

func principalOf(c *ginext.Context) *model.Principal {
	return session.PrincipalFrom(c.Request.Context())
}
