package service

import (
	"errors"

	"github.com/wb-go/wbf/ginext"

	"campusconnect/internal/dto"
	"campusconnect/internal/notify"
	"campusconnect/internal/repo"
)

// Mine lists the caller's server-confirmed registrations.
func (s *service) Mine(ctx *ginext.Context) {
	p := principalOf(ctx)
	if p == nil {
		dto.UnauthorizedError(ctx, dto.MsgUnauthenticated)
		return
	}

	events, err := s.repo.GetRegisteredEvents(ctx.Request.Context(), p.ID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			dto.NotFoundError(ctx, dto.MsgUserNotFound)
			return
		}
		s.writeError(ctx, storeError(err))
		return
	}

	dto.SuccessResponse(ctx, dto.MineResponse{RegisteredEvents: events})
}

// Register records the caller's intent to attend. Repeating it is harmless
// and answers "already registered".
func (s *service) Register(ctx *ginext.Context) {
	p := principalOf(ctx)
	if p == nil {
		dto.UnauthorizedError(ctx, dto.MsgUnauthenticated)
		return
	}

	eventID := ctx.Param("id")
	rctx := ctx.Request.Context()

	event, err := s.repo.GetEventByID(rctx, eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			s.writeError(ctx, notFoundError("event not found"))
			return
		}
		s.writeError(ctx, storeError(err))
		return
	}

	added, err := s.repo.AddRegisteredEvent(rctx, p.ID, eventID)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrUserNotFound):
			s.writeError(ctx, notFoundError(dto.MsgUserNotFound))
		case errors.Is(err, repo.ErrEventNotFound):
			s.writeError(ctx, notFoundError("event not found"))
		default:
			s.writeError(ctx, storeError(err))
		}
		return
	}

	if !added {
		dto.SuccessResponse(ctx, dto.RegisterResponse{Message: dto.MsgAlreadyRegistered, EventID: eventID})
		return
	}

	s.log.Info().Str("user_id", p.ID).Str("event_id", eventID).Msg("registration recorded")
	s.publish(rctx, notify.Message{Kind: notify.KindRegistered, EventID: eventID, UserID: p.ID, Title: event.Title})

	dto.SuccessResponse(ctx, dto.RegisterResponse{Message: dto.MsgRegistered, EventID: eventID})
}
