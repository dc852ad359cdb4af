package service

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/wb-go/wbf/ginext"

	"campusconnect/internal/dto"
	"campusconnect/internal/model"
	"campusconnect/internal/notify"
	"campusconnect/internal/repo"
	"campusconnect/pkg/validator"
)

func (s *service) GetAllEvents(ctx *ginext.Context) {
	events, err := s.repo.GetAllEvents(ctx.Request.Context())
	if err != nil {
		s.writeError(ctx, storeError(err))
		return
	}

	if ctx.Query("grouped") == "true" {
		dto.SuccessResponse(ctx, dto.GroupedEventsResponse{Groups: model.GroupByCategory(events)})
		return
	}
	dto.SuccessResponse(ctx, events)
}

// GetEvent accepts an id or free text. Anything that is not a known id
// falls through to a case-insensitive title/category match.
func (s *service) GetEvent(ctx *ginext.Context) {
	param := ctx.Param("id")
	rctx := ctx.Request.Context()

	event, err := s.repo.GetEventByID(rctx, param)
	if errors.Is(err, repo.ErrEventNotFound) {
		event, err = s.repo.FindEventByText(rctx, param)
	}
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.NotFoundError(ctx, dto.MsgEventNotOnServer)
			return
		}
		s.writeError(ctx, storeError(err))
		return
	}

	dto.SuccessResponse(ctx, event)
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse create event request")
		dto.BadRequestError(ctx, dto.MsgInvalidJSON)
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Error().Msgf("validation failed: %v", verr)
		dto.BadRequestError(ctx, verr.Error())
		return
	}

	event, err := eventFromRequest(req)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	event.ApplyDefaults(s.now())

	if err := s.repo.CreateEvent(ctx.Request.Context(), event); err != nil {
		s.log.Error().Err(err).Msg("failed to create event in DB")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Str("event_id", event.ID.Hex()).Msg("event created successfully")
	s.publish(ctx.Request.Context(), notify.Message{Kind: notify.KindEventsUpdated, EventID: event.ID.Hex(), Title: event.Title})

	dto.SuccessCreatedResponse(ctx, event)
}

func eventFromRequest(req dto.CreateEventRequest) (*model.Event, error) {
	date, err := validator.ParseDate(req.Date)
	if err != nil {
		return nil, validationError(err.Error() + ": date")
	}
	deadline, err := optionalDate(req.Deadline, "deadline")
	if err != nil {
		return nil, err
	}
	endDate, err := optionalDate(req.EndDate, "endDate")
	if err != nil {
		return nil, err
	}

	return &model.Event{
		Title:            strings.TrimSpace(req.Title),
		Club:             strings.TrimSpace(req.Club),
		Description:      req.Description,
		Date:             date,
		Deadline:         deadline,
		EndDate:          endDate,
		RegistrationLink: strings.TrimSpace(req.RegistrationLink),
		GoogleForm:       strings.TrimSpace(req.GoogleForm),
		Image:            strings.TrimSpace(req.Image),
		Category:         strings.TrimSpace(req.Category),
	}, nil
}

func optionalDate(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := validator.ParseDate(s)
	if err != nil {
		return nil, validationError(err.Error() + ": " + field)
	}
	return &t, nil
}

func (s *service) UpdateEvent(ctx *ginext.Context) {
	id := ctx.Param("id")

	var req dto.UpdateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequestError(ctx, dto.MsgInvalidJSON)
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadRequestError(ctx, verr.Error())
		return
	}

	patch, err := patchFromRequest(req)
	if err != nil {
		s.writeError(ctx, err)
		return
	}

	event, err := s.repo.UpdateEvent(ctx.Request.Context(), id, patch)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.NotFoundError(ctx, dto.MsgEventNotFound)
			return
		}
		s.writeError(ctx, storeError(err))
		return
	}

	s.log.Info().Str("event_id", id).Msg("event updated successfully")
	s.publish(ctx.Request.Context(), notify.Message{Kind: notify.KindEventsUpdated, EventID: id, Title: event.Title})

	dto.SuccessResponse(ctx, dto.EventUpdatedResponse{Message: dto.MsgEventUpdated, Event: *event})
}

func patchFromRequest(req dto.UpdateEventRequest) (model.EventPatch, error) {
	var p model.EventPatch

	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		p.Title = &t
	}
	p.Club = defaulted(req.Club, model.DefaultClub)
	p.Category = defaulted(req.Category, model.DefaultCategory)
	p.Description = req.Description
	p.RegistrationLink = trimmed(req.RegistrationLink)
	p.GoogleForm = trimmed(req.GoogleForm)
	p.Image = trimmed(req.Image)

	if req.Date != nil {
		d, err := validator.ParseDate(*req.Date)
		if err != nil {
			return p, validationError(err.Error() + ": date")
		}
		p.Date = &d
	}
	var err error
	if req.Deadline != nil {
		if p.Deadline, err = optionalDate(*req.Deadline, "deadline"); err != nil {
			return p, err
		}
	}
	if req.EndDate != nil {
		if p.EndDate, err = optionalDate(*req.EndDate, "endDate"); err != nil {
			return p, err
		}
	}
	return p, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func defaulted(s *string, def string) *string {
	t := trimmed(s)
	if t != nil && *t == "" {
		*t = def
	}
	return t
}

func (s *service) DeleteEvent(ctx *ginext.Context) {
	id := ctx.Param("id")

	if err := s.repo.DeleteEvent(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.NotFoundError(ctx, dto.MsgEventNotFound)
			return
		}
		s.writeError(ctx, storeError(err))
		return
	}

	s.log.Info().Str("event_id", id).Msg("event deleted")
	s.publish(ctx.Request.Context(), notify.Message{Kind: notify.KindEventsUpdated, EventID: id})

	dto.SuccessResponse(ctx, dto.MessageResponse{Message: dto.MsgEventDeleted})
}

// UploadImage stores the multipart "image" field under the uploads dir and
// returns its public URL.
func (s *service) UploadImage(ctx *ginext.Context) {
	file, err := ctx.FormFile("image")
	if err != nil {
		dto.BadRequestError(ctx, dto.MsgNoFile)
		return
	}

	f, err := file.Open()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to open uploaded file")
		dto.InternalServerError(ctx)
		return
	}
	mime, err := mimetype.DetectReader(f)
	_ = f.Close()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to sniff uploaded file")
		dto.InternalServerError(ctx)
		return
	}
	if !strings.HasPrefix(mime.String(), "image/") {
		dto.BadRequestError(ctx, dto.MsgNotAnImage)
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = mime.Extension()
	}
	name := fmt.Sprintf("image-%d%s", s.now().UnixMilli(), ext)

	if err := ctx.SaveUploadedFile(file, filepath.Join(s.uploads.Dir, name)); err != nil {
		s.log.Error().Err(err).Msg("failed to store uploaded file")
		dto.InternalServerError(ctx)
		return
	}

	url := fmt.Sprintf("%s://%s%s", requestScheme(ctx.Request), ctx.Request.Host, path.Join(s.uploads.URLPath, name))
	s.log.Info().Str("file", name).Str("mime", mime.String()).Msg("image uploaded")
	dto.SuccessResponse(ctx, dto.UploadResponse{URL: url})
}

func requestScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
