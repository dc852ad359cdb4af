package dto

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"campusconnect/internal/model"
)

const (
	MsgOK                 = "ok"
	MsgRegistered         = "registered"
	MsgAlreadyRegistered  = "already registered"
	MsgLoggedOut          = "logged out"
	MsgEventUpdated       = "Event updated successfully"
	MsgEventDeleted       = "Event deleted successfully"
	MsgServerError        = "server error"
	MsgUnauthenticated    = "unauthenticated"
	MsgForbidden          = "forbidden: admin required"
	MsgEventNotFound      = "Event not found"
	MsgEventNotOnServer   = "Event not found on server yet."
	MsgUserNotFound       = "user not found"
	MsgInvalidCredentials = "invalid credentials"
	MsgInvalidAdmin       = "invalid admin credentials"
	MsgNoFile             = "no file uploaded"
	MsgNotAnImage         = "uploaded file is not an image"
	MsgLogoutFailed       = "logout failed"
	MsgInvalidJSON        = "Invalid JSON format"
)

type LoginRequest struct {
	SRN       string `json:"srn"`
	StudentID string `json:"studentId"`
	Password  string `json:"password"`
}

// Identifier prefers srn and falls back to studentId.
func (r LoginRequest) Identifier() string {
	if r.SRN != "" {
		return r.SRN
	}
	return r.StudentID
}

type AdminLoginRequest struct {
	AdminID  string `json:"adminId"`
	Password string `json:"password"`
}

type UserResponse struct {
	User    *model.Principal `json:"user"`
	Message string           `json:"message,omitempty"`
}

type CreateEventRequest struct {
	Title            string `json:"title" validate:"required,notblank"`
	Club             string `json:"club"`
	Description      string `json:"description"`
	Date             string `json:"date" validate:"required,eventdate"`
	Deadline         string `json:"deadline" validate:"eventdate"`
	EndDate          string `json:"endDate" validate:"eventdate"`
	RegistrationLink string `json:"registrationLink" validate:"weblink"`
	GoogleForm       string `json:"googleForm" validate:"weblink"`
	Image            string `json:"image"`
	Category         string `json:"category"`
}

type UpdateEventRequest struct {
	Title            *string `json:"title" validate:"omitempty,notblank"`
	Club             *string `json:"club"`
	Description      *string `json:"description"`
	Date             *string `json:"date" validate:"omitempty,eventdate"`
	Deadline         *string `json:"deadline" validate:"omitempty,eventdate"`
	EndDate          *string `json:"endDate" validate:"omitempty,eventdate"`
	RegistrationLink *string `json:"registrationLink" validate:"omitempty,weblink"`
	GoogleForm       *string `json:"googleForm" validate:"omitempty,weblink"`
	Image            *string `json:"image"`
	Category         *string `json:"category"`
}

type EventUpdatedResponse struct {
	Message string      `json:"message"`
	Event   model.Event `json:"event"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	EventID string `json:"eventId,omitempty"`
}

type MineResponse struct {
	RegisteredEvents []model.Event `json:"registeredEvents"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type GroupedEventsResponse struct {
	Groups []model.CategoryGroup `json:"groups"`
}

func ErrorResponse(c *ginext.Context, status int, message string) {
	c.AbortWithStatusJSON(status, MessageResponse{Message: message})
}

func BadRequestError(c *ginext.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message)
}

func UnauthorizedError(c *ginext.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, message)
}

func ForbiddenError(c *ginext.Context) {
	ErrorResponse(c, http.StatusForbidden, MsgForbidden)
}

func NotFoundError(c *ginext.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, message)
}

func InternalServerError(c *ginext.Context) {
	ErrorResponse(c, http.StatusInternalServerError, MsgServerError)
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusCreated, data)
}
