package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"golang.org/x/crypto/bcrypt"

	"campusconnect/internal/dto"
	"campusconnect/internal/model"
	"campusconnect/internal/repo"
)

const bcryptCost = 10

// HashPassword returns the bcrypt hash stored for accounts.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *service) Login(ctx *ginext.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequestError(ctx, dto.MsgInvalidJSON)
		return
	}

	srn := req.Identifier()
	if srn == "" || req.Password == "" {
		dto.BadRequestError(ctx, "srn and password required")
		return
	}

	p, err := s.authenticateStudent(ctx.Request.Context(), srn, req.Password)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	s.establish(ctx, p)
}

func (s *service) AdminLogin(ctx *ginext.Context) {
	var req dto.AdminLoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadRequestError(ctx, dto.MsgInvalidJSON)
		return
	}

	if req.AdminID == "" || req.Password == "" {
		dto.BadRequestError(ctx, "adminId and password required")
		return
	}

	p, err := s.authenticateAdmin(ctx.Request.Context(), req.AdminID, req.Password)
	if err != nil {
		s.writeError(ctx, err)
		return
	}
	s.establish(ctx, p)
}

func (s *service) establish(ctx *ginext.Context, p model.Principal) {
	if _, err := s.sessions.Establish(ctx.Writer, ctx.Request, p); err != nil {
		s.log.Error().Err(err).Msg("failed to establish session")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Str("user_id", p.ID).Str("role", p.Role).Msg("login successful")
	dto.SuccessResponse(ctx, dto.UserResponse{User: &p, Message: dto.MsgOK})
}

func (s *service) authenticateStudent(ctx context.Context, srn, password string) (model.Principal, error) {
	u, err := s.repo.GetUserBySRN(ctx, srn)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return model.Principal{}, authError(dto.MsgInvalidCredentials)
		}
		return model.Principal{}, storeError(err)
	}
	if !checkPassword(u.Password, password) {
		return model.Principal{}, authError(dto.MsgInvalidCredentials)
	}
	return model.StudentPrincipal(u), nil
}

func (s *service) authenticateAdmin(ctx context.Context, adminID, password string) (model.Principal, error) {
	a, err := s.repo.GetAdminByAdminID(ctx, adminID)
	if err != nil {
		if errors.Is(err, repo.ErrAdminNotFound) {
			return model.Principal{}, authError(dto.MsgInvalidAdmin)
		}
		return model.Principal{}, storeError(err)
	}
	if !checkPassword(a.Password, password) {
		return model.Principal{}, authError(dto.MsgInvalidAdmin)
	}
	return model.AdminPrincipal(a), nil
}

// Me never fails for a missing session; it reports a null user.
func (s *service) Me(ctx *ginext.Context) {
	dto.SuccessResponse(ctx, dto.UserResponse{User: principalOf(ctx)})
}

func (s *service) Logout(ctx *ginext.Context) {
	if err := s.sessions.Destroy(ctx.Writer, ctx.Request); err != nil {
		s.log.Error().Err(err).Msg("failed to destroy session")
		dto.ErrorResponse(ctx, http.StatusInternalServerError, dto.MsgLogoutFailed)
		return
	}
	dto.SuccessResponse(ctx, dto.MessageResponse{Message: dto.MsgLoggedOut})
}

// EnsureDefaultAdmin creates the bootstrap admin when no admin exists yet.
// It reports whether an admin was created.
func EnsureDefaultAdmin(ctx context.Context, admins repo.AdminStore, adminID, password string) (bool, error) {
	n, err := admins.CountAdmins(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if adminID == "" || password == "" {
		return false, errors.New("default admin id and password must be configured")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	if err := admins.UpsertAdmin(ctx, &model.Admin{AdminID: adminID, Password: hash}); err != nil {
		return false, err
	}
	return true, nil
}
