package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shantanuk7/prism-film-observatory/internal/apperrors"
	"github.com/shantanuk7/prism-film-observatory/internal/handlers/render"
	"github.com/shantanuk7/prism-film-observatory/internal/handlers/userctx"
	"github.com/shantanuk7/prism-film-observatory/internal/logger"
	"github.com/shantanuk7/prism-film-observatory/internal/models"
)

type authService interface {
	// Signup user
	// Has to return apperrors.ErrUserAlreadyExists on duplicate username or email
	// The pair is nil while the email verification policy gates the account
	Signup(ctx context.Context, username string, email string, password string, role models.Role) (models.User, *models.TokenPair, error)

	// Login with email and password
	// Wrong email and wrong password both fail with apperrors.ErrInvalidCredentials,
	// unverified account fails with apperrors.ErrUserNotVerified
	Login(ctx context.Context, email string, password string) (models.User, models.TokenPair, error)

	// Rotate the refresh token for a fresh pair
	// Has to return apperrors.ErrInvalidRefreshToken for any unusable token
	Refresh(ctx context.Context, refresh string) (models.TokenPair, error)

	// Revoke one refresh token of the user, idempotent
	Logout(ctx context.Context, userID uuid.UUID, refresh string) error

	// Consume a verification token, exactly once per token
	VerifyEmail(ctx context.Context, token string) (models.User, error)

	// Re-hash the password and revoke all sessions
	ChangePassword(ctx context.Context, userID uuid.UUID, current string, next string) error

	// Load the user behind a principal
	User(ctx context.Context, userID uuid.UUID) (models.User, error)
}

// Sanitized user representation: the password hash never leaves the service
type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

func sanitizeUser(u models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role.String(),
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
	}
}

func handleSignup(auth authService, l logger.Logger) http.Handler {
	type request struct {
		Username string `json:"username" validate:"required,min=3,max=32"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=8,max=128"`
		// Admin accounts are provisioned out of band, not via signup
		Role     string `json:"role" validate:"omitempty,oneof=observer contributor"`
	}
	type response struct {
		User         userResponse `json:"user"`
		AccessToken  string       `json:"accessToken,omitempty"`
		RefreshToken string       `json:"refreshToken,omitempty"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		role := models.RoleObserver
		if data.Role != "" {
			// Validated by the 'role' tag already, parse can't fail here
			role, _ = models.ParseRole(data.Role)
		}

		user, pair, err := auth.Signup(r.Context(), data.Username, data.Email, data.Password, role)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserAlreadyExists):
				render.ServiceError(w, "Email or username already in use", http.StatusConflict)
			default:
				l.Error("signup failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		resp := response{User: sanitizeUser(user)}
		if pair != nil {
			resp.AccessToken = pair.Access.Value
			resp.RefreshToken = pair.Refresh.Value
		}
		render.JSONWithStatus(w, resp, http.StatusCreated)
	})
}

func handleLogin(auth authService, l logger.Logger) http.Handler {
	type request struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	type response struct {
		User         userResponse `json:"user"`
		AccessToken  string       `json:"accessToken"`
		RefreshToken string       `json:"refreshToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		user, pair, err := auth.Login(r.Context(), data.Email, data.Password)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrUserNotVerified):
				render.ServiceError(w, "Email is not verified", http.StatusForbidden)
			default:
				l.Error("login failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{
			User:         sanitizeUser(user),
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
		})
	})
}

func handleTokenRefresh(auth authService, l logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refreshToken" validate:"required,min=10"`
	}
	type response struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		pair, err := auth.Refresh(r.Context(), data.RefreshToken)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidRefreshToken):
				render.ServiceError(w, "Invalid refresh token", http.StatusUnauthorized)
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				l.Error("token refresh failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{
			AccessToken:  pair.Access.Value,
			RefreshToken: pair.Refresh.Value,
		})
	})
}

func handleLogout(auth authService, l logger.Logger) http.Handler {
	type request struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := userctx.FromContext(r.Context())

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		if err := auth.Logout(r.Context(), principal.UserID, data.RefreshToken); err != nil {
			l.Error("logout failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		render.JSON(w, response{Message: "Logged out"})
	})
}

func handleVerifyEmail(auth authService, l logger.Logger) http.Handler {
	type request struct {
		Token string `json:"token" validate:"required"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		_, err = auth.VerifyEmail(r.Context(), data.Token)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrVerificationTokenNotFound):
				render.ServiceError(w, "Verification token not found", http.StatusNotFound)
			default:
				l.Error("email verification failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{Message: "Email verified successfully"})
	})
}

func handleChangePassword(auth authService, l logger.Logger) http.Handler {
	type request struct {
		CurrentPassword string `json:"currentPassword" validate:"required"`
		NewPassword     string `json:"newPassword" validate:"required,min=8,max=128"`
	}
	type response struct {
		Message string `json:"message"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := userctx.FromContext(r.Context())

		data, err := render.BindAndValidate[request](w, r)
		if err != nil {
			return
		}

		err = auth.ChangePassword(r.Context(), principal.UserID, data.CurrentPassword, data.NewPassword)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrInvalidCredentials):
				render.ServiceError(w, "Invalid credentials", http.StatusUnauthorized)
			default:
				l.Error("password change failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, response{Message: "Password changed"})
	})
}

func handleUserMe(auth authService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := userctx.FromContext(r.Context())

		user, err := auth.User(r.Context(), principal.UserID)
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserNotFound):
				render.ServiceError(w, "User not found", http.StatusNotFound)
			default:
				l.Error("me lookup failed", "error", err.Error())
				render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		render.JSON(w, sanitizeUser(user))
	})
}
