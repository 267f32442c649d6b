package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/auth"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// AccountReader loads the account projection for /users/me.
type AccountReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// CookieSettings controls how the session cookie is written.
type CookieSettings struct {
	JWT    config.JWTConfig
	Secure bool
}

func UserRegister(svc auth.Service, cookies CookieSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Register(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookie(w, cookies, result.Token)
		responses.WriteSuccessStatus(w, http.StatusCreated, responses.Fields{
			"message": "Account created",
			"token":   result.Token,
			"role":    result.Role,
			"user":    result.User,
		})
	}
}

func UserLogin(svc auth.Service, cookies CookieSettings, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setSessionCookie(w, cookies, result.Token)
		responses.WriteSuccess(w, responses.Fields{
			"message": "Login successful",
			"token":   result.Token,
			"role":    result.Role,
			"user":    result.User,
		})
	}
}

// UserLogout expires the session cookie. Bearer tokens stay valid until expiry.
func UserLogout(cookies CookieSettings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cookies.JWT.CookieName == "" {
			responses.WriteMessage(w, http.StatusOK, "Logged out")
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     cookies.JWT.CookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   cookies.Secure,
			SameSite: http.SameSiteLaxMode,
		})
		responses.WriteMessage(w, http.StatusOK, "Logged out")
	}
}

func UserMe(accounts AccountReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := accountID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := accounts.FindByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "account not found"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load account"))
			return
		}

		responses.WriteSuccess(w, responses.Fields{"user": users.FromModel(user)})
	}
}

func setSessionCookie(w http.ResponseWriter, cookies CookieSettings, token string) {
	if cookies.JWT.CookieName == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     cookies.JWT.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(cookies.JWT.Expiration().Seconds()),
		HttpOnly: true,
		Secure:   cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
