package rest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/adevtutorials/authors"
	"github.com/gofiber/fiber/v2"
)

const (
	sessionLocalsKey = "session"
	userLocalsKey    = "user"
)

type AuthController struct {
	UserStore    authors.UserStore
	SessionStore authors.SessionStore
}

func (c *AuthController) InstallTo(app *fiber.App) {
	app.Post("/auth/register", c.serveRegister)
	app.Post("/auth/login", c.serveLogin)
	app.Post("/auth/logout", c.logoutHandler())
}

func (c *AuthController) serveRegister(ctx *fiber.Ctx) error {
	body := struct {
		Username  string `json:"username"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}{}
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	user, err := authors.NewUser(body.Username, body.FirstName, body.LastName, body.Email, body.Password)
	if err != nil {
		if isValidationError(err) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return fmt.Errorf("new user: %w", err)
	}

	user, err = c.UserStore.Create(ctx.Context(), user)
	if err != nil {
		if errors.Is(err, authors.ErrUserExists) {
			return fiber.NewError(fiber.StatusConflict, authors.ErrUserExists.Error())
		}
		return fmt.Errorf("create user: %w", err)
	}

	session, err := c.SessionStore.RegisterNew(ctx.Context(), user.Id, ctx.IP(),
		string(ctx.Request().Header.UserAgent()))
	if err != nil {
		return fmt.Errorf("session register new: %w", err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(sessionResponse(session))
}

func (c *AuthController) serveLogin(ctx *fiber.Ctx) error {
	body := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{}
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	user, err := c.UserStore.ByUsername(ctx.Context(), body.Username)
	if err != nil {
		if errors.Is(err, authors.ErrUserNotFound) {
			// same reply as a wrong password, do not leak which usernames exist
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return fmt.Errorf("user by username: %w", err)
	}
	if !user.IsActive || !user.CheckPassword(body.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	session, err := c.SessionStore.RegisterNew(ctx.Context(), user.Id, ctx.IP(),
		string(ctx.Request().Header.UserAgent()))
	if err != nil {
		return fmt.Errorf("session register new: %w", err)
	}
	return ctx.JSON(sessionResponse(session))
}

func (c *AuthController) logoutHandler() fiber.Handler {
	return combineHandlers(RequestAuthorizer(c.SessionStore, c.UserStore), func(ctx *fiber.Ctx) error {
		session := ctx.Locals(sessionLocalsKey).(authors.Session)
		if err := c.SessionStore.InvalidateByAuthToken(session.Token); err != nil {
			return fmt.Errorf("invalidate session: %w", err)
		}
		return ctx.SendStatus(fiber.StatusNoContent)
	})
}

func sessionResponse(session authors.Session) map[string]interface{} {
	return map[string]interface{}{
		"id":          session.Id,
		"userId":      session.UserId,
		"accessToken": session.Token,
		"expiresAt":   session.ExpiresAt.Unix(),
	}
}

func isValidationError(err error) bool {
	for _, validation := range []error{
		authors.ErrUsernameRequired,
		authors.ErrFirstNameRequired,
		authors.ErrLastNameRequired,
		authors.ErrEmailRequired,
		authors.ErrEmailInvalid,
		authors.ErrPasswordRequired,
	} {
		if errors.Is(err, validation) {
			return true
		}
	}
	return false
}

// RequestAuthorizer resolves the bearer token to a session and its user and
// stores both in the request locals.
func RequestAuthorizer(sessionStore authors.SessionStore, userStore authors.UserStore) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		auth := ctx.Get(fiber.HeaderAuthorization)
		if auth == "" {
			return fiber.ErrUnauthorized
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			return fiber.NewError(fiber.ErrBadRequest.Code, "invalid auth type")
		}
		token := strings.TrimPrefix(auth, "Bearer ")

		session, err := sessionStore.AcquireAndRefresh(ctx.Context(), token, ctx.IP(),
			string(ctx.Request().Header.UserAgent()))
		if err != nil {
			if errors.Is(err, authors.ErrSessionNotFound) {
				return fiber.ErrUnauthorized
			}
			return fmt.Errorf("acquire and refresh session: %w", err)
		}
		user, err := userStore.ById(ctx.Context(), session.UserId)
		if err != nil {
			return fmt.Errorf("retrieve user by id: %w", err)
		}

		requestLog(ctx).
			WithField("user_id", user.Id).
			Infoln("Authorized access.")

		ctx.Locals(sessionLocalsKey, session)
		ctx.Locals(userLocalsKey, user)
		return nil
	}
}
