package rest

import (
	"fmt"

	"github.com/adevtutorials/authors"
	"github.com/gofiber/fiber/v2"
)

type SessionController struct {
	Store authors.SessionStore
}

func (c *SessionController) InstallTo(requestAuthorizer fiber.Handler, app *fiber.App) {
	app.Get("/session", combineHandlers(requestAuthorizer, c.serveCurrentSession))
	app.Get("/sessions", combineHandlers(requestAuthorizer, c.serveSessions))
	app.Delete("/session/:session_id", combineHandlers(requestAuthorizer, c.serveDeleteSession))
	app.Delete("/sessions/other", combineHandlers(requestAuthorizer, c.serveDeleteOtherSessions))
}

// session information without the authorization token itself.
type SessionMeta struct {
	Id             string `json:"id"`
	Ip             string `json:"ip"`
	UserAgent      string `json:"userAgent"`
	LastAccessedAt int64  `json:"lastAccessedAt"`
}

func sessionMeta(session authors.Session) SessionMeta {
	return SessionMeta{
		Id:             session.Id,
		Ip:             session.Ip,
		UserAgent:      session.UserAgent,
		LastAccessedAt: session.LastAccessedAt.Unix(),
	}
}

func (c *SessionController) serveCurrentSession(ctx *fiber.Ctx) error {
	session, ok := ctx.Locals(sessionLocalsKey).(authors.Session)
	if !ok {
		return fiber.ErrUnauthorized
	}
	return ctx.JSON(sessionMeta(session))
}

func (c *SessionController) serveSessions(ctx *fiber.Ctx) error {
	session, ok := ctx.Locals(sessionLocalsKey).(authors.Session)
	if !ok {
		return fiber.ErrUnauthorized
	}

	activeSessions, err := c.Store.ActiveSessions(session.Token)
	if err != nil {
		return fmt.Errorf("active sessions: %w", err)
	}

	metas := make([]SessionMeta, len(activeSessions))
	for i, s := range activeSessions {
		metas[i] = sessionMeta(s)
	}
	return ctx.JSON(map[string]interface{}{"sessions": metas})
}

func (c *SessionController) serveDeleteSession(ctx *fiber.Ctx) error {
	session, ok := ctx.Locals(sessionLocalsKey).(authors.Session)
	if !ok {
		return fiber.ErrUnauthorized
	}
	sessionId := ctx.Params("session_id")
	if sessionId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "no session id")
	}
	if err := c.Store.InvalidateById(session.UserId, sessionId); err != nil {
		return fmt.Errorf("invalidate session by id: %w", err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

func (c *SessionController) serveDeleteOtherSessions(ctx *fiber.Ctx) error {
	session, ok := ctx.Locals(sessionLocalsKey).(authors.Session)
	if !ok {
		return fiber.ErrUnauthorized
	}
	if err := c.Store.InvalidateAllExcept(session.Token); err != nil {
		return fmt.Errorf("invalidate other sessions: %w", err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
