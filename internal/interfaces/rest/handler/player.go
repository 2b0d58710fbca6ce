package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	infra "github.com/pot-code/coursesync/internal/infrastructure"
	"github.com/pot-code/coursesync/internal/infrastructure/auth"
	"github.com/pot-code/coursesync/internal/infrastructure/logging"
	"github.com/pot-code/coursesync/internal/infrastructure/validate"
	"github.com/pot-code/coursesync/internal/playback"
	"go.uber.org/zap"
)

const contextSessionKey = "playback.session"

// PlayerHandler player side of a session over websocket
type PlayerHandler struct {
	manager   *playback.Manager
	jwtUtil   *auth.JWTUtil
	validator validate.Validator
}

func NewPlayerHandler(
	Manager *playback.Manager,
	JWTUtil *auth.JWTUtil,
	Validator validate.Validator,
) *PlayerHandler {
	return &PlayerHandler{Manager, JWTUtil, Validator}
}

// RequireSession resolve the session before the connection is upgraded
func (ph *PlayerHandler) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := ph.jwtUtil.GetContextToken(c)
		if claims == nil {
			return c.NoContent(http.StatusUnauthorized)
		}
		s, err := ph.manager.Get(claims.UID, c.Param("session"))
		if err != nil {
			return respondError(c, http.StatusNotFound, err.Error())
		}
		c.Set(contextSessionKey, s)
		return next(c)
	}
}

// HandlePlayer relay seek commands and history writes to the player, ticks and
// seek acknowledgments back into the session
func (ph *PlayerHandler) HandlePlayer(c echo.Context, conn *infra.Conn) error {
	s, ok := c.Get(contextSessionKey).(*playback.Session)
	if !ok {
		return nil
	}
	ctx := c.Request().Context()
	logger := logging.ExtractLoggerFromContext(ctx).With(zap.String("session.id", s.ID))

	events, cancel := s.Subscribe()
	defer cancel()

	if cmd := s.PendingCommand(ctx); cmd != nil {
		if err := conn.WriteJSON(cmd.Event()); err != nil {
			return err
		}
	}

	go func() {
		for e := range events {
			if err := conn.WriteJSON(e); err != nil {
				logger.Debug("Failed to write player event", zap.Error(err))
				break
			}
		}
		// session closed or subscriber dropped, unblock the reader
		conn.Close()
	}()

	for {
		msg := new(playback.PlayerMessage)
		if err := conn.ReadJSON(msg); err != nil {
			return err
		}
		if errs := ph.validator.Struct(msg); errs != nil {
			logger.Debug("Invalid player message", zap.Any("errors", errs))
			continue
		}
		switch msg.Type {
		case playback.MessageTick:
			s.Tick(ctx, msg.Activation, msg.Second, msg.Percent)
		case playback.MessageSeekAck:
			s.AckSeek(msg.Activation)
		}
	}
}
