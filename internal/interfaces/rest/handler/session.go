package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/coursesync/internal/catalog"
	"github.com/pot-code/coursesync/internal/infrastructure/auth"
	"github.com/pot-code/coursesync/internal/infrastructure/validate"
	"github.com/pot-code/coursesync/internal/playback"
	"github.com/pot-code/coursesync/internal/progress"
)

// SessionHandler course-view session operations
type SessionHandler struct {
	manager   *playback.Manager
	jwtUtil   *auth.JWTUtil
	validator validate.Validator
}

func NewSessionHandler(
	Manager *playback.Manager,
	JWTUtil *auth.JWTUtil,
	Validator validate.Validator,
) *SessionHandler {
	return &SessionHandler{Manager, JWTUtil, Validator}
}

type navigateRequest struct {
	LessonID string `json:"lesson_id" validate:"required"`
	Seek     *int   `json:"seek" validate:"omitempty,min=0"`
}

type tabRequest struct {
	Tab string `json:"tab" validate:"required,oneof=Player Overview Resources"`
}

type completionRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

type favoriteRequest struct {
	Favorite *bool `json:"favorite" validate:"required"`
}

type toggleResponse struct {
	Record progress.RecordModel `json:"record"`
}

// sessionError map session errors to responses, anything unknown goes to the error middleware
func sessionError(c echo.Context, err error) error {
	switch err {
	case playback.ErrSessionNotFound, catalog.ErrCourseNotFound:
		return respondError(c, http.StatusNotFound, err.Error())
	case playback.ErrUnknownLesson:
		return respondError(c, http.StatusUnprocessableEntity, err.Error())
	case playback.ErrNoNeighbor, playback.ErrNoActiveLesson:
		return respondError(c, http.StatusConflict, err.Error())
	}
	return err
}

func (sh *SessionHandler) session(c echo.Context) (*playback.Session, error) {
	claims := sh.jwtUtil.GetContextToken(c)
	return sh.manager.Get(claims.UID, c.Param("session"))
}

// HandleOpen start a course-view visit from the inbound tab, lesson and seek params
func (sh *SessionHandler) HandleOpen(c echo.Context) (err error) {
	claims := sh.jwtUtil.GetContextToken(c)
	link := playback.ParseDeepLink(c.QueryParams())

	_, snap, err := sh.manager.Open(c.Request().Context(), claims.UID, c.Param("course"), link)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusCreated, snap)
}

// HandleGet current snapshot
func (sh *SessionHandler) HandleGet(c echo.Context) (err error) {
	s, err := sh.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	snap, err := s.Snapshot(c.Request().Context())
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// HandleNavigate sidebar or marker navigation
func (sh *SessionHandler) HandleNavigate(c echo.Context) (err error) {
	post := new(navigateRequest)
	if err = c.Bind(post); err != nil {
		return bindError(c, "navigation", err)
	}
	if errs := sh.validator.Struct(post); errs != nil {
		return respondInvalid(c, "Failed to validate fields", errs)
	}

	s, err := sh.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	snap, err := s.Navigate(c.Request().Context(), post.LessonID, post.Seek)
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// HandlePrevious ...
func (sh *SessionHandler) HandlePrevious(c echo.Context) (err error) {
	s, err := sh.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	snap, err := s.Previous(c.Request().Context())
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// HandleNext ...
func (sh *SessionHandler) HandleNext(c echo.Context) (err error) {
	s, err := sh.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	snap, err := s.Next(c.Request().Context())
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// HandleSelectTab ...
func (sh *SessionHandler) HandleSelectTab(c echo.Context) (err error) {
	post := new(tabRequest)
	if err = c.Bind(post); err != nil {
		return bindError(c, "tab", err)
	}
	if errs := sh.validator.Struct(post); errs != nil {
		return respondInvalid(c, "Failed to validate fields", errs)
	}

	s, err := sh.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	snap, err := s.SelectTab(c.Request().Context(), playback.ParseTab(post.Tab))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// HandleLocation back/forward navigation, the location is applied without a history write
func (sh *SessionHandler) HandleLocation(c echo.Context) (err error) {
	if raw := c.QueryParam(playback.ParamSeek); raw != "" {
		if ferr := sh.validator.Var(playback.ParamSeek, raw, "numeric"); ferr != nil {
			return respondInvalid(c, "Failed to validate params", []*validate.FieldError{ferr})
		}
	}

	s, err := sh.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	snap, err := s.ApplyLocation(c.Request().Context(), playback.ParseDeepLink(c.QueryParams()))
	if err != nil {
		return sessionError(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// HandleCompletion toggle completion, a failed write leaves the pre-toggle record
func (sh *SessionHandler) HandleCompletion(c echo.Context) (err error) {
	post := new(completionRequest)
	if err = c.Bind(post); err != nil {
		return bindError(c, "completion", err)
	}
	if errs := sh.validator.Struct(post); errs != nil {
		return respondInvalid(c, "Failed to validate fields", errs)
	}

	s, err := sh.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	record, err := s.SetCompleted(c.Request().Context(), c.Param("lesson"), *post.Completed)
	return sh.toggleResult(c, record, err)
}

// HandleFavorite toggle favorite
func (sh *SessionHandler) HandleFavorite(c echo.Context) (err error) {
	post := new(favoriteRequest)
	if err = c.Bind(post); err != nil {
		return bindError(c, "favorite", err)
	}
	if errs := sh.validator.Struct(post); errs != nil {
		return respondInvalid(c, "Failed to validate fields", errs)
	}

	s, err := sh.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	record, err := s.SetFavorite(c.Request().Context(), c.Param("lesson"), *post.Favorite)
	return sh.toggleResult(c, record, err)
}

func (sh *SessionHandler) toggleResult(c echo.Context, record progress.RecordModel, err error) error {
	switch err {
	case nil:
		return c.JSON(http.StatusOK, toggleResponse{record})
	case playback.ErrSessionNotFound, playback.ErrUnknownLesson:
		return sessionError(c, err)
	}
	traceID := c.Response().Header().Get(echo.HeaderXRequestID)
	return c.JSON(http.StatusBadGateway, struct {
		RESTStandardError
		Record progress.RecordModel `json:"record"`
	}{
		RESTStandardError: NewRESTStandardError(http.StatusBadGateway, err.Error()).SetTraceID(traceID),
		Record:            record,
	})
}

// HandleClose tear the session down
func (sh *SessionHandler) HandleClose(c echo.Context) (err error) {
	claims := sh.jwtUtil.GetContextToken(c)
	if err := sh.manager.Close(claims.UID, c.Param("session")); err != nil {
		return sessionError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
