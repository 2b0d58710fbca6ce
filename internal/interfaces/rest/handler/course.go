package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/coursesync/internal/catalog"
	"github.com/pot-code/coursesync/internal/infrastructure/auth"
	"github.com/pot-code/coursesync/internal/infrastructure/logging"
	"github.com/pot-code/coursesync/internal/progress"
	"go.uber.org/zap"
)

// CourseHandler read-only course projections
type CourseHandler struct {
	catalogUseCase  catalog.CatalogUseCase
	progressUseCase progress.ProgressUseCase
	jwtUtil         *auth.JWTUtil
}

func NewCourseHandler(
	CatalogUseCase catalog.CatalogUseCase,
	ProgressUseCase progress.ProgressUseCase,
	JWTUtil *auth.JWTUtil,
) *CourseHandler {
	return &CourseHandler{CatalogUseCase, ProgressUseCase, JWTUtil}
}

// HandleGetCatalog ordered modules and lessons, a failed load renders as an empty catalog
func (ch *CourseHandler) HandleGetCatalog(c echo.Context) (err error) {
	ctx := c.Request().Context()
	courseID := c.Param("course")

	result, err := ch.catalogUseCase.Resolve(ctx, courseID)
	if err == catalog.ErrCourseNotFound {
		return respondError(c, http.StatusNotFound, err.Error())
	}
	if err != nil {
		logging.ExtractLoggerFromContext(ctx).Error("Failed to resolve catalog",
			zap.String("course.id", courseID), zap.Error(err))
	}
	return c.JSON(http.StatusOK, result)
}

// HandleGetProgress progress lookup of the signed in user
func (ch *CourseHandler) HandleGetProgress(c echo.Context) (err error) {
	ctx := c.Request().Context()
	claims := ch.jwtUtil.GetContextToken(c)

	lookup, err := ch.progressUseCase.FindByCourse(ctx, claims.UID, c.Param("course"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lookup)
}
