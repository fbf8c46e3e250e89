package echo

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/member-import/internal/application/importing"
	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
)

// HeaderUserID identifies the caller until authentication sits in front of the API.
const HeaderUserID = "X-User-ID"

type ImportHandler struct {
	start  app.StartImport
	pause  app.PauseImport
	resume app.ResumeImport
	stop   app.StopImport
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type apiResponse struct {
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func NewImportHandler(start app.StartImport, pause app.PauseImport, resume app.ResumeImport, stop app.StopImport) *ImportHandler {
	return &ImportHandler{start: start, pause: pause, resume: resume, stop: stop}
}

func (h *ImportHandler) StartImport(c echo.Context) error {
	owner := ownerOf(c)
	if owner == "" {
		return unauthorized(c)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "bad_request",
			Message: "multipart field file is required",
		}})
	}
	f, err := header.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "bad_request",
			Message: "uploaded file cannot be read",
		}})
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "bad_request",
			Message: "uploaded file cannot be read",
		}})
	}

	in := app.StartImportInput{
		Filename: header.Filename,
		Data:     data,
		OwnerID:  owner,
	}
	if affiliate := strings.TrimSpace(c.FormValue("affiliate_id")); affiliate != "" {
		in.AffiliateID = &affiliate
	}

	out, err := h.start.Execute(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, app.ErrInvalidFile) {
			return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
				Code:    "invalid_file",
				Message: "file must be a non-empty .csv upload",
			}})
		}
		if errors.Is(err, domain.ErrEmptyImport) {
			return c.JSON(http.StatusUnprocessableEntity, apiResponse{Error: &errorBody{
				Code:    "empty_import",
				Message: "file has no data rows",
			}})
		}
		return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
			Code:    "internal_error",
			Message: "failed to start import",
		}})
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func (h *ImportHandler) PauseImport(c echo.Context) error {
	return h.control(c, h.pause.Execute)
}

func (h *ImportHandler) ResumeImport(c echo.Context) error {
	return h.control(c, h.resume.Execute)
}

func (h *ImportHandler) StopImport(c echo.Context) error {
	return h.control(c, h.stop.Execute)
}

type controlFunc func(ctx context.Context, in app.ControlInput) (app.ControlOutput, error)

func (h *ImportHandler) control(c echo.Context, execute controlFunc) error {
	owner := ownerOf(c)
	if owner == "" {
		return unauthorized(c)
	}
	out, err := execute(c.Request().Context(), app.ControlInput{ImportID: c.Param("id"), OwnerID: owner})
	if err != nil {
		return importError(c, err, "failed to update import")
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func ownerOf(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, apiResponse{Error: &errorBody{
		Code:    "unauthorized",
		Message: HeaderUserID + " header is required",
	}})
}

// importError maps the errors shared by every import endpoint.
func importError(c echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrImportNotFound):
		return c.JSON(http.StatusNotFound, apiResponse{Error: &errorBody{
			Code:    "not_found",
			Message: "import not found",
		}})
	case errors.Is(err, domain.ErrForbidden):
		return c.JSON(http.StatusForbidden, apiResponse{Error: &errorBody{
			Code:    "forbidden",
			Message: "import belongs to another user",
		}})
	case errors.Is(err, domain.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, apiResponse{Error: &errorBody{
			Code:    "invalid_transition",
			Message: err.Error(),
		}})
	case errors.Is(err, app.ErrInvalidFilter):
		return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
			Code:    "invalid_filter",
			Message: err.Error(),
		}})
	}
	return c.JSON(http.StatusInternalServerError, apiResponse{Error: &errorBody{
		Code:    "internal_error",
		Message: fallback,
	}})
}
