package echo

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	app "github.com/mohammadpnp/member-import/internal/application/importing"
	domain "github.com/mohammadpnp/member-import/internal/domain/importing"
)

type StatusHandler struct {
	status  app.GetImportStatus
	results app.GetRowResults
}

func NewStatusHandler(status app.GetImportStatus, results app.GetRowResults) *StatusHandler {
	return &StatusHandler{status: status, results: results}
}

func (h *StatusHandler) GetImportStatus(c echo.Context) error {
	out, err := h.status.Execute(c.Request().Context(), app.StatusInput{
		ImportID: c.Param("id"),
		OwnerID:  ownerOf(c),
	})
	if err != nil {
		return importError(c, err, "failed to get import")
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *StatusHandler) GetRowResults(c echo.Context) error {
	in := app.RowResultsInput{
		ImportID: c.Param("id"),
		OwnerID:  ownerOf(c),
		Filter: domain.RowResultFilter{
			Action: domain.RowAction(c.QueryParam("action")),
			Search: c.QueryParam("search"),
		},
	}

	var err error
	if in.Page.Page, err = intQuery(c, "page"); err != nil {
		return badQuery(c, "page")
	}
	if in.Page.PerPage, err = intQuery(c, "per_page"); err != nil {
		return badQuery(c, "per_page")
	}
	if raw := c.QueryParam("chunk_index"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil || idx < 0 {
			return badQuery(c, "chunk_index")
		}
		in.Filter.ChunkIndex = &idx
	}

	out, err := h.results.Execute(c.Request().Context(), in)
	if err != nil {
		return importError(c, err, "failed to get row results")
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

// intQuery returns 0 for an absent parameter so paging defaults apply.
func intQuery(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func badQuery(c echo.Context, name string) error {
	return c.JSON(http.StatusBadRequest, apiResponse{Error: &errorBody{
		Code:    "bad_request",
		Message: name + " must be a non-negative integer",
	}})
}
