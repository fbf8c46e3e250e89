package bootstrap

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	httpecho "github.com/mohammadpnp/member-import/internal/interfaces/http/echo"
	"github.com/mohammadpnp/member-import/internal/metrics"
)

func NewHTTPServer(a *App) *echo.Echo {
	server := echo.New()
	server.HideBanner = true

	server.Use(middleware.Recover())
	server.Use(middleware.RequestID())
	server.Use(middleware.BodyLimit(a.Config.Server.BodyLimit))

	importHandler := httpecho.NewImportHandler(a.StartImport, a.PauseImport, a.ResumeImport, a.StopImport)
	statusHandler := httpecho.NewStatusHandler(a.Status, a.RowResults)
	httpecho.RegisterRoutes(server, importHandler, statusHandler)

	server.GET("/healthz", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})
	server.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return server
}
