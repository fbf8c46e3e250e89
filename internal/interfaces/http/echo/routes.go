package echo

import e "github.com/labstack/echo/v4"

func RegisterRoutes(server *e.Echo, importHandler *ImportHandler, statusHandler *StatusHandler) {
	group := server.Group("/api/v1/imports")
	group.POST("", importHandler.StartImport)
	group.GET("/:id", statusHandler.GetImportStatus)
	group.GET("/:id/rows", statusHandler.GetRowResults)
	group.POST("/:id/pause", importHandler.PauseImport)
	group.POST("/:id/resume", importHandler.ResumeImport)
	group.POST("/:id/stop", importHandler.StopImport)
}
