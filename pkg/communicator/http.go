package communicator

import (
	"net/http"

	echo "github.com/labstack/echo/v4"
)

// NewHttpHandler registers the task communicator's debug endpoints on r,
// matching the teacher package's convention of exposing a running
// service's internals over a side-channel HTTP port rather than the RPC
// port itself.
func NewHttpHandler(s *Service, r *echo.Echo) {
	r.GET("/debug/registry", func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.Registry().Snapshot())
	})
}
