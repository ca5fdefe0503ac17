package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"

	echo "github.com/labstack/echo/v4"
)

// NewHttpHandler registers the lifecycle event stream on r: a long-lived
// GET that pushes one JSON-encoded LifecycleUpdate per line as events
// occur, in the shape of the teacher's log-tailing endpoint but fed from
// Application's lifecycle broadcaster instead of a log stash.
func NewHttpHandler(a *Application, r *echo.Echo) {
	r.GET("/debug/events", func(c echo.Context) error {
		observer := a.Lifecycle().NewObserver()
		defer observer.Close()

		c.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
		c.Response().WriteHeader(http.StatusOK)
		writer := bufio.NewWriter(c.Response())

		for {
			select {
			case update, ok := <-observer.Updates():
				if !ok {
					return nil
				}
				data, err := json.Marshal(update)
				if err != nil {
					return c.String(http.StatusInternalServerError, err.Error())
				}
				if _, err := fmt.Fprintf(writer, "%s\n", data); err != nil {
					return err
				}
				writer.Flush()
			case <-c.Request().Context().Done():
				return nil
			}
		}
	})
}
