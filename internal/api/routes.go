package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/georgeshao/canned-status/internal/dispatcher"
	"github.com/georgeshao/canned-status/internal/journal"
)

// AppConfig is the fiber configuration shared by the server and its tests.
func AppConfig() fiber.Config {
	return fiber.Config{
		AppName:               "canned-status",
		StrictRouting:         true,
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		BodyLimit:             64 * 1024,
	}
}

// SetupRoutes registers the status route and, when store is non-nil, the
// journal routes. Journal paths have two segments so they never shadow a
// status token.
func SetupRoutes(app *fiber.App, d *dispatcher.Dispatcher, store journal.Store, w *journal.Writer) {
	h := NewHandler(d, store, w)

	if store != nil {
		j := app.Group("/_journal")
		j.Get("/records", h.ListRecords)
		j.Get("/stats", h.JournalStats)
	}

	app.Get("/:code?", h.Status)
}
