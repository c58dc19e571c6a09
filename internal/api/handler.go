package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/georgeshao/canned-status/internal/dispatcher"
	"github.com/georgeshao/canned-status/internal/journal"
	"github.com/georgeshao/canned-status/pkg/types"
)

const maxListLimit = 1000

type Handler struct {
	dispatcher *dispatcher.Dispatcher
	store      journal.Store
	writer     *journal.Writer
}

func NewHandler(d *dispatcher.Dispatcher, store journal.Store, w *journal.Writer) *Handler {
	return &Handler{
		dispatcher: d,
		store:      store,
		writer:     w,
	}
}

// Status handles GET /:code
func (h *Handler) Status(c *fiber.Ctx) error {
	token := pathToken(c.Params("code"))

	result := h.dispatcher.Dispatch(token)

	if h.writer != nil {
		h.writer.Enqueue(&journal.Record{
			ID:         journal.NewRecordID(),
			Token:      token,
			Outcome:    result.Outcome.String(),
			StatusCode: result.StatusCode,
			// Method aliases a fasthttp buffer reused after the handler returns.
			Method:    utils.CopyString(c.Method()),
			RemoteIP:  c.IP(),
			CreatedAt: time.Now(),
		})
	}

	return c.Status(result.StatusCode).SendString(result.Body)
}

// ListRecords handles GET /_journal/records
func (h *Handler) ListRecords(c *fiber.Ctx) error {
	outcome := c.Query("outcome")
	cursor := c.Query("cursor")
	limit := c.QueryInt("limit", journal.DefaultListLimit)

	if limit <= 0 || limit > maxListLimit {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: "Limit must be between 1 and 1000"})
	}

	filter := journal.Filter{
		Limit: limit,
	}

	if outcome != "" {
		o, err := dispatcher.ParseOutcomeName(outcome)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: "Invalid outcome"})
		}
		name := o.String()
		filter.Outcome = &name
	}
	if cursor != "" {
		cur, err := journal.ParseCursor(cursor)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{Error: "Invalid cursor format"})
		}
		filter.Cursor = &cur
	}

	records, total, err := h.store.List(c.Context(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Failed to list records"})
	}

	out := make([]types.Record, len(records))
	for i, record := range records {
		out[i] = recordToType(record)
	}

	// Set next cursor from the last item if the page is full
	var nextCursor *string
	if len(records) == limit {
		last := records[len(records)-1]
		next := journal.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}.String()
		nextCursor = &next
	}

	return c.JSON(types.ListRecordsResponse{
		Records:    out,
		Total:      total,
		Limit:      limit,
		NextCursor: nextCursor,
	})
}

// JournalStats handles GET /_journal/stats
func (h *Handler) JournalStats(c *fiber.Ctx) error {
	stats, err := h.store.Stats(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(types.ErrorResponse{Error: "Failed to get journal stats"})
	}

	resp := types.JournalStats{
		Total:     stats.Total,
		ByOutcome: make(map[string]int, len(dispatcher.Outcomes)),
	}
	for _, o := range dispatcher.Outcomes {
		resp.ByOutcome[o.String()] = stats.ByOutcome[o.String()]
	}

	if h.writer != nil {
		ws := h.writer.Stats()
		resp.Writer = &types.WriterStats{
			Enqueued: ws.Enqueued,
			Written:  ws.Written,
			Dropped:  ws.Dropped,
			Failed:   ws.Failed,
		}
	}

	return c.JSON(resp)
}
