package api

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2/utils"

	"github.com/georgeshao/canned-status/internal/journal"
	"github.com/georgeshao/canned-status/pkg/types"
)

func recordToType(record *journal.Record) types.Record {
	return types.Record{
		ID:         record.ID,
		Token:      record.Token,
		Outcome:    record.Outcome,
		StatusCode: record.StatusCode,
		Method:     record.Method,
		RemoteIP:   record.RemoteIP,
		CreatedAt:  record.CreatedAt.Format(time.RFC3339Nano),
	}
}

// pathToken decodes the raw route parameter. Routing runs on the escaped
// path so that %2F stays inside one segment; an invalid escape is kept as is.
// The result never aliases the request buffer.
func pathToken(raw string) string {
	if decoded, err := url.PathUnescape(raw); err == nil && decoded != raw {
		return decoded
	}
	return utils.CopyString(raw)
}
