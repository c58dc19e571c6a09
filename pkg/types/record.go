package types

type Record struct {
	ID         string `json:"id"`
	Token      string `json:"token"`
	Outcome    string `json:"outcome"`
	StatusCode int    `json:"status_code"`
	Method     string `json:"method,omitempty"`
	RemoteIP   string `json:"remote_ip,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type ListRecordsResponse struct {
	Records    []Record `json:"records"`
	Total      int      `json:"total"`
	Limit      int      `json:"limit"`
	NextCursor *string  `json:"next_cursor,omitempty"`
}

type WriterStats struct {
	Enqueued int64 `json:"enqueued"`
	Written  int64 `json:"written"`
	Dropped  int64 `json:"dropped"`
	Failed   int64 `json:"failed"`
}

type JournalStats struct {
	Total     int            `json:"total"`
	ByOutcome map[string]int `json:"by_outcome"`
	Writer    *WriterStats   `json:"writer,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
