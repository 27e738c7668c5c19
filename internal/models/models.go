// internal/models/models.go
package models

type RequestStatus string

const (
	StatusProcessing RequestStatus = "Processing"
	StatusCompleted  RequestStatus = "Completed"
)

// Request is one submitted CSV batch.
type Request struct {
	ID     string        `json:"requestId" db:"request_id"`
	Status RequestStatus `json:"status" db:"status"`
}

// Row is one product line of the uploaded CSV. InputURLs keeps the raw
// delimited field, URLs holds the split and trimmed entries.
type Row struct {
	Line         int      `json:"line"`
	SerialNumber string   `json:"serial_number"`
	ProductName  string   `json:"product_name"`
	InputURLs    string   `json:"input_urls"`
	URLs         []string `json:"urls"`
}

// ImageResult is persisted only when every URL of a row was processed.
type ImageResult struct {
	RequestID string `json:"request_id" db:"request_id"`
	InputURL  string `json:"input_url" db:"input_url"`
	OutputURL string `json:"output_url" db:"output_url"`
}

// RowOutcome reports what happened to a single row. A nil Err means success.
type RowOutcome struct {
	Line      int
	OutputURL string
	Err       error
}

func (o RowOutcome) Succeeded() bool {
	return o.Err == nil
}

type Summary struct {
	RequestID string `json:"requestId"`
	Rows      int    `json:"rows"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// Job is the unit handed to the queue in async mode.
type Job struct {
	RequestID string `json:"request_id"`
	Rows      []Row  `json:"rows"`
}

// Notification is the webhook payload.
type Notification struct {
	RequestID string        `json:"requestId"`
	Status    RequestStatus `json:"status"`
}
