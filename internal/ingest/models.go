package ingest

// UploadFile is one in-memory uploaded file. Name is the relative path as
// supplied by the client and may contain nested folders.
type UploadFile struct {
	Name string
	Data []byte
}

// Result is the outcome of one ingestion batch. ProcessedCount is the number
// of faces successfully indexed, never the number of files.
type Result struct {
	Success        bool     `json:"success"`
	TotalFiles     int      `json:"total_files"`
	ProcessedCount int      `json:"processed_count"`
	Errors         []string `json:"errors"`
	Message        string   `json:"message,omitempty"`
}
