package constants

// FileStatus is the canonical per-file state inside a batch run.
type FileStatus string

// Stable values (logged and reported in run summaries).
const (
	FileStatusQueued    FileStatus = "QUEUED"      // waiting for a worker
	FileStatusRunning   FileStatus = "RUNNING"     // in progress
	FileStatusOCROK     FileStatus = "OCR_OK"      // stage 1 completed (fields extracted)
	FileStatusAnnotated FileStatus = "ANNOTATE_OK" // stage 2 completed (receipts analyzed)
	FileStatusDone      FileStatus = "DONE"        // rows emitted
	FileStatusSkipped   FileStatus = "SKIPPED"     // OCR failed after retries, no rows
)
