package report

type TaskType string

const (
	TaskTypeExport  TaskType = "export"
	TaskTypeArchive TaskType = "archive"
)

type ExportStatus string

const (
	ExportStatusPending    ExportStatus = "pending"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusDone       ExportStatus = "done"
	ExportStatusFailed     ExportStatus = "failed"
)

// InProgress reports whether a task with this status still occupies its key.
func (s ExportStatus) InProgress() bool {
	return s == ExportStatusPending || s == ExportStatusProcessing
}

// ExportTask is the job persisted in Redis. It must be JSON-serializable.
type ExportTask struct {
	TaskID       string   `json:"task_id"`
	Type         TaskType `json:"type"`
	Table        Table    `json:"table,omitempty"`
	Format       Format   `json:"format,omitempty"`
	SelectionKey string   `json:"selection_key,omitempty"`
	RequestedAt  int64    `json:"requested_at"` // Unix milliseconds, archives are date-stamped with it
}

// DedupKey identifies tasks that would produce the same file.
func (t ExportTask) DedupKey() string {
	if t.Type == TaskTypeArchive {
		return string(t.Type) + ":" + t.SelectionKey
	}
	return string(t.Type) + ":" + string(t.Table) + ":" + string(t.Format)
}

type ExportMetadata struct {
	TaskID   string       `json:"task_id"`
	FileName string       `json:"file_name,omitempty"`
	MimeType string       `json:"mime_type,omitempty"`
	Status   ExportStatus `json:"status"`
	Location string       `json:"location,omitempty"`
	Size     int64        `json:"size,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// --- Persistence Models (Storage/DB) ---

type NewExportHistory struct {
	TaskID    string       `db:"task_id"`
	Type      TaskType     `db:"type"`
	Name      string       `db:"name"`
	Mime      string       `db:"mime"`
	Status    ExportStatus `db:"status"`
	CreatedAt int64        `db:"created_at"`
	Selection string       `db:"selection_key"`
}

// UpdateExportStatus changes the status of an export and attaches the
// delivered file location once processing ends.
type UpdateExportStatus struct {
	ID       int64        `db:"id"`
	Status   ExportStatus `db:"status"`
	Location *string      `db:"location"`
	Size     int64        `db:"size"`
	Error    *string      `db:"error"`
}

type HistoryRecord struct {
	ID        int64        `json:"id" db:"id"`
	TaskID    string       `json:"task_id" db:"task_id"`
	Type      TaskType     `json:"type" db:"type"`
	Name      string       `json:"name" db:"name"`
	Mime      string       `json:"mime" db:"mime"`
	Status    ExportStatus `json:"status" db:"status"`
	Location  *string      `json:"location,omitempty" db:"location"`
	Size      int64        `json:"size" db:"size"`
	Error     *string      `json:"error,omitempty" db:"error"`
	CreatedAt int64        `json:"created_at" db:"created_at"`
	UpdatedAt int64        `json:"updated_at" db:"updated_at"`
}

type HistoryResponse struct {
	Page int32            `json:"page"`
	Next bool             `json:"next"`
	Data []*HistoryRecord `json:"data"`
}

// ExportRequest asks for a queued export of a table or an archive of an EHR.
type ExportRequest struct {
	Type   TaskType `json:"type"`
	Table  string   `json:"table,omitempty"`
	Format string   `json:"format,omitempty"`
	EHR    string   `json:"ehr,omitempty"`
}
