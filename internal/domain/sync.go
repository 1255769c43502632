package domain

// UploadRequest is the client push. Data holds the six kinds keyed by
// collection name ("budget" maps to a bare amount, the others to lists of
// loosely-typed entities); Deletions lists ids to tombstone per collection.
type UploadRequest struct {
	UserID    string                 `json:"userId" validate:"required"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Deletions map[string][]string    `json:"deletions"`
}

// UploadKeyBudget is the Data key carrying the budget amount.
const UploadKeyBudget = "budget"

// Tracking keys the client may send alongside the collections.
const (
	UploadKeyLastVisitedRoute    = "lastVisitedRoute"
	UploadKeySessionID           = "sessionId"
	UploadKeyDataImportTimestamp = "dataImportTimestamp"
)

// TrackingInfo carries the optional client breadcrumbs persisted on the
// aggregate. Nil fields are left untouched.
type TrackingInfo struct {
	LastVisitedRoute    *string
	SessionID           *string
	DataImportTimestamp *int64
}

// Empty reports whether there is nothing to persist.
func (t TrackingInfo) Empty() bool {
	return t.LastVisitedRoute == nil && t.SessionID == nil && t.DataImportTimestamp == nil
}

// UploadReport is the engine's structured outcome. FailedKinds names the
// kinds that contributed nothing this round; the round as a whole still
// succeeds.
type UploadReport struct {
	Timestamp   int64    `json:"timestamp"`
	FailedKinds []string `json:"failedKinds,omitempty"`
}

// DownloadResponse is the wire reshape of the aggregate: budget as a bare
// number, each collection as a list (map order not guaranteed), plus the
// full tombstone sets and tracking metadata.
type DownloadResponse struct {
	Data              DownloadData        `json:"data"`
	Tombstones        map[string][]string `json:"tombstones"`
	LastSyncTimestamp int64               `json:"lastSyncTimestamp"`
	SessionActive     bool                `json:"sessionActive"`
	Timestamp         int64               `json:"timestamp"`
}

type DownloadData struct {
	Expenses     []Expense     `json:"expenses"`
	Categories   []Category    `json:"categories"`
	SavingsGoals []SavingsGoal `json:"savingsGoals"`
	Reminders    []Reminder    `json:"reminders"`
	ExtraIncomes []ExtraIncome `json:"extraIncomes"`
	Budget       float64       `json:"budget"`

	LastVisitedRoute    string `json:"lastVisitedRoute,omitempty"`
	DataImportTimestamp int64  `json:"dataImportTimestamp,omitempty"`
}
