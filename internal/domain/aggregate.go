package domain

// UserFinanceAggregate is the single per-user document holding all six
// financial collections plus sync metadata. The document id is the user id,
// so there is exactly one aggregate per user.
type UserFinanceAggregate struct {
	ID     string `json:"id" bson:"_id"`
	UserID string `json:"userId" bson:"userId"`

	LastSyncTimestamp   int64  `json:"lastSyncTimestamp" bson:"lastSyncTimestamp"`
	LastVisitedRoute    string `json:"lastVisitedRoute,omitempty" bson:"lastVisitedRoute,omitempty"`
	SessionID           string `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
	DataImportTimestamp int64  `json:"dataImportTimestamp,omitempty" bson:"dataImportTimestamp,omitempty"`

	Budget Budget `json:"budget" bson:"budget"`

	Expenses     map[string]Expense     `json:"expenses" bson:"expenses"`
	Categories   map[string]Category    `json:"categories" bson:"categories"`
	SavingsGoals map[string]SavingsGoal `json:"savingsGoals" bson:"savingsGoals"`
	Reminders    map[string]Reminder    `json:"reminders" bson:"reminders"`
	ExtraIncomes map[string]ExtraIncome `json:"extraIncomes" bson:"extraIncomes"`

	// Tombstones maps collection name to the ids deleted from it. Entries
	// are cumulative; an id is never in a collection and its tombstone set
	// at the same time.
	Tombstones map[string][]string `json:"tombstones" bson:"tombstones"`
}

// NewEmptyAggregate builds the aggregate created on a user's first upload or
// download: empty collections, zero budget.
func NewEmptyAggregate(userID string, now int64) *UserFinanceAggregate {
	return &UserFinanceAggregate{
		ID:                userID,
		UserID:            userID,
		LastSyncTimestamp: now,
		Budget: Budget{
			ID:        userID,
			UserID:    userID,
			Amount:    0,
			UpdatedAt: now,
		},
		Expenses:     make(map[string]Expense),
		Categories:   make(map[string]Category),
		SavingsGoals: make(map[string]SavingsGoal),
		Reminders:    make(map[string]Reminder),
		ExtraIncomes: make(map[string]ExtraIncome),
		Tombstones:   emptyTombstones(),
	}
}

func emptyTombstones() map[string][]string {
	t := make(map[string][]string, len(Collections))
	for _, c := range Collections {
		t[c] = []string{}
	}
	return t
}

// TombstonesFor returns the deleted ids for a collection, never nil.
func (a *UserFinanceAggregate) TombstonesFor(collection string) []string {
	if a.Tombstones == nil {
		return []string{}
	}
	ids, ok := a.Tombstones[collection]
	if !ok || ids == nil {
		return []string{}
	}
	return ids
}
