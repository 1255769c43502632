package domain

// Collection names as they appear on the wire and inside the aggregate
// document. The budget is a single value per user, not a collection.
const (
	CollectionExpenses     = "expenses"
	CollectionCategories   = "categories"
	CollectionSavingsGoals = "savingsGoals"
	CollectionReminders    = "reminders"
	CollectionExtraIncomes = "extraIncomes"
)

// Collections lists the five id-keyed collections in a stable order.
var Collections = []string{
	CollectionExpenses,
	CollectionCategories,
	CollectionSavingsGoals,
	CollectionReminders,
	CollectionExtraIncomes,
}

type Budget struct {
	ID        string  `json:"id" bson:"id"`
	UserID    string  `json:"userId" bson:"userId"`
	Amount    float64 `json:"amount" bson:"amount"`
	UpdatedAt int64   `json:"updatedAt" bson:"updatedAt"`
}

type Expense struct {
	ID         string  `json:"id" bson:"id"`
	Name       string  `json:"name" bson:"name"`
	Amount     float64 `json:"amount" bson:"amount"`
	Category   string  `json:"category" bson:"category"`
	Date       int64   `json:"date" bson:"date"`
	UserID     string  `json:"userId" bson:"userId"`
	Origin     string  `json:"origin,omitempty" bson:"origin,omitempty"`
	ReminderID string  `json:"reminderId,omitempty" bson:"reminderId,omitempty"`
}

// OriginReminder marks expenses synthesized from a completed reminder.
const OriginReminder = "reminder"

type Category struct {
	ID     string `json:"id" bson:"id"`
	Name   string `json:"name" bson:"name"`
	Icon   string `json:"icon" bson:"icon"`
	Color  string `json:"color" bson:"color"`
	UserID string `json:"userId" bson:"userId"`
}

type SavingsGoal struct {
	ID            string  `json:"id" bson:"id"`
	Name          string  `json:"name" bson:"name"`
	TargetAmount  float64 `json:"targetAmount" bson:"targetAmount"`
	TargetDate    string  `json:"targetDate" bson:"targetDate"`
	Description   string  `json:"description" bson:"description"`
	CreatedAt     int64   `json:"createdAt" bson:"createdAt"`
	Accumulated   float64 `json:"accumulated" bson:"accumulated"`
	WeeklyPlan    float64 `json:"weeklyPlan" bson:"weeklyPlan"`
	MonthlyPlan   float64 `json:"monthlyPlan" bson:"monthlyPlan"`
	YearlyPlan    float64 `json:"yearlyPlan" bson:"yearlyPlan"`
	DaysRemaining int     `json:"daysRemaining" bson:"daysRemaining"`
	Completed     bool    `json:"completed" bson:"completed"`
	UserID        string  `json:"userId" bson:"userId"`
}

// SavingsCategory is the expense category summed into a goal's accumulated
// total.
const SavingsCategory = "Savings"

type Reminder struct {
	ID          string  `json:"id" bson:"id"`
	Title       string  `json:"title" bson:"title"`
	Description string  `json:"description" bson:"description"`
	Amount      float64 `json:"amount" bson:"amount"`
	DueDate     int64   `json:"dueDate" bson:"dueDate"`
	Category    string  `json:"category" bson:"category"`
	Recurring   bool    `json:"recurring" bson:"recurring"`
	Frequency   string  `json:"frequency" bson:"frequency"`
	LeadDays    int     `json:"leadDays" bson:"leadDays"`
	CreatedAt   int64   `json:"createdAt" bson:"createdAt"`
	Status      string  `json:"status" bson:"status"`
	UserID      string  `json:"userId" bson:"userId"`
}

// ReminderCompleted is the status that obliges the engine to guarantee a
// linked expense exists.
const ReminderCompleted = "completed"

type ExtraIncome struct {
	ID          string  `json:"id" bson:"id"`
	Amount      float64 `json:"amount" bson:"amount"`
	Description string  `json:"description" bson:"description"`
	Date        int64   `json:"date" bson:"date"`
	UserID      string  `json:"userId" bson:"userId"`
}
