package service

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"finman-sync-server/internal/domain"

	"github.com/google/uuid"
)

// RecordConverter turns loosely-typed client payloads into typed records.
// Coercion is deliberately permissive: the client is untrusted and a single
// malformed field must never abort a whole batch, so numeric and boolean
// fields fall back to defaults instead of failing. Only a payload that is
// not an object at all yields a ConversionError.
type RecordConverter struct {
	now func() time.Time
}

func NewRecordConverter() *RecordConverter {
	return &RecordConverter{now: time.Now}
}

func (c *RecordConverter) Expense(item map[string]interface{}) (domain.Expense, error) {
	if item == nil {
		return domain.Expense{}, &ConversionError{Kind: domain.CollectionExpenses, Reason: "payload is not an object"}
	}

	id := asString(item["id"])
	if id == "" {
		id = uuid.New().String()
	}

	return domain.Expense{
		ID:         id,
		Name:       asString(item["name"]),
		Amount:     c.parseAmount(item["amount"]),
		Category:   asString(item["category"]),
		Date:       c.parseDate(item["date"]),
		UserID:     asString(item["userId"]),
		Origin:     asString(item["origin"]),
		ReminderID: asString(item["reminderId"]),
	}, nil
}

func (c *RecordConverter) Category(item map[string]interface{}) (domain.Category, error) {
	if item == nil {
		return domain.Category{}, &ConversionError{Kind: domain.CollectionCategories, Reason: "payload is not an object"}
	}

	name := asString(item["name"])
	id := asString(item["id"])
	if id == "" {
		id = c.categoryID(name)
	}

	return domain.Category{
		ID:     id,
		Name:   name,
		Icon:   asString(item["icon"]),
		Color:  asString(item["color"]),
		UserID: asString(item["userId"]),
	}, nil
}

func (c *RecordConverter) SavingsGoal(item map[string]interface{}) (domain.SavingsGoal, error) {
	if item == nil {
		return domain.SavingsGoal{}, &ConversionError{Kind: domain.CollectionSavingsGoals, Reason: "payload is not an object"}
	}

	id := asString(item["id"])
	if id == "" {
		id = uuid.New().String()
	}

	return domain.SavingsGoal{
		ID:            id,
		Name:          asString(item["name"]),
		TargetAmount:  c.parseAmount(item["targetAmount"]),
		TargetDate:    asString(item["targetDate"]),
		Description:   asString(item["description"]),
		CreatedAt:     c.parseDate(item["createdAt"]),
		Accumulated:   c.parseAmount(item["accumulated"]),
		WeeklyPlan:    c.parseAmount(item["weeklyPlan"]),
		MonthlyPlan:   c.parseAmount(item["monthlyPlan"]),
		YearlyPlan:    c.parseAmount(item["yearlyPlan"]),
		DaysRemaining: parseCount(item["daysRemaining"]),
		Completed:     parseBool(item["completed"]),
		UserID:        asString(item["userId"]),
	}, nil
}

func (c *RecordConverter) Reminder(item map[string]interface{}) (domain.Reminder, error) {
	if item == nil {
		return domain.Reminder{}, &ConversionError{Kind: domain.CollectionReminders, Reason: "payload is not an object"}
	}

	id := asString(item["id"])
	if id == "" {
		id = uuid.New().String()
	}

	return domain.Reminder{
		ID:          id,
		Title:       asString(item["title"]),
		Description: asString(item["description"]),
		Amount:      c.parseAmount(item["amount"]),
		DueDate:     c.parseDate(item["dueDate"]),
		Category:    asString(item["category"]),
		Recurring:   parseBool(item["recurring"]),
		Frequency:   asString(item["frequency"]),
		LeadDays:    parseCount(item["leadDays"]),
		CreatedAt:   c.parseDate(item["createdAt"]),
		Status:      asString(item["status"]),
		UserID:      asString(item["userId"]),
	}, nil
}

func (c *RecordConverter) ExtraIncome(item map[string]interface{}) (domain.ExtraIncome, error) {
	if item == nil {
		return domain.ExtraIncome{}, &ConversionError{Kind: domain.CollectionExtraIncomes, Reason: "payload is not an object"}
	}

	id := asString(item["id"])
	if id == "" {
		id = uuid.New().String()
	}

	return domain.ExtraIncome{
		ID:          id,
		Amount:      c.parseAmount(item["amount"]),
		Description: asString(item["description"]),
		Date:        c.parseDate(item["date"]),
		UserID:      asString(item["userId"]),
	}, nil
}

// BudgetAmount coerces the bare budget value from the upload payload.
func (c *RecordConverter) BudgetAmount(value interface{}) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, &ConversionError{Kind: domain.UploadKeyBudget, Reason: "missing value"}
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, &ConversionError{Kind: domain.UploadKeyBudget, Reason: fmt.Sprintf("unparsable amount %q", v)}
		}
		return amount, nil
	default:
		return 0, &ConversionError{Kind: domain.UploadKeyBudget, Reason: fmt.Sprintf("unsupported type %T", value)}
	}
}

// ItemList extracts a collection's list of payload objects from the upload
// data map. Missing keys and non-list values yield an empty list.
func ItemList(data map[string]interface{}, key string) []map[string]interface{} {
	raw, ok := data[key]
	if !ok {
		return nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}

	items := make([]map[string]interface{}, 0, len(list))
	for _, entry := range list {
		item, _ := entry.(map[string]interface{})
		items = append(items, item) // nil entries surface as ConversionErrors
	}
	return items
}

// categoryID derives an id from the category name, as the client apps have
// historically done, so re-uploads of the same unnamed category do not pile
// up duplicates with random ids.
func (c *RecordConverter) categoryID(name string) string {
	if name == "" {
		return uuid.New().String()
	}
	slug := strings.ToLower(strings.ReplaceAll(name, " ", ""))
	return fmt.Sprintf("%s-%d-%d", slug, c.now().UnixMilli(), rand.Intn(1000))
}

func asString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parseAmount accepts a number or a numeric string; anything else falls back
// to 0.0.
func (c *RecordConverter) parseAmount(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return amount
	default:
		return 0
	}
}

func parseCount(value interface{}) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		count, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return count
	default:
		return 0
	}
}

func parseBool(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

// parseDate accepts epoch milliseconds (number or numeric string) or an
// ISO-8601 timestamp, stripping a trailing Z before the zoneless parse.
// Unparsable dates fall back to now.
func (c *RecordConverter) parseDate(value interface{}) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		if millis, err := strconv.ParseInt(v, 10, 64); err == nil {
			return millis
		}
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts.UnixMilli()
		}
		trimmed := strings.TrimSuffix(v, "Z")
		if ts, err := time.Parse("2006-01-02T15:04:05", trimmed); err == nil {
			return ts.UnixMilli()
		}
		return c.now().UnixMilli()
	default:
		return c.now().UnixMilli()
	}
}
