package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finman-sync-server/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// AggregateRepository is the per-user aggregate store. All writes are
// targeted field-path updates so concurrent uploads for different
// collections of the same user never clobber each other's fields.
type AggregateRepository interface {
	Get(ctx context.Context, userID string) (*domain.UserFinanceAggregate, error)
	UpsertRecords(ctx context.Context, userID, collection string, records map[string]interface{}) error
	RemoveRecords(ctx context.Context, userID, collection string, ids []string) error
	UpdateBudget(ctx context.Context, userID string, amount float64) error
	UpdateTracking(ctx context.Context, userID string, info domain.TrackingInfo) error
	ExpenseByReminderID(ctx context.Context, userID, reminderID string) (*domain.Expense, error)
	ExpensesByCategory(ctx context.Context, userID, category string) ([]domain.Expense, error)
}

type aggregateRepository struct {
	coll *mongo.Collection
}

func NewAggregateRepository(client *mongo.Client, dbName string) AggregateRepository {
	return &aggregateRepository{
		coll: client.Database(dbName).Collection(FinanceCollection),
	}
}

// Get returns the user's aggregate, creating and persisting an empty one on
// first access.
func (r *aggregateRepository) Get(ctx context.Context, userID string) (*domain.UserFinanceAggregate, error) {
	var aggregate domain.UserFinanceAggregate
	err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&aggregate)
	if err == nil {
		normalize(&aggregate)
		return &aggregate, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to fetch aggregate: %w", err)
	}

	created := domain.NewEmptyAggregate(userID, time.Now().UnixMilli())
	if _, err := r.coll.InsertOne(ctx, created); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Lost the create race; the winner's document is authoritative.
			return r.Get(ctx, userID)
		}
		return nil, fmt.Errorf("failed to create aggregate: %w", err)
	}

	return created, nil
}

// ensure makes the document exist before a field-path update.
func (r *aggregateRepository) ensure(ctx context.Context, userID string) error {
	count, err := r.coll.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return fmt.Errorf("failed to check aggregate existence: %w", err)
	}
	if count > 0 {
		return nil
	}

	_, err = r.Get(ctx, userID)
	return err
}

func (r *aggregateRepository) UpsertRecords(ctx context.Context, userID, collection string, records map[string]interface{}) error {
	if len(records) == 0 {
		return nil
	}
	if err := r.ensure(ctx, userID); err != nil {
		return err
	}

	set := bson.M{"lastSyncTimestamp": time.Now().UnixMilli()}
	ids := make([]string, 0, len(records))
	for id, record := range records {
		set[collection+"."+id] = record
		ids = append(ids, id)
	}

	// Re-inserting an id clears its tombstone.
	update := bson.M{
		"$set":  set,
		"$pull": bson.M{"tombstones." + collection: bson.M{"$in": ids}},
	}

	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update); err != nil {
		return fmt.Errorf("failed to upsert %s records: %w", collection, err)
	}
	return nil
}

func (r *aggregateRepository) RemoveRecords(ctx context.Context, userID, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.ensure(ctx, userID); err != nil {
		return err
	}

	unset := bson.M{}
	for _, id := range ids {
		unset[collection+"."+id] = ""
	}

	update := bson.M{
		"$unset":    unset,
		"$addToSet": bson.M{"tombstones." + collection: bson.M{"$each": ids}},
		"$set":      bson.M{"lastSyncTimestamp": time.Now().UnixMilli()},
	}

	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update); err != nil {
		return fmt.Errorf("failed to remove %s records: %w", collection, err)
	}
	return nil
}

func (r *aggregateRepository) UpdateBudget(ctx context.Context, userID string, amount float64) error {
	if err := r.ensure(ctx, userID); err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	update := bson.M{"$set": bson.M{
		"budget.amount":     amount,
		"budget.updatedAt":  now,
		"lastSyncTimestamp": now,
	}}

	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, update); err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	return nil
}

func (r *aggregateRepository) UpdateTracking(ctx context.Context, userID string, info domain.TrackingInfo) error {
	if info.Empty() {
		return nil
	}
	if err := r.ensure(ctx, userID); err != nil {
		return err
	}

	set := bson.M{}
	if info.LastVisitedRoute != nil {
		set["lastVisitedRoute"] = *info.LastVisitedRoute
	}
	if info.SessionID != nil {
		set["sessionId"] = *info.SessionID
	}
	if info.DataImportTimestamp != nil {
		set["dataImportTimestamp"] = *info.DataImportTimestamp
	}

	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("failed to update tracking fields: %w", err)
	}
	return nil
}

// ExpenseByReminderID scans the user's expense map for one linked to the
// reminder. With one document per user the scan is a single read.
func (r *aggregateRepository) ExpenseByReminderID(ctx context.Context, userID, reminderID string) (*domain.Expense, error) {
	aggregate, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	for _, expense := range aggregate.Expenses {
		if expense.ReminderID == reminderID {
			return &expense, nil
		}
	}
	return nil, nil
}

func (r *aggregateRepository) ExpensesByCategory(ctx context.Context, userID, category string) ([]domain.Expense, error) {
	aggregate, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	var expenses []domain.Expense
	for _, expense := range aggregate.Expenses {
		if expense.Category == category {
			expenses = append(expenses, expense)
		}
	}
	return expenses, nil
}

// normalize guards against documents written before a collection existed.
func normalize(a *domain.UserFinanceAggregate) {
	if a.Expenses == nil {
		a.Expenses = make(map[string]domain.Expense)
	}
	if a.Categories == nil {
		a.Categories = make(map[string]domain.Category)
	}
	if a.SavingsGoals == nil {
		a.SavingsGoals = make(map[string]domain.SavingsGoal)
	}
	if a.Reminders == nil {
		a.Reminders = make(map[string]domain.Reminder)
	}
	if a.ExtraIncomes == nil {
		a.ExtraIncomes = make(map[string]domain.ExtraIncome)
	}
	if a.Tombstones == nil {
		a.Tombstones = make(map[string][]string)
	}
}
