package service

import (
	"context"
	"strings"
	"time"

	"finman-sync-server/internal/domain"
	"finman-sync-server/internal/repository"
	"finman-sync-server/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SyncService orchestrates converter, tombstones and the aggregate store.
// Upload processes the six kinds independently: a kind that fails to convert
// or store contributes nothing this round and must not abort the other five.
type SyncService struct {
	store     repository.AggregateRepository
	converter *RecordConverter
	wsManager *websocket.Manager
	logger    *zap.Logger
	now       func() time.Time
}

func NewSyncService(
	store repository.AggregateRepository,
	converter *RecordConverter,
	wsManager *websocket.Manager,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		store:     store,
		converter: converter,
		wsManager: wsManager,
		logger:    logger,
		now:       time.Now,
	}
}

// Upload merges the client's pushed data and deletions into the user's
// aggregate. It returns a report naming any kinds that contributed nothing;
// the call itself fails only on an empty user id.
func (s *SyncService) Upload(ctx context.Context, req *domain.UploadRequest) (*domain.UploadReport, error) {
	if req == nil || req.UserID == "" {
		return nil, ErrInvalidRequest
	}
	userID := req.UserID

	s.logger.Info("processing upload",
		zap.String("user_id", userID),
		zap.Int64("client_timestamp", req.Timestamp))

	if err := s.store.UpdateTracking(ctx, userID, trackingFrom(req.Data)); err != nil {
		// Breadcrumbs are best-effort; the six kinds still run.
		s.logger.Error("failed to persist tracking fields",
			zap.String("user_id", userID), zap.Error(err))
	}

	report := &domain.UploadReport{Timestamp: req.Timestamp}
	fail := func(kind string, err error) {
		s.logger.Error("upload kind failed",
			zap.String("user_id", userID),
			zap.String("collection", kind),
			zap.Error(err))
		report.FailedKinds = append(report.FailedKinds, kind)
	}

	if err := s.processExpenses(ctx, userID, ItemList(req.Data, domain.CollectionExpenses)); err != nil {
		fail(domain.CollectionExpenses, err)
	}
	if err := s.processCategories(ctx, userID, ItemList(req.Data, domain.CollectionCategories)); err != nil {
		fail(domain.CollectionCategories, err)
	}
	if err := s.processSavingsGoals(ctx, userID, ItemList(req.Data, domain.CollectionSavingsGoals)); err != nil {
		fail(domain.CollectionSavingsGoals, err)
	}
	if err := s.processReminders(ctx, userID, ItemList(req.Data, domain.CollectionReminders)); err != nil {
		fail(domain.CollectionReminders, err)
	}
	if err := s.processExtraIncomes(ctx, userID, ItemList(req.Data, domain.CollectionExtraIncomes)); err != nil {
		fail(domain.CollectionExtraIncomes, err)
	}
	if err := s.processBudget(ctx, userID, req.Data); err != nil {
		fail(domain.UploadKeyBudget, err)
	}

	s.processDeletions(ctx, userID, req.Deletions, report)

	s.logger.Info("upload completed",
		zap.String("user_id", userID),
		zap.Strings("failed_kinds", report.FailedKinds))

	if s.wsManager != nil {
		s.wsManager.BroadcastSyncCompleted(userID, s.now().UnixMilli())
	}

	return report, nil
}

// Download returns the full current state for the user. since is accepted
// for protocol symmetry but the snapshot is never filtered by it.
func (s *SyncService) Download(ctx context.Context, userID string, since int64) (*domain.DownloadResponse, error) {
	if userID == "" {
		return nil, ErrInvalidRequest
	}

	aggregate, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	data := domain.DownloadData{
		Expenses:            make([]domain.Expense, 0, len(aggregate.Expenses)),
		Categories:          make([]domain.Category, 0, len(aggregate.Categories)),
		SavingsGoals:        make([]domain.SavingsGoal, 0, len(aggregate.SavingsGoals)),
		Reminders:           make([]domain.Reminder, 0, len(aggregate.Reminders)),
		ExtraIncomes:        make([]domain.ExtraIncome, 0, len(aggregate.ExtraIncomes)),
		Budget:              aggregate.Budget.Amount,
		LastVisitedRoute:    aggregate.LastVisitedRoute,
		DataImportTimestamp: aggregate.DataImportTimestamp,
	}

	for _, expense := range aggregate.Expenses {
		data.Expenses = append(data.Expenses, expense)
	}
	for _, category := range aggregate.Categories {
		data.Categories = append(data.Categories, category)
	}
	for _, goal := range aggregate.SavingsGoals {
		data.SavingsGoals = append(data.SavingsGoals, goal)
	}
	for _, reminder := range aggregate.Reminders {
		data.Reminders = append(data.Reminders, reminder)
	}
	for _, income := range aggregate.ExtraIncomes {
		data.ExtraIncomes = append(data.ExtraIncomes, income)
	}

	tombstones := make(map[string][]string, len(domain.Collections))
	for _, collection := range domain.Collections {
		tombstones[collection] = aggregate.TombstonesFor(collection)
	}

	s.logger.Info("download snapshot ready",
		zap.String("user_id", userID),
		zap.Int64("since", since),
		zap.Int("expenses", len(data.Expenses)),
		zap.Int("reminders", len(data.Reminders)))

	return &domain.DownloadResponse{
		Data:              data,
		Tombstones:        tombstones,
		LastSyncTimestamp: aggregate.LastSyncTimestamp,
		Timestamp:         s.now().UnixMilli(),
	}, nil
}

func (s *SyncService) processExpenses(ctx context.Context, userID string, items []map[string]interface{}) error {
	records := make(map[string]interface{}, len(items))
	for i, item := range items {
		expense, err := s.converter.Expense(item)
		if err != nil {
			s.logConversionSkip(userID, domain.CollectionExpenses, i, err)
			continue
		}
		expense.UserID = userID
		records[expense.ID] = expense
	}
	return s.store.UpsertRecords(ctx, userID, domain.CollectionExpenses, records)
}

func (s *SyncService) processCategories(ctx context.Context, userID string, items []map[string]interface{}) error {
	records := make(map[string]interface{}, len(items))
	for i, item := range items {
		category, err := s.converter.Category(item)
		if err != nil {
			s.logConversionSkip(userID, domain.CollectionCategories, i, err)
			continue
		}
		category.UserID = userID
		records[category.ID] = category
	}
	return s.store.UpsertRecords(ctx, userID, domain.CollectionCategories, records)
}

func (s *SyncService) processExtraIncomes(ctx context.Context, userID string, items []map[string]interface{}) error {
	records := make(map[string]interface{}, len(items))
	for i, item := range items {
		income, err := s.converter.ExtraIncome(item)
		if err != nil {
			s.logConversionSkip(userID, domain.CollectionExtraIncomes, i, err)
			continue
		}
		income.UserID = userID
		records[income.ID] = income
	}
	return s.store.UpsertRecords(ctx, userID, domain.CollectionExtraIncomes, records)
}

// processSavingsGoals saves each goal, then recomputes its accumulated total
// from the user's savings expenses and persists the corrected goal. The
// client's own accumulated/completed values are never trusted verbatim.
func (s *SyncService) processSavingsGoals(ctx context.Context, userID string, items []map[string]interface{}) error {
	for i, item := range items {
		goal, err := s.converter.SavingsGoal(item)
		if err != nil {
			s.logConversionSkip(userID, domain.CollectionSavingsGoals, i, err)
			continue
		}
		goal.UserID = userID

		if err := s.store.UpsertRecords(ctx, userID, domain.CollectionSavingsGoals,
			map[string]interface{}{goal.ID: goal}); err != nil {
			return err
		}

		accumulated, err := s.accumulatedFor(ctx, userID, goal.Name)
		if err != nil {
			return err
		}
		goal.Accumulated = accumulated
		goal.Completed = accumulated >= goal.TargetAmount

		if err := s.store.UpsertRecords(ctx, userID, domain.CollectionSavingsGoals,
			map[string]interface{}{goal.ID: goal}); err != nil {
			return err
		}
	}
	return nil
}

// accumulatedFor sums the user's expenses in the savings category whose name
// mentions the goal.
func (s *SyncService) accumulatedFor(ctx context.Context, userID, goalName string) (float64, error) {
	expenses, err := s.store.ExpensesByCategory(ctx, userID, domain.SavingsCategory)
	if err != nil {
		return 0, err
	}

	var total float64
	for _, expense := range expenses {
		if strings.Contains(expense.Name, goalName) {
			total += expense.Amount
		}
	}
	return total, nil
}

// processReminders saves each reminder; a completed reminder without a
// linked expense gets one synthesized, so every completed reminder has
// exactly one corresponding expense.
func (s *SyncService) processReminders(ctx context.Context, userID string, items []map[string]interface{}) error {
	for i, item := range items {
		reminder, err := s.converter.Reminder(item)
		if err != nil {
			s.logConversionSkip(userID, domain.CollectionReminders, i, err)
			continue
		}
		reminder.UserID = userID

		if reminder.Status == domain.ReminderCompleted {
			existing, err := s.store.ExpenseByReminderID(ctx, userID, reminder.ID)
			if err != nil {
				return err
			}
			if existing == nil {
				expense := domain.Expense{
					ID:         uuid.New().String(),
					Name:       reminder.Title,
					Amount:     reminder.Amount,
					Category:   reminder.Category,
					Date:       reminder.CreatedAt,
					UserID:     userID,
					Origin:     domain.OriginReminder,
					ReminderID: reminder.ID,
				}
				if err := s.store.UpsertRecords(ctx, userID, domain.CollectionExpenses,
					map[string]interface{}{expense.ID: expense}); err != nil {
					return err
				}
				s.logger.Info("created expense for completed reminder",
					zap.String("user_id", userID),
					zap.String("reminder_id", reminder.ID),
					zap.String("expense_id", expense.ID))
			}
		}

		if err := s.store.UpsertRecords(ctx, userID, domain.CollectionReminders,
			map[string]interface{}{reminder.ID: reminder}); err != nil {
			return err
		}
	}
	return nil
}

func (s *SyncService) processBudget(ctx context.Context, userID string, data map[string]interface{}) error {
	raw, ok := data[domain.UploadKeyBudget]
	if !ok {
		return nil
	}

	amount, err := s.converter.BudgetAmount(raw)
	if err != nil {
		return err
	}
	return s.store.UpdateBudget(ctx, userID, amount)
}

// processDeletions tombstones the listed ids per collection. A failed
// collection is reported like a failed kind and the rest still run.
func (s *SyncService) processDeletions(ctx context.Context, userID string, deletions map[string][]string, report *domain.UploadReport) {
	for _, collection := range domain.Collections {
		ids := deletions[collection]
		if len(ids) == 0 {
			continue
		}
		if err := s.store.RemoveRecords(ctx, userID, collection, ids); err != nil {
			s.logger.Error("failed to apply deletions",
				zap.String("user_id", userID),
				zap.String("collection", collection),
				zap.Strings("ids", ids),
				zap.Error(err))
			if !containsKind(report.FailedKinds, collection) {
				report.FailedKinds = append(report.FailedKinds, collection)
			}
		}
	}
}

func (s *SyncService) logConversionSkip(userID, collection string, index int, err error) {
	s.logger.Warn("skipping malformed entity",
		zap.String("user_id", userID),
		zap.String("collection", collection),
		zap.Int("index", index),
		zap.Error(err))
}

func trackingFrom(data map[string]interface{}) domain.TrackingInfo {
	var info domain.TrackingInfo
	if v, ok := data[domain.UploadKeyLastVisitedRoute].(string); ok {
		info.LastVisitedRoute = &v
	}
	if v, ok := data[domain.UploadKeySessionID].(string); ok {
		info.SessionID = &v
	}
	if v, ok := data[domain.UploadKeyDataImportTimestamp].(float64); ok {
		millis := int64(v)
		info.DataImportTimestamp = &millis
	}
	return info
}

func containsKind(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
