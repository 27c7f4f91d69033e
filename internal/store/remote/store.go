// Package remote implements the task store on top of the record service.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nhle/vibratodo/internal/category"
	"github.com/nhle/vibratodo/internal/model"
	"github.com/nhle/vibratodo/internal/recordapi"
	"github.com/nhle/vibratodo/internal/store"
)

// Record field names of the task collection.
const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldCompleted   = "completed"
	fieldPriority    = "priority"
	fieldCategory    = "category"
	fieldDueDate     = "dueDate"
	fieldPosition    = "position"
)

var listFields = []string{
	recordapi.FieldID,
	fieldTitle,
	fieldDescription,
	fieldCompleted,
	fieldPriority,
	fieldCategory,
	fieldDueDate,
	fieldPosition,
	recordapi.FieldCreatedOn,
}

// Records is the subset of the record service client the store uses.
type Records interface {
	Fetch(ctx context.Context, collection string, params recordapi.FetchParams) ([]recordapi.Record, error)
	Create(ctx context.Context, collection string, records []recordapi.Record) ([]recordapi.RecordResult, error)
	Update(ctx context.Context, collection string, records []recordapi.Record) ([]recordapi.RecordResult, error)
	Delete(ctx context.Context, collection string, ids []string) ([]recordapi.RecordResult, error)
}

// Store is a TaskStore backed by one collection of the record service.
// It holds no state besides its collaborators.
type Store struct {
	records    Records
	collection string
	categories *category.Registry
	log        *logrus.Entry
	now        func() time.Time
}

var _ store.TaskStore = (*Store)(nil)

// New returns a store over collection.
func New(records Records, collection string, categories *category.Registry, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{
		records:    records,
		collection: collection,
		categories: categories,
		log:        log.WithFields(logrus.Fields{"store": "remote", "collection": collection}),
		now:        time.Now,
	}
}

// List fetches the tasks of categoryID (all when empty) ordered by
// descending position.
func (s *Store) List(ctx context.Context, categoryID string) ([]model.Task, error) {
	params := recordapi.FetchParams{
		Fields:  listFields,
		OrderBy: []recordapi.Order{{Field: fieldPosition, Direction: recordapi.SortDesc}},
	}
	if categoryID != "" {
		params.Where = []recordapi.Condition{{
			FieldName: fieldCategory,
			Operator:  recordapi.OperatorExactMatch,
			Values:    []string{s.categories.StoreLabel(categoryID)},
		}}
	}

	rows, err := s.records.Fetch(ctx, s.collection, params)
	if err != nil {
		s.logFailure("list", "", err)
		return nil, translate("listing tasks", err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, s.fromRecord(r))
	}
	store.SortByPosition(tasks)
	return tasks, nil
}

// Create sends draft as a new record at position.
func (s *Store) Create(ctx context.Context, draft model.Draft, position int) (model.Task, error) {
	if err := draft.Validate(); err != nil {
		return model.Task{}, err
	}
	d := draft.Normalized()
	rec := recordapi.Record{
		fieldTitle:       d.Title,
		fieldDescription: d.Description,
		fieldCompleted:   d.Completed,
		fieldPriority:    string(d.Priority),
		fieldCategory:    s.categories.StoreLabel(d.Category),
		fieldDueDate:     dueValue(d.DueDate),
		fieldPosition:    position,
	}

	results, err := s.records.Create(ctx, s.collection, []recordapi.Record{rec})
	if err != nil {
		s.logFailure("create", "", err)
		return model.Task{}, translate("creating task", err)
	}
	res, err := single(results)
	if err != nil {
		s.logFailure("create", "", err)
		return model.Task{}, fmt.Errorf("creating task: %w", err)
	}

	task := s.fromRecord(res.Data)
	if task.ID == "" {
		// Created but the response carried no usable record.
		return model.Task{}, fmt.Errorf("creating task: %w: response has no record id", store.ErrOutcomeUnknown)
	}
	return task, nil
}

// Update sends only the fields set in patch.
func (s *Store) Update(ctx context.Context, id string, patch model.Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	rec := s.patchRecord(patch)
	rec[recordapi.FieldID] = recordID(id)

	results, err := s.records.Update(ctx, s.collection, []recordapi.Record{rec})
	if err != nil {
		s.logFailure("update", id, err)
		return translate("updating task "+id, err)
	}
	if _, err := single(results); err != nil {
		s.logFailure("update", id, err)
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	return nil
}

// Delete removes the record with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	results, err := s.records.Delete(ctx, s.collection, []string{id})
	if err != nil {
		s.logFailure("delete", id, err)
		return translate("deleting task "+id, err)
	}
	if _, err := single(results); err != nil {
		s.logFailure("delete", id, err)
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return nil
}

func (s *Store) patchRecord(p model.Patch) recordapi.Record {
	rec := recordapi.Record{}
	if p.Title != nil {
		rec[fieldTitle] = *p.Title
	}
	if p.Description != nil {
		rec[fieldDescription] = *p.Description
	}
	if p.Completed != nil {
		rec[fieldCompleted] = *p.Completed
	}
	if p.Priority != nil {
		rec[fieldPriority] = string(*p.Priority)
	}
	if p.Category != nil {
		rec[fieldCategory] = s.categories.StoreLabel(*p.Category)
	}
	if p.Position != nil {
		rec[fieldPosition] = *p.Position
	}
	if p.ClearDueDate {
		rec[fieldDueDate] = nil
	} else if p.DueDate != nil {
		rec[fieldDueDate] = dueValue(p.DueDate)
	}
	return rec
}

// fromRecord maps a record to a task. Missing fields take their defaults
// and unknown category labels fall back to the default category.
func (s *Store) fromRecord(r recordapi.Record) model.Task {
	priority, _ := model.ParsePriority(stringField(r, fieldPriority))
	t := model.Task{
		ID:          r.ID(),
		Title:       stringField(r, fieldTitle),
		Description: stringField(r, fieldDescription),
		Priority:    priority,
		Category:    s.categories.FromStoreLabel(stringField(r, fieldCategory)),
		DueDate:     parseDue(stringField(r, fieldDueDate)),
		Position:    intField(r, fieldPosition),
	}
	if done, ok := r[fieldCompleted].(bool); ok {
		t.Completed = done
	}
	created, err := time.Parse(time.RFC3339Nano, stringField(r, recordapi.FieldCreatedOn))
	if err != nil {
		created = s.now().UTC()
	}
	t.CreatedAt = created
	return t
}

func (s *Store) logFailure(op, id string, err error) {
	s.log.WithFields(logrus.Fields{"op": op, "id": id, "error": err}).Warn("record call failed")
}

// single inspects the one result of a single-record batch.
func single(results []recordapi.RecordResult) (recordapi.RecordResult, error) {
	if len(results) == 0 {
		return recordapi.RecordResult{}, fmt.Errorf("%w: empty batch result", store.ErrOutcomeUnknown)
	}
	res := results[0]
	if res.Success {
		return res, nil
	}
	switch {
	case res.StatusCode == http.StatusNotFound:
		return res, fmt.Errorf("%w: %s", store.ErrNotFound, res.Message)
	case res.StatusCode >= 500:
		return res, fmt.Errorf("%w: %s", store.ErrUnavailable, res.Message)
	default:
		return res, fmt.Errorf("%w: status %d: %s", store.ErrUnavailable, res.StatusCode, res.Message)
	}
}

// translate maps client errors onto the store's failure categories.
func translate(action string, err error) error {
	switch {
	case errors.Is(err, recordapi.ErrOutcomeUnknown):
		return fmt.Errorf("%s: %w: %w", action, store.ErrOutcomeUnknown, err)
	default:
		return fmt.Errorf("%s: %w: %w", action, store.ErrUnavailable, err)
	}
}

// recordID sends numeric ids back as numbers.
func recordID(id string) any {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n
	}
	return id
}

func dueValue(d *time.Time) any {
	if d == nil {
		return nil
	}
	return model.FormatDate(d)
}

func parseDue(s string) *time.Time {
	if due, err := model.ParseDate(s); err == nil {
		return due
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		d := model.TruncateDate(ts)
		return &d
	}
	return nil
}

func stringField(r recordapi.Record, field string) string {
	if v, ok := r[field].(string); ok {
		return v
	}
	return ""
}

func intField(r recordapi.Record, field string) int {
	switch v := r[field].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}
