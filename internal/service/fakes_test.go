package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"painai/internal/model"
	"painai/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// passThroughTx runs fn on the caller's context. Fakes do not roll back.
type passThroughTx struct{}

func (passThroughTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type recordedEvent struct {
	Type    string
	Payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{Type: eventType, Payload: payload})
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// --- timesheets ---

type fakeTimesheetRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Timesheet
	// beforeStatusUpdate runs inside UpdateStatus before the compare, to simulate a concurrent writer.
	beforeStatusUpdate func(rows map[uuid.UUID]model.Timesheet)
}

func newFakeTimesheetRepo() *fakeTimesheetRepo {
	return &fakeTimesheetRepo{rows: map[uuid.UUID]model.Timesheet{}}
}

func (r *fakeTimesheetRepo) Create(_ context.Context, ts *model.Timesheet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ts.ID == uuid.Nil {
		ts.ID = uuid.New()
	}
	now := time.Now()
	ts.CreatedAt, ts.UpdatedAt = now, now
	r.rows[ts.ID] = *ts
	return nil
}

func (r *fakeTimesheetRepo) Update(_ context.Context, ts *model.Timesheet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ts.UpdatedAt = time.Now()
	r.rows[ts.ID] = *ts
	return nil
}

func (r *fakeTimesheetRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	r.rows[id] = row
	return nil
}

func (r *fakeTimesheetRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok || row.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (r *fakeTimesheetRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Timesheet, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeTimesheetRepo) FindByIDUnscoped(_ context.Context, id uuid.UUID) (*model.Timesheet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (r *fakeTimesheetRepo) List(_ context.Context, f repository.TimesheetFilter) ([]model.Timesheet, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Timesheet
	for _, row := range r.rows {
		switch {
		case row.DeletedAt.Valid:
		case f.UserID != nil && row.UserID != *f.UserID:
		case f.ExcludeUserID != nil && row.UserID == *f.ExcludeUserID:
		case f.ProjectID != nil && (row.ProjectID == nil || *row.ProjectID != *f.ProjectID):
		case f.Status != "" && row.Status != f.Status:
		case f.From != nil && row.WorkDate.Before(*f.From):
		case f.To != nil && row.WorkDate.After(*f.To):
		default:
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkDate.Before(out[j].WorkDate) })
	return out, int64(len(out)), nil
}

func (r *fakeTimesheetRepo) ListDraftIDs(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]uuid.UUID, error) {
	rows, _, _ := r.List(ctx, repository.TimesheetFilter{
		UserID: &userID,
		Status: model.TimesheetStatusDraft,
		From:   &from,
		To:     &to,
	})
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

func (r *fakeTimesheetRepo) ExistsDuplicate(_ context.Context, key repository.DuplicateKey, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.DeletedAt.Valid || (excludeID != nil && row.ID == *excludeID) {
			continue
		}
		sameProject := (row.ProjectID == nil && key.ProjectID == nil) ||
			(row.ProjectID != nil && key.ProjectID != nil && *row.ProjectID == *key.ProjectID)
		if row.UserID == key.UserID && sameProject && row.WorkDate.Equal(key.WorkDate) &&
			row.WorkType == key.WorkType && row.SubWorkType == key.SubWorkType {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeTimesheetRepo) UpdateStatus(_ context.Context, id uuid.UUID, expected string, change repository.StatusChange) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.beforeStatusUpdate != nil {
		r.beforeStatusUpdate(r.rows)
	}
	row, ok := r.rows[id]
	if !ok || row.DeletedAt.Valid || row.Status != expected {
		return 0, nil
	}
	row.Status = change.Status
	if change.SubmittedAt != nil {
		row.SubmittedAt = change.SubmittedAt
	}
	if change.ApprovedBy != nil {
		row.ApprovedBy = change.ApprovedBy
	}
	if change.DecidedAt != nil {
		row.DecidedAt = change.DecidedAt
	}
	if change.RejectionReason != "" {
		row.RejectionReason = change.RejectionReason
	}
	r.rows[id] = row
	return 1, nil
}

func (r *fakeTimesheetRepo) get(id uuid.UUID) model.Timesheet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[id]
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []model.TimesheetHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, entry *model.TimesheetHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByTimesheet(_ context.Context, timesheetID uuid.UUID) ([]model.TimesheetHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.TimesheetHistory
	for _, e := range r.entries {
		if e.TimesheetID == timesheetID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) actions(timesheetID uuid.UUID) []string {
	entries, _ := r.ListByTimesheet(context.Background(), timesheetID)
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}

// --- projects ---

type fakeProjectRepo struct {
	mu         sync.Mutex
	rows       map[uuid.UUID]model.Project
	timesheets map[uuid.UUID]int64
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{rows: map[uuid.UUID]model.Project{}, timesheets: map[uuid.UUID]int64{}}
}

func (r *fakeProjectRepo) Create(_ context.Context, p *model.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.rows[p.ID] = *p
	return nil
}

func (r *fakeProjectRepo) Update(_ context.Context, p *model.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID] = *p
	return nil
}

func (r *fakeProjectRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

func (r *fakeProjectRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *fakeProjectRepo) FindByCode(_ context.Context, code string) (*model.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.rows {
		if p.Code == code {
			return &p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProjectRepo) List(_ context.Context, f repository.ProjectFilter) ([]model.Project, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Project
	for _, p := range r.rows {
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, int64(len(out)), nil
}

func (r *fakeProjectRepo) CountTimesheets(_ context.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timesheets[id], nil
}

// --- work types ---

type fakeWorkTypeRepo struct {
	mu   sync.Mutex
	tree []model.WorkType
}

func (r *fakeWorkTypeRepo) ListTree(_ context.Context) ([]model.WorkType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.WorkType(nil), r.tree...), nil
}

func (r *fakeWorkTypeRepo) FindByCode(_ context.Context, code string) (*model.WorkType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wt := range r.tree {
		if wt.Code == code {
			return &wt, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeWorkTypeRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.tree)), nil
}

func (r *fakeWorkTypeRepo) CreateWorkType(_ context.Context, wt *model.WorkType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.tree {
		if existing.Code == wt.Code {
			return gorm.ErrDuplicatedKey
		}
	}
	wt.ID = uuid.New()
	for i := range wt.SubWorkTypes {
		sub := &wt.SubWorkTypes[i]
		sub.ID, sub.WorkTypeID = uuid.New(), wt.ID
		for j := range sub.Activities {
			sub.Activities[j].ID, sub.Activities[j].SubWorkTypeID = uuid.New(), sub.ID
		}
	}
	r.tree = append(r.tree, *wt)
	return nil
}

func (r *fakeWorkTypeRepo) CreateSubWorkType(_ context.Context, sub *model.SubWorkType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tree {
		if r.tree[i].ID != sub.WorkTypeID {
			continue
		}
		if _, ok := r.tree[i].FindSub(sub.Code); ok {
			return gorm.ErrDuplicatedKey
		}
		sub.ID = uuid.New()
		r.tree[i].SubWorkTypes = append(r.tree[i].SubWorkTypes, *sub)
		return nil
	}
	return gorm.ErrForeignKeyViolated
}

func (r *fakeWorkTypeRepo) CreateActivity(_ context.Context, a *model.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tree {
		for j := range r.tree[i].SubWorkTypes {
			sub := &r.tree[i].SubWorkTypes[j]
			if sub.ID != a.SubWorkTypeID {
				continue
			}
			if _, ok := sub.FindActivity(a.Code); ok {
				return gorm.ErrDuplicatedKey
			}
			a.ID = uuid.New()
			sub.Activities = append(sub.Activities, *a)
			return nil
		}
	}
	return gorm.ErrForeignKeyViolated
}

func (r *fakeWorkTypeRepo) FindWorkType(_ context.Context, id uuid.UUID) (*model.WorkType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wt := range r.tree {
		if wt.ID == id {
			return &wt, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeWorkTypeRepo) FindSubWorkType(_ context.Context, id uuid.UUID) (*model.SubWorkType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wt := range r.tree {
		for _, sub := range wt.SubWorkTypes {
			if sub.ID == id {
				return &sub, nil
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeWorkTypeRepo) FindActivity(_ context.Context, id uuid.UUID) (*model.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, wt := range r.tree {
		for _, sub := range wt.SubWorkTypes {
			for _, a := range sub.Activities {
				if a.ID == id {
					return &a, nil
				}
			}
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeWorkTypeRepo) DeleteWorkType(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, wt := range r.tree {
		if wt.ID == id {
			r.tree = append(r.tree[:i], r.tree[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *fakeWorkTypeRepo) DeleteSubWorkType(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tree {
		subs := r.tree[i].SubWorkTypes
		for j := range subs {
			if subs[j].ID == id {
				r.tree[i].SubWorkTypes = append(subs[:j], subs[j+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (r *fakeWorkTypeRepo) DeleteActivity(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tree {
		for j := range r.tree[i].SubWorkTypes {
			acts := r.tree[i].SubWorkTypes[j].Activities
			for k := range acts {
				if acts[k].ID == id {
					r.tree[i].SubWorkTypes[j].Activities = append(acts[:k], acts[k+1:]...)
					return nil
				}
			}
		}
	}
	return nil
}

// sampleWorkTypeTree: PROJECT has children, LEAVE is a leaf.
func sampleWorkTypeTree() []model.WorkType {
	return []model.WorkType{
		{
			ID: uuid.New(), Code: "PROJECT", Name: "Project work",
			SubWorkTypes: []model.SubWorkType{
				{ID: uuid.New(), Code: "DEV", Name: "Development", Activities: []model.Activity{
					{ID: uuid.New(), Code: "CODING", Name: "Coding"},
					{ID: uuid.New(), Code: "REVIEW", Name: "Code review"},
				}},
				{ID: uuid.New(), Code: "MEETING", Name: "Meeting"},
			},
		},
		{ID: uuid.New(), Code: "LEAVE", Name: "Leave"},
	}
}

// --- audit ---

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, f repository.AuditFilter) ([]model.AuditLog, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.AuditLog
	for _, e := range r.entries {
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (r *fakeAuditRepo) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}
