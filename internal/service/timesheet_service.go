package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"painai/internal/model"
	"painai/internal/repository"
	"painai/pkg/pagination"
	"painai/pkg/worktime"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var maxDailyHours = decimal.NewFromInt(24)

// Websocket event types for timesheet status changes.
const (
	EventTimesheetSubmitted = "timesheet.submitted"
	EventTimesheetApproved  = "timesheet.approved"
	EventTimesheetRejected  = "timesheet.rejected"
)

// EventPublisher pushes a typed event to connected clients.
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

// --- DTOs ---

type ApportionRequest struct {
	StartTime string `json:"start_time" binding:"required,hhmm" example:"09:00"`
	EndTime   string `json:"end_time" binding:"required,hhmm" example:"20:00"`
}

type ApportionResponse struct {
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	ElapsedMinutes  int    `json:"elapsed_minutes"`
	RegularMinutes  int    `json:"regular_minutes"`
	OvertimeMinutes int    `json:"overtime_minutes"`
	BreakMinutes    int    `json:"break_minutes"`
	RegularHours    string `json:"regular_hours" example:"8.50"`
	OvertimeHours   string `json:"overtime_hours" example:"1.50"`
}

// CreateTimesheetRequest creates a draft. When start_time and end_time are given the server derives
// hours_worked and overtime_hours from them and ignores the submitted values.
type CreateTimesheetRequest struct {
	ProjectID     string           `json:"project_id"`
	WorkType      string           `json:"work_type" binding:"required,max=50"`
	SubWorkType   string           `json:"sub_work_type" binding:"max=50"`
	Activity      string           `json:"activity" binding:"max=50"`
	WorkDate      string           `json:"work_date" binding:"required" example:"2024-03-15"`
	StartTime     string           `json:"start_time" binding:"omitempty,hhmm" example:"09:00"`
	EndTime       string           `json:"end_time" binding:"omitempty,hhmm" example:"18:00"`
	HoursWorked   *decimal.Decimal `json:"hours_worked" swaggertype:"number"`
	OvertimeHours *decimal.Decimal `json:"overtime_hours" swaggertype:"number"`
	Description   string           `json:"description"`
	Billable      bool             `json:"billable"`
	HourlyRate    *decimal.Decimal `json:"hourly_rate" swaggertype:"number"`
}

// UpdateTimesheetRequest changes only the fields that are present. An empty project_id clears the project.
type UpdateTimesheetRequest struct {
	ProjectID     *string          `json:"project_id"`
	WorkType      *string          `json:"work_type" binding:"omitempty,max=50"`
	SubWorkType   *string          `json:"sub_work_type" binding:"omitempty,max=50"`
	Activity      *string          `json:"activity" binding:"omitempty,max=50"`
	WorkDate      *string          `json:"work_date"`
	StartTime     *string          `json:"start_time" binding:"omitempty,hhmm"`
	EndTime       *string          `json:"end_time" binding:"omitempty,hhmm"`
	HoursWorked   *decimal.Decimal `json:"hours_worked" swaggertype:"number"`
	OvertimeHours *decimal.Decimal `json:"overtime_hours" swaggertype:"number"`
	Description   *string          `json:"description"`
	Billable      *bool            `json:"billable"`
	HourlyRate    *decimal.Decimal `json:"hourly_rate" swaggertype:"number"`
}

type TimesheetListFilter struct {
	Scope     string // "all" lists every user's entries
	UserID    string
	ProjectID string
	Status    string
	From      string
	To        string
	Page      int
	Limit     int
}

type BulkSubmitRequest struct {
	From string `json:"from" binding:"required" example:"2024-03-01"`
	To   string `json:"to" binding:"required" example:"2024-03-31"`
}

type BulkSubmitFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

type BulkSubmitResponse struct {
	Submitted []string            `json:"submitted"`
	Failed    []BulkSubmitFailure `json:"failed"`
}

type TimesheetResponse struct {
	ID              string  `json:"id"`
	UserID          string  `json:"user_id"`
	UserName        string  `json:"user_name"`
	ProjectID       *string `json:"project_id"`
	ProjectCode     string  `json:"project_code"`
	ProjectName     string  `json:"project_name"`
	WorkType        string  `json:"work_type"`
	SubWorkType     string  `json:"sub_work_type"`
	Activity        string  `json:"activity"`
	WorkDate        string  `json:"work_date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	HoursWorked     string  `json:"hours_worked"`
	OvertimeHours   string  `json:"overtime_hours"`
	TotalHours      string  `json:"total_hours"`
	Description     string  `json:"description"`
	Billable        bool    `json:"billable"`
	HourlyRate      *string `json:"hourly_rate"`
	BillableAmount  string  `json:"billable_amount"`
	Status          string  `json:"status"`
	SubmittedAt     *string `json:"submitted_at"`
	ApprovedBy      *string `json:"approved_by"`
	ApproverName    string  `json:"approver_name"`
	DecidedAt       *string `json:"decided_at"`
	RejectionReason string  `json:"rejection_reason"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

type TimesheetHistoryResponse struct {
	ID          string          `json:"id"`
	TimesheetID string          `json:"timesheet_id"`
	Action      string          `json:"action"`
	OldValues   json.RawMessage `json:"old_values" swaggertype:"object"`
	NewValues   json.RawMessage `json:"new_values" swaggertype:"object"`
	ChangedBy   string          `json:"changed_by"`
	ChangedName string          `json:"changed_by_name"`
	CreatedAt   string          `json:"created_at"`
}

// TimesheetEvent is the websocket payload for status changes.
type TimesheetEvent struct {
	TimesheetID string `json:"timesheet_id"`
	OwnerID     string `json:"owner_id"`
	Status      string `json:"status"`
	ActorID     string `json:"actor_id"`
	WorkDate    string `json:"work_date"`
	At          string `json:"at"`
}

// Recipient is the user the event concerns.
func (e TimesheetEvent) Recipient() string { return e.OwnerID }

// --- Interface ---

type TimesheetService interface {
	Apportion(ctx context.Context, req ApportionRequest) (*ApportionResponse, error)
	Create(ctx context.Context, actor Actor, req CreateTimesheetRequest) (*TimesheetResponse, error)
	Update(ctx context.Context, actor Actor, id string, req UpdateTimesheetRequest) (*TimesheetResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
	Get(ctx context.Context, actor Actor, id string) (*TimesheetResponse, error)
	List(ctx context.Context, actor Actor, filter TimesheetListFilter) ([]TimesheetResponse, int64, error)
	Submit(ctx context.Context, actor Actor, id string) (*TimesheetResponse, error)
	BulkSubmit(ctx context.Context, actor Actor, req BulkSubmitRequest) (*BulkSubmitResponse, error)
	History(ctx context.Context, actor Actor, id string) ([]TimesheetHistoryResponse, error)
}

type timesheetService struct {
	txManager  repository.TransactionManager
	timesheets repository.TimesheetRepository
	history    repository.TimesheetHistoryRepository
	projects   repository.ProjectRepository
	workTypes  repository.WorkTypeRepository
	events     EventPublisher
	log        *zap.Logger
	now        func() time.Time
}

func NewTimesheetService(
	txManager repository.TransactionManager,
	timesheets repository.TimesheetRepository,
	history repository.TimesheetHistoryRepository,
	projects repository.ProjectRepository,
	workTypes repository.WorkTypeRepository,
	events EventPublisher,
	log *zap.Logger,
) TimesheetService {
	if events == nil {
		events = noopPublisher{}
	}
	return &timesheetService{
		txManager:  txManager,
		timesheets: timesheets,
		history:    history,
		projects:   projects,
		workTypes:  workTypes,
		events:     events,
		log:        log,
		now:        time.Now,
	}
}

// --- Implementation ---

func (s *timesheetService) Apportion(_ context.Context, req ApportionRequest) (*ApportionResponse, error) {
	split, err := worktime.ApportionHours(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	return &ApportionResponse{
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		ElapsedMinutes:  split.ElapsedMinutes,
		RegularMinutes:  split.RegularMinutes,
		OvertimeMinutes: split.OvertimeMinutes,
		BreakMinutes:    split.BreakMinutes,
		RegularHours:    hoursString(split.RegularHours),
		OvertimeHours:   hoursString(split.OvertimeHours),
	}, nil
}

func (s *timesheetService) Create(ctx context.Context, actor Actor, req CreateTimesheetRequest) (*TimesheetResponse, error) {
	workDate, err := parseDate(req.WorkDate)
	if err != nil {
		return nil, err
	}
	projectID, err := parseOptionalID(req.ProjectID)
	if err != nil {
		return nil, err
	}

	start, end := strings.TrimSpace(req.StartTime), strings.TrimSpace(req.EndTime)
	regular, overtime, err := resolveHours(start, end, req.HoursWorked, req.OvertimeHours)
	if err != nil {
		return nil, err
	}
	if err := validateRate(req.HourlyRate); err != nil {
		return nil, err
	}
	if err := s.validateWorkType(ctx, req.WorkType, req.SubWorkType, req.Activity); err != nil {
		return nil, err
	}
	if projectID != nil {
		if err := s.requireActiveProject(ctx, *projectID); err != nil {
			return nil, err
		}
	}

	ts := &model.Timesheet{
		UserID:        actor.UserID,
		ProjectID:     projectID,
		WorkType:      req.WorkType,
		SubWorkType:   req.SubWorkType,
		Activity:      req.Activity,
		WorkDate:      workDate,
		StartTime:     start,
		EndTime:       end,
		HoursWorked:   regular,
		OvertimeHours: overtime,
		Description:   req.Description,
		Billable:      req.Billable,
		HourlyRate:    req.HourlyRate,
		Status:        model.TimesheetStatusDraft,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureUnique(txCtx, ts, nil); err != nil {
			return err
		}
		if err := s.timesheets.Create(txCtx, ts); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrDuplicateTimesheet
			}
			return fmt.Errorf("failed to create timesheet: %w", err)
		}
		return appendHistory(txCtx, s.history, ts.ID, model.HistoryActionCreated, nil, ts, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, ts.ID)
}

func (s *timesheetService) Update(ctx context.Context, actor Actor, id string, req UpdateTimesheetRequest) (*TimesheetResponse, error) {
	tsID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ts, err := s.lockOwnedDraft(txCtx, actor, tsID)
		if err != nil {
			return err
		}
		before := *ts

		if err := s.applyUpdate(txCtx, ts, req); err != nil {
			return err
		}
		if err := s.ensureUnique(txCtx, ts, &ts.ID); err != nil {
			return err
		}
		if err := s.timesheets.Update(txCtx, ts); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrDuplicateTimesheet
			}
			return fmt.Errorf("failed to update timesheet: %w", err)
		}
		return appendHistory(txCtx, s.history, ts.ID, model.HistoryActionUpdated, &before, ts, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, tsID)
}

func (s *timesheetService) applyUpdate(ctx context.Context, ts *model.Timesheet, req UpdateTimesheetRequest) error {
	if req.WorkDate != nil {
		d, err := parseDate(*req.WorkDate)
		if err != nil {
			return err
		}
		ts.WorkDate = d
	}

	if req.ProjectID != nil {
		projectID, err := parseOptionalID(*req.ProjectID)
		if err != nil {
			return err
		}
		changed := (projectID == nil) != (ts.ProjectID == nil) || (projectID != nil && *projectID != *ts.ProjectID)
		if changed && projectID != nil {
			if err := s.requireActiveProject(ctx, *projectID); err != nil {
				return err
			}
		}
		ts.ProjectID = projectID
		ts.Project = nil
	}

	classificationChanged := false
	if req.WorkType != nil {
		ts.WorkType = *req.WorkType
		classificationChanged = true
	}
	if req.SubWorkType != nil {
		ts.SubWorkType = *req.SubWorkType
		classificationChanged = true
	}
	if req.Activity != nil {
		ts.Activity = *req.Activity
		classificationChanged = true
	}
	if classificationChanged {
		if err := s.validateWorkType(ctx, ts.WorkType, ts.SubWorkType, ts.Activity); err != nil {
			return err
		}
	}

	if req.StartTime != nil {
		ts.StartTime = strings.TrimSpace(*req.StartTime)
	}
	if req.EndTime != nil {
		ts.EndTime = strings.TrimSpace(*req.EndTime)
	}
	hours, overtime := &ts.HoursWorked, &ts.OvertimeHours
	if req.HoursWorked != nil {
		hours = req.HoursWorked
	}
	if req.OvertimeHours != nil {
		overtime = req.OvertimeHours
	}
	regular, ot, err := resolveHours(ts.StartTime, ts.EndTime, hours, overtime)
	if err != nil {
		return err
	}
	ts.HoursWorked, ts.OvertimeHours = regular, ot

	if req.Description != nil {
		ts.Description = *req.Description
	}
	if req.Billable != nil {
		ts.Billable = *req.Billable
	}
	if req.HourlyRate != nil {
		if err := validateRate(req.HourlyRate); err != nil {
			return err
		}
		ts.HourlyRate = req.HourlyRate
	}
	return nil
}

func (s *timesheetService) Delete(ctx context.Context, actor Actor, id string) error {
	tsID, err := parseID(id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		ts, err := s.lockOwnedDraft(txCtx, actor, tsID)
		if err != nil {
			return err
		}
		if err := s.timesheets.Delete(txCtx, ts.ID); err != nil {
			return fmt.Errorf("failed to delete timesheet: %w", err)
		}
		return appendHistory(txCtx, s.history, ts.ID, model.HistoryActionDeleted, ts, nil, actor.UserID)
	})
}

func (s *timesheetService) Get(ctx context.Context, actor Actor, id string) (*TimesheetResponse, error) {
	tsID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	ts, err := s.find(ctx, tsID)
	if err != nil {
		return nil, err
	}
	if !canRead(actor, ts) {
		return nil, ErrForbidden
	}
	resp := toTimesheetResponse(ts)
	return &resp, nil
}

func (s *timesheetService) List(ctx context.Context, actor Actor, filter TimesheetListFilter) ([]TimesheetResponse, int64, error) {
	repoFilter := repository.TimesheetFilter{Params: pagination.Params{Page: filter.Page, Limit: filter.Limit}}

	readAll := actor.Has(model.PermTimesheetsReadAll)
	switch {
	case filter.Scope == "all" && !readAll:
		return nil, 0, ErrForbidden
	case filter.Scope == "all":
		userID, err := parseOptionalID(filter.UserID)
		if err != nil {
			return nil, 0, err
		}
		repoFilter.UserID = userID
	default:
		if filter.UserID != "" && filter.UserID != actor.UserID.String() && !readAll {
			return nil, 0, ErrForbidden
		}
		userID := actor.UserID
		if filter.UserID != "" {
			parsed, err := parseID(filter.UserID)
			if err != nil {
				return nil, 0, err
			}
			userID = parsed
		}
		repoFilter.UserID = &userID
	}

	projectID, err := parseOptionalID(filter.ProjectID)
	if err != nil {
		return nil, 0, err
	}
	repoFilter.ProjectID = projectID

	if filter.Status != "" && !model.IsValidTimesheetStatus(filter.Status) {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}
	repoFilter.Status = filter.Status

	if repoFilter.From, err = parseOptionalDate(filter.From); err != nil {
		return nil, 0, err
	}
	if repoFilter.To, err = parseOptionalDate(filter.To); err != nil {
		return nil, 0, err
	}
	if repoFilter.From != nil && repoFilter.To != nil && repoFilter.To.Before(*repoFilter.From) {
		return nil, 0, ErrInvalidDateRange
	}

	timesheets, total, err := s.timesheets.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list timesheets: %w", err)
	}

	res := make([]TimesheetResponse, 0, len(timesheets))
	for i := range timesheets {
		res = append(res, toTimesheetResponse(&timesheets[i]))
	}
	return res, total, nil
}

func (s *timesheetService) Submit(ctx context.Context, actor Actor, id string) (*TimesheetResponse, error) {
	tsID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	ts, err := s.submit(ctx, actor, tsID)
	if err != nil {
		return nil, err
	}
	s.publish(EventTimesheetSubmitted, ts, actor.UserID)
	return s.reload(ctx, tsID)
}

func (s *timesheetService) submit(ctx context.Context, actor Actor, tsID uuid.UUID) (*model.Timesheet, error) {
	var ts *model.Timesheet
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		ts, err = s.timesheets.FindByIDForUpdate(txCtx, tsID)
		if err != nil {
			return notFound(err, ErrTimesheetNotFound)
		}
		if ts.UserID != actor.UserID {
			return ErrNotOwner
		}
		now := s.now()
		return transitionStatus(txCtx, s.timesheets, s.history, ts, repository.StatusChange{
			Status:      model.TimesheetStatusSubmitted,
			SubmittedAt: &now,
		}, model.HistoryActionSubmitted, actor.UserID)
	})
	if err != nil {
		return nil, err
	}
	return ts, nil
}

func (s *timesheetService) BulkSubmit(ctx context.Context, actor Actor, req BulkSubmitRequest) (*BulkSubmitResponse, error) {
	from, to, err := parseDateRange(req.From, req.To)
	if err != nil {
		return nil, err
	}

	ids, err := s.timesheets.ListDraftIDs(ctx, actor.UserID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	res := &BulkSubmitResponse{Submitted: []string{}, Failed: []BulkSubmitFailure{}}
	for _, id := range ids {
		ts, err := s.submit(ctx, actor, id)
		if err != nil {
			res.Failed = append(res.Failed, BulkSubmitFailure{ID: id.String(), Error: err.Error()})
			continue
		}
		res.Submitted = append(res.Submitted, id.String())
		s.publish(EventTimesheetSubmitted, ts, actor.UserID)
	}
	return res, nil
}

func (s *timesheetService) History(ctx context.Context, actor Actor, id string) ([]TimesheetHistoryResponse, error) {
	tsID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	ts, err := s.timesheets.FindByIDUnscoped(ctx, tsID)
	if err != nil {
		return nil, notFound(err, ErrTimesheetNotFound)
	}
	if !canRead(actor, ts) {
		return nil, ErrForbidden
	}

	entries, err := s.history.ListByTimesheet(ctx, tsID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch timesheet history: %w", err)
	}

	res := make([]TimesheetHistoryResponse, 0, len(entries))
	for _, e := range entries {
		res = append(res, toHistoryResponse(e))
	}
	return res, nil
}

// --- Helpers ---

func (s *timesheetService) find(ctx context.Context, id uuid.UUID) (*model.Timesheet, error) {
	ts, err := s.timesheets.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTimesheetNotFound)
	}
	return ts, nil
}

func (s *timesheetService) reload(ctx context.Context, id uuid.UUID) (*TimesheetResponse, error) {
	ts, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toTimesheetResponse(ts)
	return &resp, nil
}

// lockOwnedDraft loads the row FOR UPDATE and checks the owner and draft preconditions for edit and delete.
func (s *timesheetService) lockOwnedDraft(ctx context.Context, actor Actor, id uuid.UUID) (*model.Timesheet, error) {
	ts, err := s.timesheets.FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrTimesheetNotFound)
	}
	if ts.UserID != actor.UserID {
		return nil, ErrNotOwner
	}
	if ts.Status != model.TimesheetStatusDraft {
		return nil, statusError(ts.Status, model.TimesheetStatusDraft)
	}
	return ts, nil
}

func (s *timesheetService) ensureUnique(ctx context.Context, ts *model.Timesheet, excludeID *uuid.UUID) error {
	exists, err := s.timesheets.ExistsDuplicate(ctx, repository.DuplicateKey{
		UserID:      ts.UserID,
		ProjectID:   ts.ProjectID,
		WorkDate:    ts.WorkDate,
		WorkType:    ts.WorkType,
		SubWorkType: ts.SubWorkType,
	}, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check for duplicate timesheet: %w", err)
	}
	if exists {
		return ErrDuplicateTimesheet
	}
	return nil
}

func (s *timesheetService) requireActiveProject(ctx context.Context, id uuid.UUID) error {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return notFound(err, ErrProjectNotFound)
	}
	if project.Status != model.ProjectStatusActive {
		return fmt.Errorf("%w: %s is %s", ErrProjectInactive, project.Code, project.Status)
	}
	return nil
}

// validateWorkType checks the classification against the reference tree. A sub work type is required
// whenever the work type has children; the activity is always optional.
func (s *timesheetService) validateWorkType(ctx context.Context, workType, subWorkType, activity string) error {
	node, err := s.workTypes.FindByCode(ctx, workType)
	if err != nil {
		if repository.IsNotFound(err) {
			return fmt.Errorf("%w: work type %q", ErrInvalidWorkType, workType)
		}
		return fmt.Errorf("failed to load work type: %w", err)
	}

	if subWorkType == "" {
		if len(node.SubWorkTypes) > 0 {
			return fmt.Errorf("%w: work type %q requires a sub work type", ErrInvalidWorkType, workType)
		}
		if activity != "" {
			return fmt.Errorf("%w: activity %q without a sub work type", ErrInvalidWorkType, activity)
		}
		return nil
	}

	sub, ok := node.FindSub(subWorkType)
	if !ok {
		return fmt.Errorf("%w: sub work type %q under %q", ErrInvalidWorkType, subWorkType, workType)
	}
	if activity == "" {
		return nil
	}
	if _, ok := sub.FindActivity(activity); !ok {
		return fmt.Errorf("%w: activity %q under %q", ErrInvalidWorkType, activity, subWorkType)
	}
	return nil
}

func (s *timesheetService) publish(eventType string, ts *model.Timesheet, actorID uuid.UUID) {
	s.events.Publish(eventType, TimesheetEvent{
		TimesheetID: ts.ID.String(),
		OwnerID:     ts.UserID.String(),
		Status:      ts.Status,
		ActorID:     actorID.String(),
		WorkDate:    ts.WorkDate.Format(dateLayout),
		At:          s.now().Format(timestampLayout),
	})
}

// resolveHours returns the hours to store. A start/end pair always wins over submitted values.
func resolveHours(start, end string, hours, overtime *decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start != "" || end != "" {
		if start == "" || end == "" {
			return decimal.Zero, decimal.Zero, ErrIncompleteTimeRange
		}
		split, err := worktime.ApportionHours(start, end)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		return split.RegularHours, split.OvertimeHours, nil
	}

	regular, ot := decimal.Zero, decimal.Zero
	if hours != nil {
		regular = *hours
	}
	if overtime != nil {
		ot = *overtime
	}
	for _, h := range []decimal.Decimal{regular, ot} {
		if h.IsNegative() || h.GreaterThan(maxDailyHours) {
			return decimal.Zero, decimal.Zero, fmt.Errorf("%w: got %s", ErrHoursOutOfRange, h.String())
		}
	}
	return regular.Round(2), ot.Round(2), nil
}

func validateRate(rate *decimal.Decimal) error {
	if rate != nil && rate.IsNegative() {
		return fmt.Errorf("%w: hourly rate cannot be negative", ErrInvalidHours)
	}
	return nil
}

func canRead(actor Actor, ts *model.Timesheet) bool {
	return ts.UserID == actor.UserID || actor.Has(model.PermTimesheetsReadAll)
}

func notFound(err, sentinel error) error {
	if repository.IsNotFound(err) {
		return sentinel
	}
	return err
}

// requiredStatusFor names the status a timesheet must be in before moving to target.
func requiredStatusFor(target string) string {
	switch target {
	case model.TimesheetStatusSubmitted:
		return model.TimesheetStatusDraft
	default:
		return model.TimesheetStatusSubmitted
	}
}

// transitionStatus moves a locked timesheet to change.Status with a compare-and-swap on the current status
// and appends the history entry.
func transitionStatus(
	ctx context.Context,
	timesheets repository.TimesheetRepository,
	history repository.TimesheetHistoryRepository,
	ts *model.Timesheet,
	change repository.StatusChange,
	action string,
	actorID uuid.UUID,
) error {
	if !model.CanTransition(ts.Status, change.Status) {
		return statusError(ts.Status, requiredStatusFor(change.Status))
	}
	before := *ts

	n, err := timesheets.UpdateStatus(ctx, ts.ID, ts.Status, change)
	if err != nil {
		return fmt.Errorf("failed to update timesheet status: %w", err)
	}
	if n == 0 {
		return ErrConcurrentUpdate
	}

	ts.Status = change.Status
	if change.SubmittedAt != nil {
		ts.SubmittedAt = change.SubmittedAt
	}
	if change.ApprovedBy != nil {
		ts.ApprovedBy = change.ApprovedBy
	}
	if change.DecidedAt != nil {
		ts.DecidedAt = change.DecidedAt
	}
	if change.RejectionReason != "" {
		ts.RejectionReason = change.RejectionReason
	}

	return appendHistory(ctx, history, ts.ID, action, &before, ts, actorID)
}

type timesheetSnapshot struct {
	UserID          string  `json:"user_id"`
	ProjectID       *string `json:"project_id"`
	WorkType        string  `json:"work_type"`
	SubWorkType     string  `json:"sub_work_type"`
	Activity        string  `json:"activity"`
	WorkDate        string  `json:"work_date"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	HoursWorked     string  `json:"hours_worked"`
	OvertimeHours   string  `json:"overtime_hours"`
	Description     string  `json:"description"`
	Billable        bool    `json:"billable"`
	HourlyRate      *string `json:"hourly_rate"`
	Status          string  `json:"status"`
	SubmittedAt     *string `json:"submitted_at"`
	ApprovedBy      *string `json:"approved_by"`
	DecidedAt       *string `json:"decided_at"`
	RejectionReason string  `json:"rejection_reason,omitempty"`
}

func snapshotOf(ts *model.Timesheet) (*string, error) {
	if ts == nil {
		return nil, nil
	}
	snap := timesheetSnapshot{
		UserID:          ts.UserID.String(),
		ProjectID:       optionalIDString(ts.ProjectID),
		WorkType:        ts.WorkType,
		SubWorkType:     ts.SubWorkType,
		Activity:        ts.Activity,
		WorkDate:        ts.WorkDate.Format(dateLayout),
		StartTime:       ts.StartTime,
		EndTime:         ts.EndTime,
		HoursWorked:     hoursString(ts.HoursWorked),
		OvertimeHours:   hoursString(ts.OvertimeHours),
		Description:     ts.Description,
		Billable:        ts.Billable,
		Status:          ts.Status,
		SubmittedAt:     formatOptionalTime(ts.SubmittedAt, timestampLayout),
		ApprovedBy:      optionalIDString(ts.ApprovedBy),
		DecidedAt:       formatOptionalTime(ts.DecidedAt, timestampLayout),
		RejectionReason: ts.RejectionReason,
	}
	if ts.HourlyRate != nil {
		rate := ts.HourlyRate.StringFixed(2)
		snap.HourlyRate = &rate
	}

	b, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	out := string(b)
	return &out, nil
}

func appendHistory(ctx context.Context, repo repository.TimesheetHistoryRepository, tsID uuid.UUID, action string, before, after *model.Timesheet, actorID uuid.UUID) error {
	oldValues, err := snapshotOf(before)
	if err != nil {
		return fmt.Errorf("failed to snapshot timesheet: %w", err)
	}
	newValues, err := snapshotOf(after)
	if err != nil {
		return fmt.Errorf("failed to snapshot timesheet: %w", err)
	}

	entry := &model.TimesheetHistory{
		TimesheetID: tsID,
		Action:      action,
		OldValues:   oldValues,
		NewValues:   newValues,
		ChangedBy:   actorID,
	}
	if err := repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write timesheet history: %w", err)
	}
	return nil
}

func toTimesheetResponse(ts *model.Timesheet) TimesheetResponse {
	resp := TimesheetResponse{
		ID:              ts.ID.String(),
		UserID:          ts.UserID.String(),
		ProjectID:       optionalIDString(ts.ProjectID),
		WorkType:        ts.WorkType,
		SubWorkType:     ts.SubWorkType,
		Activity:        ts.Activity,
		WorkDate:        ts.WorkDate.Format(dateLayout),
		StartTime:       ts.StartTime,
		EndTime:         ts.EndTime,
		HoursWorked:     hoursString(ts.HoursWorked),
		OvertimeHours:   hoursString(ts.OvertimeHours),
		TotalHours:      hoursString(ts.TotalHours()),
		Description:     ts.Description,
		Billable:        ts.Billable,
		BillableAmount:  ts.BillableAmount().StringFixed(2),
		Status:          ts.Status,
		SubmittedAt:     formatOptionalTime(ts.SubmittedAt, timestampLayout),
		ApprovedBy:      optionalIDString(ts.ApprovedBy),
		DecidedAt:       formatOptionalTime(ts.DecidedAt, timestampLayout),
		RejectionReason: ts.RejectionReason,
		CreatedAt:       ts.CreatedAt.Format(timestampLayout),
		UpdatedAt:       ts.UpdatedAt.Format(timestampLayout),
	}
	if ts.User != nil {
		resp.UserName = ts.User.DisplayName()
	}
	if ts.Project != nil {
		resp.ProjectCode = ts.Project.Code
		resp.ProjectName = ts.Project.Name
	}
	if ts.Approver != nil {
		resp.ApproverName = ts.Approver.DisplayName()
	}
	if ts.HourlyRate != nil {
		rate := ts.HourlyRate.StringFixed(2)
		resp.HourlyRate = &rate
	}
	return resp
}

func toHistoryResponse(e model.TimesheetHistory) TimesheetHistoryResponse {
	resp := TimesheetHistoryResponse{
		ID:          e.ID.String(),
		TimesheetID: e.TimesheetID.String(),
		Action:      e.Action,
		OldValues:   rawJSON(e.OldValues),
		NewValues:   rawJSON(e.NewValues),
		ChangedBy:   e.ChangedBy.String(),
		CreatedAt:   e.CreatedAt.Format(timestampLayout),
	}
	if e.ChangedByUser != nil {
		resp.ChangedName = e.ChangedByUser.DisplayName()
	}
	return resp
}

func rawJSON(s *string) json.RawMessage {
	if s == nil {
		return json.RawMessage("null")
	}
	return json.RawMessage(*s)
}
