package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"painai/internal/model"
	"painai/internal/repository"
	"painai/pkg/pagination"

	"go.uber.org/zap"
)

type RejectTimesheetRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

type PendingFilter struct {
	UserID    string
	ProjectID string
	From      string
	To        string
	Page      int
	Limit     int
}

type ApprovalService interface {
	ListPending(ctx context.Context, actor Actor, filter PendingFilter) ([]TimesheetResponse, int64, error)
	Approve(ctx context.Context, actor Actor, id string) (*TimesheetResponse, error)
	Reject(ctx context.Context, actor Actor, id string, req RejectTimesheetRequest) (*TimesheetResponse, error)
}

type approvalService struct {
	txManager  repository.TransactionManager
	timesheets repository.TimesheetRepository
	history    repository.TimesheetHistoryRepository
	events     EventPublisher
	log        *zap.Logger
	now        func() time.Time
}

func NewApprovalService(
	txManager repository.TransactionManager,
	timesheets repository.TimesheetRepository,
	history repository.TimesheetHistoryRepository,
	events EventPublisher,
	log *zap.Logger,
) ApprovalService {
	if events == nil {
		events = noopPublisher{}
	}
	return &approvalService{
		txManager:  txManager,
		timesheets: timesheets,
		history:    history,
		events:     events,
		log:        log,
		now:        time.Now,
	}
}

// ListPending returns submitted timesheets awaiting a decision, excluding the approver's own.
func (s *approvalService) ListPending(ctx context.Context, actor Actor, filter PendingFilter) ([]TimesheetResponse, int64, error) {
	userID, err := parseOptionalID(filter.UserID)
	if err != nil {
		return nil, 0, err
	}
	projectID, err := parseOptionalID(filter.ProjectID)
	if err != nil {
		return nil, 0, err
	}
	from, err := parseOptionalDate(filter.From)
	if err != nil {
		return nil, 0, err
	}
	to, err := parseOptionalDate(filter.To)
	if err != nil {
		return nil, 0, err
	}

	self := actor.UserID
	timesheets, total, err := s.timesheets.List(ctx, repository.TimesheetFilter{
		UserID:        userID,
		ExcludeUserID: &self,
		ProjectID:     projectID,
		Status:        model.TimesheetStatusSubmitted,
		From:          from,
		To:            to,
		Params:        pagination.Params{Page: filter.Page, Limit: filter.Limit},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending timesheets: %w", err)
	}

	res := make([]TimesheetResponse, 0, len(timesheets))
	for i := range timesheets {
		res = append(res, toTimesheetResponse(&timesheets[i]))
	}
	return res, total, nil
}

func (s *approvalService) Approve(ctx context.Context, actor Actor, id string) (*TimesheetResponse, error) {
	return s.decide(ctx, actor, id, model.TimesheetStatusApproved, "")
}

func (s *approvalService) Reject(ctx context.Context, actor Actor, id string, req RejectTimesheetRequest) (*TimesheetResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, ErrRejectionReasonRequired
	}
	return s.decide(ctx, actor, id, model.TimesheetStatusRejected, reason)
}

func (s *approvalService) decide(ctx context.Context, actor Actor, id, target, reason string) (*TimesheetResponse, error) {
	tsID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	action := model.HistoryActionApproved
	eventType := EventTimesheetApproved
	if target == model.TimesheetStatusRejected {
		action = model.HistoryActionRejected
		eventType = EventTimesheetRejected
	}

	var ts *model.Timesheet
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		ts, err = s.timesheets.FindByIDForUpdate(txCtx, tsID)
		if err != nil {
			return notFound(err, ErrTimesheetNotFound)
		}
		if ts.UserID == actor.UserID {
			return ErrSelfApproval
		}
		if ts.Status != model.TimesheetStatusSubmitted {
			return statusError(ts.Status, model.TimesheetStatusSubmitted)
		}

		now := s.now()
		approver := actor.UserID
		return transitionStatus(txCtx, s.timesheets, s.history, ts, repository.StatusChange{
			Status:          target,
			ApprovedBy:      &approver,
			DecidedAt:       &now,
			RejectionReason: reason,
		}, action, actor.UserID)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("timesheet decided",
		zap.String("timesheet_id", ts.ID.String()),
		zap.String("status", ts.Status),
		zap.String("approver_id", actor.UserID.String()),
	)
	s.events.Publish(eventType, TimesheetEvent{
		TimesheetID: ts.ID.String(),
		OwnerID:     ts.UserID.String(),
		Status:      ts.Status,
		ActorID:     actor.UserID.String(),
		WorkDate:    ts.WorkDate.Format(dateLayout),
		At:          s.now().Format(timestampLayout),
	})

	reloaded, err := s.timesheets.FindByID(ctx, tsID)
	if err != nil {
		return nil, notFound(err, ErrTimesheetNotFound)
	}
	resp := toTimesheetResponse(reloaded)
	return &resp, nil
}
