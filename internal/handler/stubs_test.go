package handler

import (
	"context"

	"painai/internal/model"
	"painai/internal/service"
	"painai/internal/testutil"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var testPermissions = testutil.StaticPermissions{
	model.RoleEmployee: {model.PermTimesheetsRead, model.PermTimesheetsWrite, model.PermHolidaysRead},
	model.RoleManager: {
		model.PermTimesheetsRead, model.PermTimesheetsWrite, model.PermTimesheetsReadAll,
		model.PermTimesheetsApprove, model.PermReportsRead, model.PermHolidaysRead, model.PermHolidaysWrite,
	},
	model.RoleAdmin: {model.PermProjectsRead, model.PermProjectsWrite},
}

type stubTimesheetService struct {
	lastActor  service.Actor
	lastID     string
	lastCreate service.CreateTimesheetRequest
	lastFilter service.TimesheetListFilter
	lastBulk   service.BulkSubmitRequest

	result *service.TimesheetResponse
	list   []service.TimesheetResponse
	total  int64
	err    error
}

func (s *stubTimesheetService) Apportion(_ context.Context, req service.ApportionRequest) (*service.ApportionResponse, error) {
	return &service.ApportionResponse{StartTime: req.StartTime, EndTime: req.EndTime, RegularHours: "8.50", OvertimeHours: "1.50"}, s.err
}

func (s *stubTimesheetService) Create(_ context.Context, actor service.Actor, req service.CreateTimesheetRequest) (*service.TimesheetResponse, error) {
	s.lastActor, s.lastCreate = actor, req
	return s.result, s.err
}

func (s *stubTimesheetService) Update(_ context.Context, actor service.Actor, id string, _ service.UpdateTimesheetRequest) (*service.TimesheetResponse, error) {
	s.lastActor, s.lastID = actor, id
	return s.result, s.err
}

func (s *stubTimesheetService) Delete(_ context.Context, actor service.Actor, id string) error {
	s.lastActor, s.lastID = actor, id
	return s.err
}

func (s *stubTimesheetService) Get(_ context.Context, actor service.Actor, id string) (*service.TimesheetResponse, error) {
	s.lastActor, s.lastID = actor, id
	return s.result, s.err
}

func (s *stubTimesheetService) List(_ context.Context, actor service.Actor, filter service.TimesheetListFilter) ([]service.TimesheetResponse, int64, error) {
	s.lastActor, s.lastFilter = actor, filter
	return s.list, s.total, s.err
}

func (s *stubTimesheetService) Submit(_ context.Context, actor service.Actor, id string) (*service.TimesheetResponse, error) {
	s.lastActor, s.lastID = actor, id
	return s.result, s.err
}

func (s *stubTimesheetService) BulkSubmit(_ context.Context, actor service.Actor, req service.BulkSubmitRequest) (*service.BulkSubmitResponse, error) {
	s.lastActor, s.lastBulk = actor, req
	return &service.BulkSubmitResponse{Submitted: []string{"a", "b"}, Failed: []service.BulkSubmitFailure{}}, s.err
}

func (s *stubTimesheetService) History(_ context.Context, actor service.Actor, id string) ([]service.TimesheetHistoryResponse, error) {
	s.lastActor, s.lastID = actor, id
	return []service.TimesheetHistoryResponse{}, s.err
}

type stubApprovalService struct {
	lastActor  service.Actor
	lastID     string
	lastReason string
	lastFilter service.PendingFilter
	result     *service.TimesheetResponse
	err        error
}

func (s *stubApprovalService) ListPending(_ context.Context, actor service.Actor, filter service.PendingFilter) ([]service.TimesheetResponse, int64, error) {
	s.lastActor, s.lastFilter = actor, filter
	return []service.TimesheetResponse{}, 0, s.err
}

func (s *stubApprovalService) Approve(_ context.Context, actor service.Actor, id string) (*service.TimesheetResponse, error) {
	s.lastActor, s.lastID = actor, id
	return s.result, s.err
}

func (s *stubApprovalService) Reject(_ context.Context, actor service.Actor, id string, req service.RejectTimesheetRequest) (*service.TimesheetResponse, error) {
	s.lastActor, s.lastID, s.lastReason = actor, id, req.Reason
	return s.result, s.err
}

type stubUserService struct {
	tokens       *service.TokenResponse
	me           *service.MeResponse
	err          error
	lastRefresh  string
	loggedOut    string
	createdRoles []string
}

func (s *stubUserService) Login(context.Context, service.LoginUserRequest) (*service.TokenResponse, error) {
	return s.tokens, s.err
}

func (s *stubUserService) RefreshToken(_ context.Context, token string) (*service.TokenResponse, error) {
	s.lastRefresh = token
	return s.tokens, s.err
}

func (s *stubUserService) Logout(_ context.Context, token string) error {
	s.loggedOut = token
	return s.err
}

func (s *stubUserService) PurgeExpiredSessions(context.Context) (int64, error) {
	return 0, s.err
}

func (s *stubUserService) GetMe(context.Context, uuid.UUID) (*service.MeResponse, error) {
	return s.me, s.err
}

func (s *stubUserService) CreateUser(_ context.Context, _ service.Actor, req service.CreateUserRequest) (*service.UserResponse, error) {
	s.createdRoles = append(s.createdRoles, req.Role)
	return &service.UserResponse{Username: req.Username, Role: req.Role}, s.err
}

func (s *stubUserService) GetUserByID(context.Context, string) (*service.UserResponse, error) {
	return nil, s.err
}

func (s *stubUserService) ListUsers(context.Context, service.UserListFilter) ([]service.UserResponse, int64, error) {
	return []service.UserResponse{}, 0, s.err
}

func (s *stubUserService) UpdateUser(context.Context, service.Actor, string, service.UpdateUserRequest) (*service.UserResponse, error) {
	return nil, s.err
}

func (s *stubUserService) DeleteUser(context.Context, service.Actor, string) error {
	return s.err
}

func (s *stubUserService) ChangePassword(context.Context, service.Actor, string, service.ChangePasswordRequest) error {
	return s.err
}

type stubReportService struct {
	lastQuery service.ReportQuery
	err       error
}

func (s *stubReportService) Summary(_ context.Context, q service.ReportQuery) (*service.SummaryReport, error) {
	s.lastQuery = q
	return &service.SummaryReport{From: q.From, To: q.To}, s.err
}

func (s *stubReportService) SCurve(_ context.Context, q service.ReportQuery) (*service.SCurveReport, error) {
	s.lastQuery = q
	return &service.SCurveReport{ProjectID: q.ProjectID}, s.err
}

func (s *stubReportService) Workload(_ context.Context, q service.ReportQuery) (*service.WorkloadReport, error) {
	s.lastQuery = q
	return &service.WorkloadReport{}, s.err
}

func (s *stubReportService) Export(_ context.Context, q service.ReportQuery) (*excelize.File, string, error) {
	s.lastQuery = q
	if s.err != nil {
		return nil, "", s.err
	}
	f := excelize.NewFile()
	_ = f.SetCellValue("Sheet1", "A1", "Date")
	return f, "timesheets_20240401_20240430.xlsx", nil
}

type stubHolidayService struct {
	importedRows [][]string
	lastYear     int
	err          error
}

func (s *stubHolidayService) CreateHoliday(context.Context, service.Actor, service.CreateHolidayRequest) (*service.HolidayResponse, error) {
	return &service.HolidayResponse{}, s.err
}

func (s *stubHolidayService) UpdateHoliday(context.Context, service.Actor, string, service.UpdateHolidayRequest) (*service.HolidayResponse, error) {
	return &service.HolidayResponse{}, s.err
}

func (s *stubHolidayService) DeleteHoliday(context.Context, service.Actor, string) error {
	return s.err
}

func (s *stubHolidayService) ListHolidays(_ context.Context, year int) ([]service.HolidayResponse, error) {
	s.lastYear = year
	return []service.HolidayResponse{}, s.err
}

func (s *stubHolidayService) ImportHolidays(_ context.Context, _ service.Actor, f *excelize.File) (*service.HolidayImportResult, error) {
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, err
	}
	s.importedRows = rows
	return &service.HolidayImportResult{Created: len(rows) - 1}, s.err
}

func (s *stubHolidayService) GenerateTemplate() (*excelize.File, error) {
	return excelize.NewFile(), s.err
}
