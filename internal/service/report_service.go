package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"painai/internal/model"
	"painai/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// maxReportDays bounds the date range of a single report.
const maxReportDays = 3 * 366

// statusAll disables the status filter of a report.
const statusAll = "all"

// ReportQuery is the common filter of the report endpoints. Empty From/To default to the current month.
type ReportQuery struct {
	From      string `form:"from"`
	To        string `form:"to"`
	ProjectID string `form:"project_id"`
	UserID    string `form:"user_id"`
	Status    string `form:"status"`
}

type ReportTotals struct {
	RegularHours   decimal.Decimal `json:"regular_hours" swaggertype:"number"`
	OvertimeHours  decimal.Decimal `json:"overtime_hours" swaggertype:"number"`
	BillableHours  decimal.Decimal `json:"billable_hours" swaggertype:"number"`
	BillableAmount decimal.Decimal `json:"billable_amount" swaggertype:"number"`
	EntryCount     int             `json:"entry_count"`
}

type SummaryReport struct {
	From      string               `json:"from"`
	To        string               `json:"to"`
	Statuses  []string             `json:"statuses"`
	Totals    ReportTotals         `json:"totals"`
	ByProject []model.ProjectHours `json:"by_project"`
	ByUser    []model.UserHours    `json:"by_user"`
}

type SCurvePoint struct {
	Date              string          `json:"date"`
	WorkingDay        bool            `json:"working_day"`
	ActualHours       decimal.Decimal `json:"actual_hours" swaggertype:"number"`
	CumulativeHours   decimal.Decimal `json:"cumulative_hours" swaggertype:"number"`
	PlannedCumulative decimal.Decimal `json:"planned_cumulative" swaggertype:"number"`
}

type SCurveReport struct {
	ProjectID   string          `json:"project_id"`
	ProjectCode string          `json:"project_code"`
	ProjectName string          `json:"project_name"`
	BudgetHours decimal.Decimal `json:"budget_hours" swaggertype:"number"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	WorkingDays int             `json:"working_days"`
	Points      []SCurvePoint   `json:"points"`
}

type WorkloadRow struct {
	UserID        string          `json:"user_id"`
	Username      string          `json:"username"`
	FullName      string          `json:"full_name"`
	Department    string          `json:"department"`
	ExpectedHours decimal.Decimal `json:"expected_hours" swaggertype:"number"`
	RegularHours  decimal.Decimal `json:"regular_hours" swaggertype:"number"`
	OvertimeHours decimal.Decimal `json:"overtime_hours" swaggertype:"number"`
	// Utilization is regular hours as a percentage of expected hours.
	Utilization decimal.Decimal `json:"utilization" swaggertype:"number"`
}

type WorkloadReport struct {
	From               string          `json:"from"`
	To                 string          `json:"to"`
	WorkingDays        int             `json:"working_days"`
	StandardDailyHours decimal.Decimal `json:"standard_daily_hours" swaggertype:"number"`
	Rows               []WorkloadRow   `json:"rows"`
}

type ReportService interface {
	Summary(ctx context.Context, q ReportQuery) (*SummaryReport, error)
	SCurve(ctx context.Context, q ReportQuery) (*SCurveReport, error)
	Workload(ctx context.Context, q ReportQuery) (*WorkloadReport, error)
	Export(ctx context.Context, q ReportQuery) (*excelize.File, string, error)
}

type reportService struct {
	reports    repository.ReportRepository
	timesheets repository.TimesheetRepository
	projects   repository.ProjectRepository
	holidays   repository.HolidayRepository
	users      repository.UserRepository
	dailyHours decimal.Decimal
	log        *zap.Logger
	now        func() time.Time
}

func NewReportService(
	reports repository.ReportRepository,
	timesheets repository.TimesheetRepository,
	projects repository.ProjectRepository,
	holidays repository.HolidayRepository,
	users repository.UserRepository,
	standardDailyHours float64,
	log *zap.Logger,
) ReportService {
	return &reportService{
		reports:    reports,
		timesheets: timesheets,
		projects:   projects,
		holidays:   holidays,
		users:      users,
		dailyHours: decimal.NewFromFloat(standardDailyHours),
		log:        log,
		now:        time.Now,
	}
}

// resolvedQuery is a ReportQuery after parsing and defaulting.
type resolvedQuery struct {
	from, to  time.Time
	projectID *uuid.UUID
	userID    *uuid.UUID
	statuses  []string
}

func (q resolvedQuery) filter() model.ReportFilter {
	f := model.ReportFilter{From: q.from, To: q.to, Statuses: q.statuses}
	if q.projectID != nil {
		f.ProjectID = q.projectID.String()
	}
	if q.userID != nil {
		f.UserID = q.userID.String()
	}
	return f
}

// resolve parses a query. defaultStatuses apply when Status is empty; "all" means no status filter.
func (s *reportService) resolve(q ReportQuery, defaultStatuses []string) (resolvedQuery, error) {
	var r resolvedQuery
	var err error

	if strings.TrimSpace(q.From) == "" && strings.TrimSpace(q.To) == "" {
		r.from, r.to = monthBounds(s.now())
	} else if r.from, r.to, err = parseDateRange(q.From, q.To); err != nil {
		return r, err
	}
	if err := checkSpan(r.from, r.to); err != nil {
		return r, err
	}

	if r.projectID, err = parseOptionalID(q.ProjectID); err != nil {
		return r, err
	}
	if r.userID, err = parseOptionalID(q.UserID); err != nil {
		return r, err
	}

	switch status := strings.TrimSpace(q.Status); status {
	case "":
		r.statuses = defaultStatuses
	case statusAll:
	default:
		for _, st := range strings.Split(status, ",") {
			st = strings.TrimSpace(st)
			if !model.IsValidTimesheetStatus(st) {
				return r, fmt.Errorf("%w: %q", ErrInvalidStatus, st)
			}
			r.statuses = append(r.statuses, st)
		}
	}
	return r, nil
}

func checkSpan(from, to time.Time) error {
	if days := int(to.Sub(from).Hours()/24) + 1; days > maxReportDays {
		return fmt.Errorf("%w: %d days exceeds the limit of %d", ErrInvalidDateRange, days, maxReportDays)
	}
	return nil
}

// Summary totals hours by project and by user. Only approved entries count unless a status is given.
func (s *reportService) Summary(ctx context.Context, q ReportQuery) (*SummaryReport, error) {
	rq, err := s.resolve(q, []string{model.TimesheetStatusApproved})
	if err != nil {
		return nil, err
	}
	filter := rq.filter()

	byProject, err := s.reports.SumByProject(ctx, filter)
	if err != nil {
		return nil, err
	}
	byUser, err := s.reports.SumByUser(ctx, filter)
	if err != nil {
		return nil, err
	}

	totals := ReportTotals{}
	for _, p := range byProject {
		totals.RegularHours = totals.RegularHours.Add(p.RegularHours)
		totals.OvertimeHours = totals.OvertimeHours.Add(p.OvertimeHours)
		totals.BillableHours = totals.BillableHours.Add(p.BillableHours)
		totals.BillableAmount = totals.BillableAmount.Add(p.BillableAmount)
		totals.EntryCount += p.EntryCount
	}

	statuses := rq.statuses
	if statuses == nil {
		statuses = []string{}
	}
	return &SummaryReport{
		From:      rq.from.Format(dateLayout),
		To:        rq.to.Format(dateLayout),
		Statuses:  statuses,
		Totals:    totals,
		ByProject: nonNil(byProject),
		ByUser:    nonNil(byUser),
	}, nil
}

// SCurve compares a project's cumulative booked hours with a linear plan of its budget.
// The range defaults to the project's own start and end dates.
func (s *reportService) SCurve(ctx context.Context, q ReportQuery) (*SCurveReport, error) {
	projectID, err := parseID(q.ProjectID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound)
	}

	if strings.TrimSpace(q.From) == "" && project.StartDate != nil {
		q.From = project.StartDate.Format(dateLayout)
	}
	if strings.TrimSpace(q.To) == "" && project.EndDate != nil {
		q.To = project.EndDate.Format(dateLayout)
	}
	q.ProjectID = project.ID.String()

	rq, err := s.resolve(q, []string{model.TimesheetStatusApproved})
	if err != nil {
		return nil, err
	}

	daily, err := s.reports.DailyHours(ctx, rq.filter())
	if err != nil {
		return nil, err
	}
	holidays, err := s.holidaySet(ctx, rq.from, rq.to)
	if err != nil {
		return nil, err
	}

	actual := make(map[string]decimal.Decimal, len(daily))
	for _, d := range daily {
		actual[d.WorkDate.Format(dateLayout)] = d.RegularHours.Add(d.OvertimeHours)
	}

	planned, workingDays := PlannedCurve(project.BudgetHours, rq.from, rq.to, holidays)
	points := make([]SCurvePoint, 0, len(planned))
	cumulative := decimal.Zero
	for i, day := 0, rq.from; !day.After(rq.to); i, day = i+1, day.AddDate(0, 0, 1) {
		key := day.Format(dateLayout)
		hours := actual[key]
		cumulative = cumulative.Add(hours)
		points = append(points, SCurvePoint{
			Date:              key,
			WorkingDay:        IsWorkingDay(day, holidays),
			ActualHours:       hours,
			CumulativeHours:   cumulative,
			PlannedCumulative: planned[i],
		})
	}

	return &SCurveReport{
		ProjectID:   project.ID.String(),
		ProjectCode: project.Code,
		ProjectName: project.Name,
		BudgetHours: project.BudgetHours,
		From:        rq.from.Format(dateLayout),
		To:          rq.to.Format(dateLayout),
		WorkingDays: workingDays,
		Points:      points,
	}, nil
}

// Workload compares each active user's booked hours with the hours expected of them over the range.
// Rejected entries are ignored unless a status is given.
func (s *reportService) Workload(ctx context.Context, q ReportQuery) (*WorkloadReport, error) {
	rq, err := s.resolve(q, []string{
		model.TimesheetStatusDraft, model.TimesheetStatusSubmitted, model.TimesheetStatusApproved,
	})
	if err != nil {
		return nil, err
	}

	holidays, err := s.holidaySet(ctx, rq.from, rq.to)
	if err != nil {
		return nil, err
	}
	days := WorkingDays(rq.from, rq.to, holidays)
	expected := s.dailyHours.Mul(decimal.NewFromInt(int64(days)))

	users, err := s.users.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	sums, err := s.reports.SumByUser(ctx, rq.filter())
	if err != nil {
		return nil, err
	}
	logged := make(map[string]model.UserHours, len(sums))
	for _, row := range sums {
		logged[row.UserID] = row
	}

	rows := make([]WorkloadRow, 0, len(users))
	for _, u := range users {
		if rq.userID != nil && u.ID != *rq.userID {
			continue
		}
		h := logged[u.ID.String()]
		row := WorkloadRow{
			UserID:        u.ID.String(),
			Username:      u.Username,
			FullName:      u.FullName,
			Department:    u.Department,
			ExpectedHours: expected,
			RegularHours:  h.RegularHours,
			OvertimeHours: h.OvertimeHours,
			Utilization:   decimal.Zero,
		}
		if expected.IsPositive() {
			row.Utilization = h.RegularHours.Div(expected).Mul(decimal.NewFromInt(100)).Round(2)
		}
		rows = append(rows, row)
	}

	return &WorkloadReport{
		From:               rq.from.Format(dateLayout),
		To:                 rq.to.Format(dateLayout),
		WorkingDays:        days,
		StandardDailyHours: s.dailyHours,
		Rows:               rows,
	}, nil
}

var exportHeaders = []string{
	"Date", "Employee", "Department", "Project", "Work Type", "Sub Work Type", "Activity",
	"Start", "End", "Regular Hours", "Overtime Hours", "Billable", "Hourly Rate", "Status", "Description",
}

// Export writes the filtered timesheets into a workbook with a totals row.
func (s *reportService) Export(ctx context.Context, q ReportQuery) (*excelize.File, string, error) {
	rq, err := s.resolve(q, []string{model.TimesheetStatusApproved})
	if err != nil {
		return nil, "", err
	}

	var rows []model.Timesheet
	for _, status := range exportStatuses(rq.statuses) {
		batch, _, err := s.timesheets.List(ctx, repository.TimesheetFilter{
			UserID:    rq.userID,
			ProjectID: rq.projectID,
			Status:    status,
			From:      &rq.from,
			To:        &rq.to,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to load timesheets: %w", err)
		}
		rows = append(rows, batch...)
	}
	sortTimesheetsByDate(rows)

	f := excelize.NewFile()
	sheet := "Timesheets"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	regular, overtime := decimal.Zero, decimal.Zero
	for i, ts := range rows {
		values := []interface{}{
			ts.WorkDate.Format(dateLayout),
			employeeName(ts.User),
			employeeDepartment(ts.User),
			projectLabel(ts.Project),
			ts.WorkType,
			ts.SubWorkType,
			ts.Activity,
			ts.StartTime,
			ts.EndTime,
			ts.HoursWorked.InexactFloat64(),
			ts.OvertimeHours.InexactFloat64(),
			yesNo(ts.Billable),
			nil,
			ts.Status,
			ts.Description,
		}
		if ts.HourlyRate != nil {
			values[12] = ts.HourlyRate.InexactFloat64()
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return nil, "", err
		}
		regular = regular.Add(ts.HoursWorked)
		overtime = overtime.Add(ts.OvertimeHours)
	}

	totalRow := len(rows) + 2
	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", totalRow), fmt.Sprintf("%d entries", len(rows)))
	f.SetCellValue(sheet, fmt.Sprintf("J%d", totalRow), regular.InexactFloat64())
	f.SetCellValue(sheet, fmt.Sprintf("K%d", totalRow), overtime.InexactFloat64())
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("O%d", totalRow), totalStyle)

	colWidths := []float64{12, 22, 16, 24, 14, 16, 14, 8, 8, 10, 10, 9, 11, 11, 40}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	s.log.Info("Exported timesheet report",
		zap.Int("rows", len(rows)),
		zap.String("from", rq.from.Format(dateLayout)),
		zap.String("to", rq.to.Format(dateLayout)))

	filename := fmt.Sprintf("timesheets_%s_%s.xlsx", rq.from.Format("20060102"), rq.to.Format("20060102"))
	return f, filename, nil
}

func (s *reportService) holidaySet(ctx context.Context, from, to time.Time) (map[string]bool, error) {
	holidays, err := s.holidays.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load holidays: %w", err)
	}
	set := make(map[string]bool, len(holidays))
	for _, h := range holidays {
		set[h.Date.Format(dateLayout)] = true
	}
	return set, nil
}

// IsWorkingDay is true for Monday to Friday unless the date is in holidays (keyed by YYYY-MM-DD).
func IsWorkingDay(day time.Time, holidays map[string]bool) bool {
	switch day.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !holidays[day.Format(dateLayout)]
}

// WorkingDays counts working days in [from, to].
func WorkingDays(from, to time.Time, holidays map[string]bool) int {
	n := 0
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if IsWorkingDay(day, holidays) {
			n++
		}
	}
	return n
}

// PlannedCurve spreads budget evenly over the working days in [from, to] and returns the planned
// cumulative hours at the end of every calendar day, plus the working day count. The last working
// day always reaches the full budget.
func PlannedCurve(budget decimal.Decimal, from, to time.Time, holidays map[string]bool) ([]decimal.Decimal, int) {
	total := WorkingDays(from, to, holidays)
	var curve []decimal.Decimal
	done := 0
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		if IsWorkingDay(day, holidays) {
			done++
		}
		planned := decimal.Zero
		if total > 0 {
			planned = budget.Mul(decimal.NewFromInt(int64(done))).Div(decimal.NewFromInt(int64(total))).Round(2)
		}
		curve = append(curve, planned)
	}
	return curve, total
}

func monthBounds(now time.Time) (time.Time, time.Time) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// exportStatuses turns a status set into per-query statuses; an empty set is one unfiltered query.
func exportStatuses(statuses []string) []string {
	if len(statuses) == 0 {
		return []string{""}
	}
	return statuses
}

func sortTimesheetsByDate(rows []model.Timesheet) {
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].WorkDate.Equal(rows[j].WorkDate) {
			return rows[i].WorkDate.Before(rows[j].WorkDate)
		}
		return employeeName(rows[i].User) < employeeName(rows[j].User)
	})
}

func employeeName(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.DisplayName()
}

func employeeDepartment(u *model.User) string {
	if u == nil {
		return ""
	}
	return u.Department
}

func projectLabel(p *model.Project) string {
	if p == nil {
		return ""
	}
	return p.Code + " " + p.Name
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
