package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"painai/internal/model"
	"painai/internal/repository"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// --- DTOs ---

type CreateHolidayRequest struct {
	Date        string `json:"date" binding:"required" example:"2024-04-13"`
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	Type        string `json:"type" binding:"omitempty,oneof=public company"`
}

type UpdateHolidayRequest struct {
	Date        *string `json:"date"`
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description"`
	Type        *string `json:"type" binding:"omitempty,oneof=public company"`
}

type HolidayResponse struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Weekday     string `json:"weekday"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type HolidayImportResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// --- Interface ---

type HolidayService interface {
	CreateHoliday(ctx context.Context, actor Actor, req CreateHolidayRequest) (*HolidayResponse, error)
	UpdateHoliday(ctx context.Context, actor Actor, id string, req UpdateHolidayRequest) (*HolidayResponse, error)
	DeleteHoliday(ctx context.Context, actor Actor, id string) error
	ListHolidays(ctx context.Context, year int) ([]HolidayResponse, error)
	ImportHolidays(ctx context.Context, actor Actor, f *excelize.File) (*HolidayImportResult, error)
	GenerateTemplate() (*excelize.File, error)
}

type holidayService struct {
	holidays  repository.HolidayRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewHolidayService(holidays repository.HolidayRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) HolidayService {
	return &holidayService{holidays: holidays, auditRepo: auditRepo, txManager: txManager}
}

var holidayImportHeaders = []string{"date", "name", "description", "type"}

// --- Implementation ---

func (s *holidayService) CreateHoliday(ctx context.Context, actor Actor, req CreateHolidayRequest) (*HolidayResponse, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}
	holidayType, err := normalizeHolidayType(req.Type)
	if err != nil {
		return nil, err
	}

	holiday := &model.Holiday{
		Date:        date,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Type:        holidayType,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureDateFree(txCtx, date, nil); err != nil {
			return err
		}
		if err := s.holidays.Create(txCtx, holiday); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrHolidayExists
			}
			return fmt.Errorf("failed to create holiday: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionCreateHoliday, holiday.ID.String(), holiday.Name, holiday)
	})
	if err != nil {
		return nil, err
	}

	resp := toHolidayResponse(holiday)
	return &resp, nil
}

func (s *holidayService) UpdateHoliday(ctx context.Context, actor Actor, id string, req UpdateHolidayRequest) (*HolidayResponse, error) {
	holidayID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var holiday *model.Holiday
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		holiday, err = s.holidays.FindByID(txCtx, holidayID)
		if err != nil {
			return notFound(err, ErrHolidayNotFound)
		}

		if req.Date != nil {
			date, err := parseDate(*req.Date)
			if err != nil {
				return err
			}
			if err := s.ensureDateFree(txCtx, date, &holiday.ID); err != nil {
				return err
			}
			holiday.Date = date
		}
		if req.Name != nil {
			holiday.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			holiday.Description = *req.Description
		}
		if req.Type != nil {
			if holiday.Type, err = normalizeHolidayType(*req.Type); err != nil {
				return err
			}
		}

		if err := s.holidays.Update(txCtx, holiday); err != nil {
			if repository.IsDuplicateKey(err) {
				return ErrHolidayExists
			}
			return fmt.Errorf("failed to update holiday: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionUpdateHoliday, holiday.ID.String(), holiday.Name, req)
	})
	if err != nil {
		return nil, err
	}

	resp := toHolidayResponse(holiday)
	return &resp, nil
}

func (s *holidayService) DeleteHoliday(ctx context.Context, actor Actor, id string) error {
	holidayID, err := parseID(id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		holiday, err := s.holidays.FindByID(txCtx, holidayID)
		if err != nil {
			return notFound(err, ErrHolidayNotFound)
		}
		if err := s.holidays.Delete(txCtx, holidayID); err != nil {
			return fmt.Errorf("failed to delete holiday: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionDeleteHoliday, holiday.ID.String(), holiday.Name, nil)
	})
}

func (s *holidayService) ListHolidays(ctx context.Context, year int) ([]HolidayResponse, error) {
	if year == 0 {
		year = time.Now().Year()
	}
	holidays, err := s.holidays.ListByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}

	res := make([]HolidayResponse, 0, len(holidays))
	for i := range holidays {
		res = append(res, toHolidayResponse(&holidays[i]))
	}
	return res, nil
}

// ImportHolidays upserts holidays by date from the first sheet. Row 1 is a header; columns are
// date | name | description | type. Blank rows are skipped. Any invalid row aborts the whole import.
func (s *holidayService) ImportHolidays(ctx context.Context, actor Actor, f *excelize.File) (*HolidayImportResult, error) {
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHolidayFile, err)
	}

	result := &HolidayImportResult{}
	if len(rows) < 2 {
		return result, nil
	}

	parsed := make([]model.Holiday, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(idx int) string {
			if idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}

		if cell(0) == "" && cell(1) == "" {
			result.Skipped++
			continue
		}

		date, err := parseSheetDate(cell(0))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidHolidayFile, rowNum, err)
		}
		if cell(1) == "" {
			return nil, fmt.Errorf("%w: row %d: name is required", ErrInvalidHolidayFile, rowNum)
		}
		holidayType, err := normalizeHolidayType(cell(3))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidHolidayFile, rowNum, err)
		}

		parsed = append(parsed, model.Holiday{
			Date:        date,
			Name:        cell(1),
			Description: cell(2),
			Type:        holidayType,
		})
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for i := range parsed {
			h := parsed[i]
			existing, err := s.holidays.FindByDate(txCtx, h.Date)
			switch {
			case err == nil:
				existing.Name, existing.Description, existing.Type = h.Name, h.Description, h.Type
				if err := s.holidays.Update(txCtx, existing); err != nil {
					return fmt.Errorf("failed to update holiday %s: %w", h.Date.Format(dateLayout), err)
				}
				result.Updated++
			case repository.IsNotFound(err):
				if err := s.holidays.Create(txCtx, &h); err != nil {
					return fmt.Errorf("failed to create holiday %s: %w", h.Date.Format(dateLayout), err)
				}
				result.Created++
			default:
				return fmt.Errorf("failed to look up holiday: %w", err)
			}
		}
		return writeAudit(txCtx, s.auditRepo, actor.UserID, model.ActionImportHolidays, "", sheet, result)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GenerateTemplate returns an empty import workbook with the expected header and one example row.
func (s *holidayService) GenerateTemplate() (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Holidays"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	for i, h := range holidayImportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}
	f.SetSheetRow(sheet, "A2", &[]interface{}{"2024-04-13", "Songkran", "", model.HolidayTypePublic})
	f.SetColWidth(sheet, "A", "A", 14)
	f.SetColWidth(sheet, "B", "C", 30)
	return f, nil
}

// --- Helpers ---

func (s *holidayService) ensureDateFree(ctx context.Context, date time.Time, self *uuid.UUID) error {
	existing, err := s.holidays.FindByDate(ctx, date)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to check holiday date: %w", err)
	}
	if self != nil && existing.ID == *self {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrHolidayExists, date.Format(dateLayout))
}

func normalizeHolidayType(t string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", model.HolidayTypePublic:
		return model.HolidayTypePublic, nil
	case model.HolidayTypeCompany:
		return model.HolidayTypeCompany, nil
	}
	return "", fmt.Errorf("unknown holiday type %q", t)
}

var sheetDateLayouts = []string{
	"2006-01-02", "01-02-06", "1/2/06", "02/01/2006", "2/1/2006", "2006/01/02", "02-Jan-2006", "2006-01-02T15:04:05Z",
}

// parseSheetDate accepts the layouts spreadsheets commonly render dates in, plus raw serial numbers.
func parseSheetDate(raw string) (time.Time, error) {
	for _, layout := range sheetDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown date format %q", raw)
}

func toHolidayResponse(h *model.Holiday) HolidayResponse {
	return HolidayResponse{
		ID:          h.ID.String(),
		Date:        h.Date.Format(dateLayout),
		Weekday:     h.Date.Weekday().String(),
		Name:        h.Name,
		Description: h.Description,
		Type:        h.Type,
	}
}
