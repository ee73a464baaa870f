package repository

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spec-kit/support-bot/internal/domain"
	apperrors "github.com/spec-kit/support-bot/pkg/errorutil"
)

const workbookTimeLayout = "2006-01-02 15:04:05"

var workbookHeader = []any{"Ticket No", "Contact Details", "Issue Category", "Description", "Status", "Date Created"}

// column positions within a row
const (
	colNumber = iota
	colContact
	colCategory
	colDescription
	colStatus
	colCreated
)

// workbookTicketRepository keeps tickets in one sheet of an XLSX file.
// The mutex serializes read-modify-write cycles within the process.
type workbookTicketRepository struct {
	mu    sync.Mutex
	path  string
	sheet string
}

// NewWorkbookTicketRepository stores tickets in sheet of the workbook at
// path. The file and sheet are created on first write.
func NewWorkbookTicketRepository(path, sheet string) TicketRepository {
	if sheet == "" {
		sheet = "Tickets"
	}
	return &workbookTicketRepository{path: path, sheet: sheet}
}

func (r *workbookTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.open()
	if err != nil {
		return apperrors.NewStoreUnavailable("open workbook", err)
	}
	defer f.Close()

	if err := r.ensureSheet(f); err != nil {
		return apperrors.NewStoreWrite("prepare sheet", err)
	}
	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return apperrors.NewStoreUnavailable("read sheet", err)
	}

	var last int64
	for _, row := range dataRows(rows) {
		if n, ok := parseTicketNumber(row); ok && n > last {
			last = n
		}
	}
	number := last + 1

	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return apperrors.NewStoreWrite("locate row", err)
	}
	values := []any{
		number,
		ticket.Contact,
		string(ticket.Category),
		ticket.Description,
		string(ticket.Status),
		ticket.CreatedAt.Format(workbookTimeLayout),
	}
	if err := f.SetSheetRow(r.sheet, cell, &values); err != nil {
		return apperrors.NewStoreWrite("write row", err)
	}
	if err := f.SaveAs(r.path); err != nil {
		return apperrors.NewStoreWrite("save workbook", err)
	}
	ticket.Number = number
	return nil
}

func (r *workbookTicketRepository) ListOpenByContact(ctx context.Context, contact string) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("open workbook", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(r.sheet); err != nil || idx < 0 {
		return nil, nil
	}
	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable("read sheet", err)
	}

	var tickets []domain.Ticket
	for _, row := range dataRows(rows) {
		if cellAt(row, colContact) != contact || cellAt(row, colStatus) != string(domain.TicketStatusOngoing) {
			continue
		}
		n, ok := parseTicketNumber(row)
		if !ok {
			continue
		}
		ticket := domain.Ticket{
			Number:      n,
			Contact:     contact,
			Category:    domain.Category(cellAt(row, colCategory)),
			Description: cellAt(row, colDescription),
			Status:      domain.TicketStatusOngoing,
		}
		if created, err := time.Parse(workbookTimeLayout, cellAt(row, colCreated)); err == nil {
			ticket.CreatedAt = created
		}
		tickets = append(tickets, ticket)
	}
	sortTickets(tickets)
	return tickets, nil
}

// Ping checks that the workbook, or at least its directory, is reachable.
func (r *workbookTicketRepository) Ping(ctx context.Context) error {
	if _, err := os.Stat(r.path); err == nil {
		return nil
	}
	dir := filepath.Dir(r.path)
	info, err := os.Stat(dir)
	if err != nil {
		return apperrors.NewStoreUnavailable("stat workbook directory", err)
	}
	if !info.IsDir() {
		return apperrors.NewStoreUnavailable("stat workbook directory", fmt.Errorf("%s is not a directory", dir))
	}
	return nil
}

func (r *workbookTicketRepository) open() (*excelize.File, error) {
	f, err := excelize.OpenFile(r.path)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f = excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), r.sheet); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (r *workbookTicketRepository) ensureSheet(f *excelize.File) error {
	idx, err := f.GetSheetIndex(r.sheet)
	if err != nil {
		return err
	}
	if idx < 0 {
		if _, err := f.NewSheet(r.sheet); err != nil {
			return err
		}
	}
	first, err := f.GetCellValue(r.sheet, "A1")
	if err != nil {
		return err
	}
	if first == "" {
		return f.SetSheetRow(r.sheet, "A1", &workbookHeader)
	}
	return nil
}

func dataRows(rows [][]string) [][]string {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}

func cellAt(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// parseTicketNumber accepts "7" as well as a hand-typed "#007".
func parseTicketNumber(row []string) (int64, bool) {
	raw := strings.TrimPrefix(cellAt(row, colNumber), "#")
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func sortTickets(tickets []domain.Ticket) {
	slices.SortFunc(tickets, func(a, b domain.Ticket) int {
		return cmp.Compare(a.Number, b.Number)
	})
}
