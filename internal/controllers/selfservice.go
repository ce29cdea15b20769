package controllers

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/adamanr/hcm_gateway/internal/backend"
	"github.com/adamanr/hcm_gateway/internal/entity"
	"github.com/adamanr/hcm_gateway/internal/leave"
	"github.com/adamanr/hcm_gateway/internal/pagination"
	"github.com/jung-kurt/gofpdf"
)

// SelfServiceController serves the employee's own payslips, exit requests
// and expense requests.
type SelfServiceController struct {
	deps *Dependens
}

func NewSelfServiceController(deps *Dependens) *SelfServiceController {
	return &SelfServiceController{
		deps: deps,
	}
}

func (c *SelfServiceController) Payslips(ctx context.Context, session *entity.Session, page, pageSize int) (*entity.Page[entity.Payslip], error) {
	list, err := c.deps.Backend.GetPayslips(ctx, session.CompanyID(), session.EmployeeID())
	if err != nil {
		c.deps.Logger.Error("Error fetching payslips", slog.String("error", err.Error()))
		return nil, err
	}

	return paginate(list, page, pageSize, c.deps.Config.Workflow.PageSize), nil
}

func (c *SelfServiceController) ExitRequests(ctx context.Context, session *entity.Session, page, pageSize int) (*entity.Page[entity.ExitRequest], error) {
	list, err := c.deps.Backend.GetExitRequests(ctx, session.CompanyID(), session.EmployeeID())
	if err != nil {
		c.deps.Logger.Error("Error fetching exit requests", slog.String("error", err.Error()))
		return nil, err
	}

	for i := range list {
		list[i].StatusStage = leave.ParseStatus(list[i].Status).String()
	}

	return paginate(list, page, pageSize, c.deps.Config.Workflow.PageSize), nil
}

func (c *SelfServiceController) ExpenseRequests(ctx context.Context, session *entity.Session, page, pageSize int) (*entity.Page[entity.ExpenseRequest], error) {
	list, err := c.deps.Backend.GetExpenseRequests(ctx, session.CompanyID(), session.EmployeeID())
	if err != nil {
		c.deps.Logger.Error("Error fetching expense requests", slog.String("error", err.Error()))
		return nil, err
	}

	for i := range list {
		list[i].StatusStage = leave.ParseStatus(list[i].Status).String()
	}

	return paginate(list, page, pageSize, c.deps.Config.Workflow.PageSize), nil
}

// PayslipPDF renders one of the employee's payslips as an A4 PDF.
func (c *SelfServiceController) PayslipPDF(ctx context.Context, session *entity.Session, payslipID int64, w io.Writer) error {
	list, err := c.deps.Backend.GetPayslips(ctx, session.CompanyID(), session.EmployeeID())
	if err != nil {
		c.deps.Logger.Error("Error fetching payslips", slog.String("error", err.Error()))
		return err
	}

	for _, p := range list {
		if p.ID.Int64() == payslipID {
			return renderPayslip(p, session.Employee, w)
		}
	}

	return backend.ErrNotFound
}

func renderPayslip(p entity.Payslip, employee entity.Employee, w io.Writer) error {
	name := p.EmployeeName
	if name == "" {
		name = employee.EmployeeName
	}
	code := p.EmployeeCode
	if code == "" {
		code = employee.EmployeeCode
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Payslip %s %d", p.MonthName, p.Year.Int64()), true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s (%s)", name, code))
	pdf.Ln(7)
	if employee.Designation != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Designation: %s", employee.Designation))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s %d", p.MonthName, p.Year.Int64()))
	pdf.Ln(10)

	lines := func(title string, items []entity.PayslipLine) {
		if len(items) == 0 {
			return
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 8, title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		for _, item := range items {
			pdf.CellFormat(120, 7, item.Name, "", 0, "L", false, 0, "")
			pdf.CellFormat(50, 7, fmt.Sprintf("%.2f", item.Amount.Float64()), "", 1, "R", false, 0, "")
		}
		pdf.Ln(3)
	}
	lines("Earnings", p.Earnings)
	lines("Deductions", p.Deductions)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Gross: %.2f", p.GrossSalary.Float64()))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Deductions: %.2f", p.TotalDeduction.Float64()))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Net: %.2f", p.NetSalary.Float64()))

	return pdf.Output(w)
}

func paginate[T any](list []T, page, pageSize, defaultSize int) *entity.Page[T] {
	page, pageSize = pagination.Params(page, pageSize, defaultSize)
	result := pagination.Paginate(list, page, pageSize)

	return &result
}
