package entity

type PayslipLine struct {
	Name   string    `json:"name"`
	Amount FlexFloat `json:"amount"`
}

type Payslip struct {
	ID             FlexInt       `json:"id"`
	EmployeeID     FlexInt       `json:"employeeId"`
	EmployeeName   string        `json:"employeeName"`
	EmployeeCode   string        `json:"employeeCode"`
	MonthName      string        `json:"monthName"`
	Year           FlexInt       `json:"year"`
	GrossSalary    FlexFloat     `json:"grossSalary"`
	TotalDeduction FlexFloat     `json:"totalDeduction"`
	NetSalary      FlexFloat     `json:"netSalary"`
	Earnings       []PayslipLine `json:"earnings"`
	Deductions     []PayslipLine `json:"deductions"`
}

type ExitRequest struct {
	ID              FlexInt `json:"id"`
	EmployeeID      FlexInt `json:"employeeId"`
	ResignationDate string  `json:"resignationDate"`
	LastWorkingDate string  `json:"lastWorkingDate"`
	Reason          string  `json:"reason"`
	Status          string  `json:"status"`
	StatusStage     string  `json:"statusStage,omitempty"`
}

type ExpenseRequest struct {
	ID          FlexInt   `json:"id"`
	EmployeeID  FlexInt   `json:"employeeId"`
	RequestType string    `json:"requestType"`
	Amount      FlexFloat `json:"amount"`
	RequestDate string    `json:"requestDate"`
	Purpose     string    `json:"purpose"`
	Status      string    `json:"status"`
	StatusStage string    `json:"statusStage,omitempty"`
}
