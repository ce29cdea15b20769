package controllers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"time"

	"github.com/adamanr/hcm_gateway/internal/config"
	"github.com/adamanr/hcm_gateway/internal/entity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// DBInterface defines the interface for database operations.
type DBInterface interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// RedisInterface defines the interface for Redis operations.
type RedisInterface interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// MockDB represents a mock database connection.
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	mockArgs := append([]interface{}{ctx, sql}, args...)
	callArgs := m.Called(mockArgs...)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(pgx.Rows), callArgs.Error(1)
}

func (m *MockDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	mockArgs := append([]interface{}{ctx, sql}, args...)
	callArgs := m.Called(mockArgs...)
	return callArgs.Get(0).(pgx.Row)
}

func (m *MockDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	mockArgs := append([]interface{}{ctx, sql}, args...)
	callArgs := m.Called(mockArgs...)
	return callArgs.Get(0).(pgconn.CommandTag), callArgs.Error(1)
}

// assign copies val into the pointer dest when the types line up.
func assign(dest, val interface{}) {
	if val == nil {
		return
	}

	target := reflect.ValueOf(dest)
	if target.Kind() != reflect.Ptr || target.IsNil() {
		return
	}

	v := reflect.ValueOf(val)
	if v.Type().AssignableTo(target.Elem().Type()) {
		target.Elem().Set(v)
	}
}

// MockRow represents a mock database row.
type MockRow struct {
	data []interface{}
	err  error
}

func NewMockRow(data []interface{}, err error) *MockRow {
	return &MockRow{data: data, err: err}
}

func (m *MockRow) Scan(dest ...interface{}) error {
	if m.err != nil {
		return m.err
	}

	for i, val := range m.data {
		if i < len(dest) {
			assign(dest[i], val)
		}
	}
	return nil
}

// MockRows represents mock database rows.
type MockRows struct {
	rows       [][]interface{}
	pos        int
	err        error
	fieldDescs []pgconn.FieldDescription
}

func NewMockRows(rows [][]interface{}, err error, columns ...string) *MockRows {
	fieldDescs := make([]pgconn.FieldDescription, 0, len(columns))
	for _, c := range columns {
		fieldDescs = append(fieldDescs, pgconn.FieldDescription{Name: c})
	}

	return &MockRows{
		rows:       rows,
		pos:        -1,
		err:        err,
		fieldDescs: fieldDescs,
	}
}

func (m *MockRows) FieldDescriptions() []pgconn.FieldDescription {
	return m.fieldDescs
}

func (m *MockRows) Next() bool {
	if m.err != nil {
		return false
	}
	m.pos++
	return m.pos < len(m.rows)
}

func (m *MockRows) Close() {}

func (m *MockRows) Scan(dest ...interface{}) error {
	if m.pos < 0 || m.pos >= len(m.rows) {
		return fmt.Errorf("scan called without a current row")
	}

	for i, val := range m.rows[m.pos] {
		if i < len(dest) {
			assign(dest[i], val)
		}
	}
	return nil
}

func (m *MockRows) Err() error {
	return m.err
}

func (m *MockRows) CommandTag() pgconn.CommandTag {
	return pgconn.NewCommandTag(fmt.Sprintf("SELECT %d", len(m.rows)))
}

func (m *MockRows) Values() ([]interface{}, error) {
	if m.pos < 0 || m.pos >= len(m.rows) {
		return nil, nil
	}
	return m.rows[m.pos], nil
}

func (m *MockRows) RawValues() [][]byte {
	return nil
}

func (m *MockRows) Conn() *pgx.Conn {
	return nil
}

// MockRedis represents a mock Redis client.
type MockRedis struct {
	mock.Mock
}

func (m *MockRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)

	if statusCmd, ok := args.Get(0).(*redis.StatusCmd); ok {
		return statusCmd
	}

	cmd := redis.NewStatusCmd(ctx)
	if err, ok := args.Get(0).(error); ok && err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal("OK")
	}

	return cmd
}

func (m *MockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)

	if stringCmd, ok := args.Get(0).(*redis.StringCmd); ok {
		return stringCmd
	}

	cmd := redis.NewStringCmd(ctx)
	switch v := args.Get(0).(type) {
	case error:
		cmd.SetErr(v)
	case string:
		cmd.SetVal(v)
	}

	return cmd
}

func (m *MockRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)

	if intCmd, ok := args.Get(0).(*redis.IntCmd); ok {
		return intCmd
	}

	cmd := redis.NewIntCmd(ctx)
	if err, ok := args.Get(0).(error); ok && err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(int64(len(keys)))
	}

	return cmd
}

// MockBackend represents a mock HCM backend client.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetEmployee(ctx context.Context, employeeID int64) (*entity.Employee, error) {
	args := m.Called(ctx, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Employee), args.Error(1)
}

func (m *MockBackend) AuthUser(ctx context.Context, req entity.LoginRequest) (*entity.AuthUser, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.AuthUser), args.Error(1)
}

func (m *MockBackend) SaveEmployee(ctx context.Context, employee entity.Employee) error {
	return m.Called(ctx, employee).Error(0)
}

func (m *MockBackend) GetAuthorizedPersons(ctx context.Context, req entity.AuthorizationRequest) ([]entity.AuthorizationEntry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AuthorizationEntry), args.Error(1)
}

func (m *MockBackend) GetFinalApprovalList(ctx context.Context, companyID, employeeID int64) ([]entity.LeaveApplication, error) {
	args := m.Called(ctx, companyID, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LeaveApplication), args.Error(1)
}

func (m *MockBackend) GetManagerApprovalList(ctx context.Context, companyID, employeeID int64) ([]entity.LeaveApplication, error) {
	args := m.Called(ctx, companyID, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LeaveApplication), args.Error(1)
}

func (m *MockBackend) GetLeaveDetails(ctx context.Context, applyLeaveID int64) (*entity.LeaveApplication, error) {
	args := m.Called(ctx, applyLeaveID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LeaveApplication), args.Error(1)
}

func (m *MockBackend) GetRoleDetails(ctx context.Context, companyID int64) ([]entity.RoleDetail, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.RoleDetail), args.Error(1)
}

func (m *MockBackend) CheckPayrollCreation(ctx context.Context, req entity.PayrollCheckRequest) (*entity.BackendResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.BackendResult), args.Error(1)
}

func (m *MockBackend) SaveLeaveApproval(ctx context.Context, payload entity.ApprovalPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *MockBackend) SaveLeaveFinalApproval(ctx context.Context, payload entity.ApprovalPayload) error {
	return m.Called(ctx, payload).Error(0)
}

func (m *MockBackend) GetGeoFence(ctx context.Context, companyID int64) (*entity.GeoFence, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GeoFence), args.Error(1)
}

func (m *MockBackend) GetPayslips(ctx context.Context, companyID, employeeID int64) ([]entity.Payslip, error) {
	args := m.Called(ctx, companyID, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Payslip), args.Error(1)
}

func (m *MockBackend) GetExitRequests(ctx context.Context, companyID, employeeID int64) ([]entity.ExitRequest, error) {
	args := m.Called(ctx, companyID, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ExitRequest), args.Error(1)
}

func (m *MockBackend) GetExpenseRequests(ctx context.Context, companyID, employeeID int64) ([]entity.ExpenseRequest, error) {
	args := m.Called(ctx, companyID, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.ExpenseRequest), args.Error(1)
}

// Test helper functions.
func CreateTestDependencies(mockDB DBInterface, mockRedis RedisInterface, mockBackend Backend) *Dependens {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	cfg := &config.Config{}
	cfg.Server.JWTSecret = "test-secret-key"
	cfg.Redis.AccessTokenTTL = time.Hour
	cfg.Redis.RefreshTokenTTL = time.Hour * 24
	cfg.Redis.ProfileTTL = 30 * time.Minute
	cfg.Workflow.PageSize = 5
	cfg.Workflow.ControllerName = "LeaveApproval"
	cfg.Workflow.ActionName = "SaveLeaveFinalApproval"
	cfg.Attendance.HoldDuration = 15 * time.Second
	cfg.Attendance.MaxFrameGap = 2 * time.Second
	cfg.Attendance.CenterTolerance = 0.15
	cfg.Attendance.MinFaceRatio = 0.25
	cfg.Attendance.MaxFaceRatio = 0.8
	cfg.Attendance.HistoryLimit = 100

	return &Dependens{
		DB:        mockDB,
		Redis:     mockRedis,
		Backend:   mockBackend,
		Validator: NewValidator(),
		Logger:    logger,
		Config:    cfg,
	}
}

// Test data helpers.
func CreateTestSession() *entity.Session {
	return &entity.Session{
		Claims: &entity.Claims{ID: 7, UserName: "approver", CompanyID: 3, UserType: 1, TokenType: "access"},
		Employee: entity.Employee{
			ID:             7,
			EmployeeCode:   "E-007",
			EmployeeName:   "Approver",
			DepartmentID:   2,
			DesignationID:  4,
			ChildCompanyID: 3,
			BranchID:       1,
			UserType:       1,
		},
	}
}

func Float64Ptr(f float64) *float64 {
	return &f
}

func StringPtr(s string) *string {
	return &s
}
