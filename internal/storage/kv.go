package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adamanr/hcm_gateway/internal/entity"
	"github.com/redis/go-redis/v9"
)

const (
	historyKey = "hcm:attendance:history:%d"
	currentKey = "hcm:attendance:current:%d"
	profileKey = "hcm:profile:%d"
)

type Redis interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// KV keeps the per-employee state: attendance history, the open attendance
// record and the cached profile. Absent keys read as nil without error.
type KV struct {
	rdb        Redis
	profileTTL time.Duration
	logger     *slog.Logger
}

func NewKV(rdb Redis, profileTTL time.Duration, logger *slog.Logger) *KV {
	return &KV{rdb: rdb, profileTTL: profileTTL, logger: logger}
}

func (kv *KV) Profile(ctx context.Context, employeeID int64) (*entity.Employee, error) {
	var employee entity.Employee

	found, err := kv.load(ctx, fmt.Sprintf(profileKey, employeeID), &employee)
	if err != nil || !found {
		return nil, err
	}

	return &employee, nil
}

func (kv *KV) SetProfile(ctx context.Context, employee entity.Employee) error {
	employee.Password = ""
	return kv.store(ctx, fmt.Sprintf(profileKey, employee.ID.Int64()), employee, kv.profileTTL)
}

func (kv *KV) DeleteProfile(ctx context.Context, employeeID int64) error {
	return kv.delete(ctx, fmt.Sprintf(profileKey, employeeID))
}

func (kv *KV) CurrentAttendance(ctx context.Context, employeeID int64) (*entity.AttendanceRecord, error) {
	var record entity.AttendanceRecord

	found, err := kv.load(ctx, fmt.Sprintf(currentKey, employeeID), &record)
	if err != nil || !found {
		return nil, err
	}

	return &record, nil
}

func (kv *KV) SetCurrentAttendance(ctx context.Context, record entity.AttendanceRecord) error {
	return kv.store(ctx, fmt.Sprintf(currentKey, record.EmployeeID), record, 0)
}

func (kv *KV) ClearCurrentAttendance(ctx context.Context, employeeID int64) error {
	return kv.delete(ctx, fmt.Sprintf(currentKey, employeeID))
}

// History returns closed attendance records, newest first.
func (kv *KV) History(ctx context.Context, employeeID int64) ([]entity.AttendanceRecord, error) {
	var records []entity.AttendanceRecord

	if _, err := kv.load(ctx, fmt.Sprintf(historyKey, employeeID), &records); err != nil {
		return nil, err
	}

	return records, nil
}

// AppendHistory prepends a record and keeps at most limit entries.
func (kv *KV) AppendHistory(ctx context.Context, record entity.AttendanceRecord, limit int) error {
	records, err := kv.History(ctx, record.EmployeeID)
	if err != nil {
		return err
	}

	records = append([]entity.AttendanceRecord{record}, records...)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}

	return kv.store(ctx, fmt.Sprintf(historyKey, record.EmployeeID), records, 0)
}

func (kv *KV) load(ctx context.Context, key string, dst any) (bool, error) {
	data, err := kv.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		kv.logger.Error("Error reading key", slog.String("key", key), slog.String("error", err.Error()))
		return false, err
	}

	if err := json.Unmarshal([]byte(data), dst); err != nil {
		kv.logger.Warn("Discarding unreadable value", slog.String("key", key), slog.String("error", err.Error()))
		return false, nil
	}

	return true, nil
}

func (kv *KV) store(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if err := kv.rdb.Set(ctx, key, string(data), ttl).Err(); err != nil {
		kv.logger.Error("Error writing key", slog.String("key", key), slog.String("error", err.Error()))
		return err
	}

	return nil
}

func (kv *KV) delete(ctx context.Context, key string) error {
	if err := kv.rdb.Del(ctx, key).Err(); err != nil {
		kv.logger.Error("Error deleting key", slog.String("key", key), slog.String("error", err.Error()))
		return err
	}

	return nil
}
