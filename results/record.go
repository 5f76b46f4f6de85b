package results

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuan-noorazman/firesweep/uartlog"
	"gorm.io/gorm"
)

var (
	ErrRecordNotFound  = errors.New("run result not found")
	ErrInvalidSweepID  = errors.New("sweep_id is required")
	ErrInvalidHWConfig = errors.New("hw_config is required")
	ErrInvalidWorkload = errors.New("workload is required")
	ErrInvalidRunIndex = errors.New("run index must be positive")
)

// MetricMap is a metrics column stored as a JSON object.
type MetricMap map[string]string

func (m MetricMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *MetricMap) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = make(MetricMap)
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("failed to scan MetricMap: unsupported type")
	}
	out := make(map[string]string)
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

// Record is a persisted Row belonging to one sweep invocation.
type Record struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	SweepID   uuid.UUID `json:"sweep_id" gorm:"type:char(36);not null;index:idx_run_results_sweep_id"`
	HWConfig  string    `json:"hw_config" gorm:"column:hw_config;type:varchar(255);not null"`
	Workload  string    `json:"workload" gorm:"type:varchar(255);not null"`
	RunIndex  int       `json:"run" gorm:"column:run_index;not null"`
	Metrics   MetricMap `json:"metrics" gorm:"type:text"`
	LogKey    string    `json:"log_key,omitempty" gorm:"column:log_key;type:varchar(1024)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName pins the table created by the SQL migrations.
func (Record) TableName() string {
	return "run_results"
}

func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *Record) Validate() error {
	if r.SweepID == uuid.Nil {
		return ErrInvalidSweepID
	}
	if r.HWConfig == "" {
		return ErrInvalidHWConfig
	}
	if r.Workload == "" {
		return ErrInvalidWorkload
	}
	if r.RunIndex < 1 {
		return ErrInvalidRunIndex
	}
	return nil
}

// Row converts the record back to a table row.
func (r *Record) Row() Row {
	metrics := make(uartlog.Metrics, len(r.Metrics))
	for k, v := range r.Metrics {
		metrics[k] = v
	}
	return Row{
		HWConfig: r.HWConfig,
		Workload: r.Workload,
		Run:      r.RunIndex,
		Metrics:  metrics,
	}
}

// NewRecord builds a record for row within sweepID.
func NewRecord(sweepID uuid.UUID, row Row) *Record {
	metrics := make(MetricMap, len(row.Metrics))
	for k, v := range row.Metrics {
		metrics[k] = v
	}
	return &Record{
		SweepID:  sweepID,
		HWConfig: row.HWConfig,
		Workload: row.Workload,
		RunIndex: row.Run,
		Metrics:  metrics,
	}
}

// SweepSummary describes one sweep's stored results.
type SweepSummary struct {
	SweepID   uuid.UUID `json:"sweep_id"`
	Rows      int       `json:"rows"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}
