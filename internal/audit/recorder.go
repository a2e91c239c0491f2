package audit

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"church-admin/internal/domain"
	"church-admin/internal/policy"
	"church-admin/pkg/utils"
)

type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

var failures = prometheus.NewCounterVec(
	prometheus.CounterOpts{Name: "audit_record_failures_total", Help: "Audit entries that could not be written"},
	[]string{"table"},
)

func init() { prometheus.MustRegister(failures) }

// Change 一次写操作的前后快照
type Change struct {
	Table    string
	RecordID uint
	Op       Op
	Before   any
	After    any
}

// FieldChange 单字段新旧值
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// Recorder 写后观察者：从不阻塞也不让触发它的写操作失败
type Recorder struct {
	db     *gorm.DB
	log    *zap.Logger
	tables map[string]bool
}

func NewRecorder(db *gorm.DB, l *zap.Logger, tables []string) *Recorder {
	m := make(map[string]bool, len(tables))
	for _, t := range tables {
		m[t] = true
	}
	return &Recorder{db: db, log: l, tables: m}
}

func (r *Recorder) Audited(table string) bool { return r != nil && r.tables[table] }

// Record 尽力而为；失败只记日志和指标
func (r *Recorder) Record(ctx context.Context, ac *policy.Context, ch Change) {
	if !r.Audited(ch.Table) {
		return
	}
	entry, err := buildEntry(ac, ch)
	if err == nil {
		err = r.db.WithContext(context.WithoutCancel(ctx)).Create(entry).Error
	}
	if err != nil {
		failures.WithLabelValues(ch.Table).Inc()
		r.log.Warn("audit record failed",
			zap.String("table", ch.Table),
			zap.Uint("record_id", ch.RecordID),
			zap.String("op", string(ch.Op)),
			zap.Error(err),
		)
	}
}

func buildEntry(ac *policy.Context, ch Change) (*domain.AuditLog, error) {
	before, err := snapshot(ch.Before)
	if err != nil {
		return nil, err
	}
	after, err := snapshot(ch.After)
	if err != nil {
		return nil, err
	}
	changed, err := json.Marshal(Diff(before, after))
	if err != nil {
		return nil, err
	}
	e := &domain.AuditLog{
		EventID:       utils.NewID(),
		Table:         ch.Table,
		RowID:         ch.RecordID,
		Operation:     string(ch.Op),
		ActorID:       ac.ActorID(),
		OldData:       encode(before),
		NewData:       encode(after),
		ChangedFields: string(changed),
	}
	if id := ac.Identity(); id != nil {
		e.AuthID = id.AuthID
	} else if ac.IsService() {
		e.AuthID = "service"
	}
	return e, nil
}

func snapshot(v any) (map[string]any, error) {
	if v == nil || (reflect.ValueOf(v).Kind() == reflect.Ptr && reflect.ValueOf(v).IsNil()) {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func encode(m map[string]any) string {
	if m == nil {
		return ""
	}
	b, _ := json.Marshal(m)
	return string(b)
}

// Diff 字段级差异；插入时 old 为空，删除时 new 为空
func Diff(before, after map[string]any) map[string]FieldChange {
	keys := map[string]struct{}{}
	for k := range before {
		keys[k] = struct{}{}
	}
	for k := range after {
		keys[k] = struct{}{}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	out := map[string]FieldChange{}
	for _, k := range names {
		o, n := before[k], after[k]
		if before != nil && after != nil && reflect.DeepEqual(o, n) {
			continue
		}
		out[k] = FieldChange{Old: o, New: n}
	}
	return out
}
