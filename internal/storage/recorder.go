package storage

import (
	"context"
	"encoding/json"
	"time"

	logger2 "mockwire/internal/logger"
	"mockwire/pkg/intercept"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// ExchangeRecord 持久化的拦截交换记录
type ExchangeRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	Service   string `gorm:"index"`
	Request   string `gorm:"index"`
	URL       string
	Input     string // JSON
	Output    string // JSON
	Status    int
	CreatedAt time.Time
}

// Recorder 将已解决的交换写入 SQLite，仅用于事后检查。
// 写入失败只记录日志，不影响拦截结果
type Recorder struct {
	db  *gorm.DB
	log logger2.Logger
}

var _ intercept.Recorder = (*Recorder)(nil)

// NewRecorder 打开数据库并迁移表结构
func NewRecorder(dsn, prefix string, l logger2.Logger) (*Recorder, error) {
	if l == nil {
		l = logger2.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         NewGormLogger(l),
		NamingStrategy: schema.NamingStrategy{TablePrefix: prefix},
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&ExchangeRecord{}); err != nil {
		return nil, err
	}
	return &Recorder{db: db, log: l}, nil
}

// Record 写入一条交换记录
func (r *Recorder) Record(ctx context.Context, ex intercept.Exchange) {
	input, err := json.Marshal(ex.Input)
	if err != nil {
		r.log.Err(err, "无法编码输入", "service", ex.Service, "request", ex.Request)
		return
	}
	output, err := json.Marshal(ex.Output)
	if err != nil {
		r.log.Err(err, "无法编码输出", "service", ex.Service, "request", ex.Request)
		return
	}
	rec := ExchangeRecord{
		ID:        uuid.NewString(),
		Service:   ex.Service,
		Request:   ex.Request,
		URL:       ex.URL,
		Input:     string(input),
		Output:    string(output),
		Status:    ex.Status,
		CreatedAt: ex.Timestamp,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		r.log.Err(err, "写入交换记录失败", "service", ex.Service, "request", ex.Request)
	}
}

// Recent 返回最近的若干条记录，按时间倒序
func (r *Recorder) Recent(ctx context.Context, limit int) ([]ExchangeRecord, error) {
	var out []ExchangeRecord
	err := r.db.WithContext(ctx).Order("created_at desc").Limit(limit).Find(&out).Error
	return out, err
}
