package usecase

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type options struct {
	logger logrus.FieldLogger
	now    func() time.Time
	newID  func() uuid.UUID
}

// Option 定義 Ledger / AuditLog 的配置選項函數
type Option func(*options)

// WithLogger 設定結構化 logger (預設丟棄輸出)
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock 設定時間來源，測試時可固定時間
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithIDGenerator 設定交易 ID 產生器
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(o *options) {
		o.newID = newID
	}
}

func buildOptions(opts []Option) options {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	o := options{
		logger: discard,
		now:    time.Now,
		newID:  uuid.New,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
