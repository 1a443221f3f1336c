package engine

import (
	"go.uber.org/zap"
)

type options struct {
	WorkCount int
	Logger    *zap.Logger
}

var defaultOptions = options{
	WorkCount: 1,
	Logger:    zap.NewNop(),
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.Logger = logger
	}
}

// 多数目标站点只容忍单并发,缺省串行
func WithWorkCount(workCount int) Option {
	return func(opts *options) {
		opts.WorkCount = workCount
	}
}
