package pipeline

import (
	"go.uber.org/zap"
)

type options struct {
	logger       *zap.Logger
	sink         ResultSink
	storage      DataRepository
	providerCode string
}

var defaultOptions = options{
	logger:       zap.NewNop(),
	providerCode: "cloud_api",
}

type Option func(opts *options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

func WithSink(sink ResultSink) Option {
	return func(opts *options) {
		opts.sink = sink
	}
}

func WithStorage(storage DataRepository) Option {
	return func(opts *options) {
		opts.storage = storage
	}
}

func WithProviderCode(providerCode string) Option {
	return func(opts *options) {
		opts.providerCode = providerCode
	}
}
