package spider

import (
	"time"

	"github.com/TaikerLiang/shipment-crawler/limiter"
	"github.com/TaikerLiang/shipment-crawler/saver"
	"go.uber.org/zap"
)

type Options struct {
	Name     string `json:"name"` // 站点名称,应保证唯一性
	BaseURL  string `json:"base_url"`
	Cookie   string `json:"cookie"`
	WaitTime int64  `json:"wait_time"` // 随机休眠时间,秒
	MaxRetry int    `json:"max_retry"` // Restart信号的重试上限
	Timeout  time.Duration
	Fetcher  Fetcher
	Proxy    ProxyApplier
	Saver    saver.Saver
	Limit    limiter.RateLimiter
	logger   *zap.Logger
}

var defaultOptions = Options{
	logger:   zap.NewNop(),
	WaitTime: 2,
	MaxRetry: 3,
	Timeout:  30 * time.Second,
	Saver:    saver.NewNullSaver(),
}

type Option func(opts *Options)

func WithLogger(logger *zap.Logger) Option {
	return func(opts *Options) {
		opts.logger = logger
	}
}

func WithName(name string) Option {
	return func(opts *Options) {
		opts.Name = name
	}
}

func WithBaseURL(baseURL string) Option {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

func WithCookie(cookie string) Option {
	return func(opts *Options) {
		opts.Cookie = cookie
	}
}

func WithWaitTime(waitTime int64) Option {
	return func(opts *Options) {
		opts.WaitTime = waitTime
	}
}

func WithMaxRetry(maxRetry int) Option {
	return func(opts *Options) {
		opts.MaxRetry = maxRetry
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

func WithFetcher(f Fetcher) Option {
	return func(opts *Options) {
		opts.Fetcher = f
	}
}

func WithProxyApplier(p ProxyApplier) Option {
	return func(opts *Options) {
		opts.Proxy = p
	}
}

func WithSaver(s saver.Saver) Option {
	return func(opts *Options) {
		opts.Saver = s
	}
}

func WithLimit(l limiter.RateLimiter) Option {
	return func(opts *Options) {
		opts.Limit = l
	}
}

func (o *Options) Logger() *zap.Logger {
	return o.logger
}
