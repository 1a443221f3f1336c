package limiter

import (
	"context"
	"sort"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Wait(context.Context) error
	Limit() rate.Limit
}

func Per(eventCount int, duration time.Duration) rate.Limit {
	return rate.Every(duration / time.Duration(eventCount))
}

// Multi 组合多个限速器,整体速率由最慢的一个决定
func Multi(limiters ...RateLimiter) *MultiLimiter {
	byLimit := func(i, j int) bool {
		return limiters[i].Limit() < limiters[j].Limit()
	}
	sort.Slice(limiters, byLimit)

	return &MultiLimiter{limiters: limiters}
}

type MultiLimiter struct {
	limiters []RateLimiter
}

func (l *MultiLimiter) Wait(ctx context.Context) error {
	for _, l := range l.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (l *MultiLimiter) Limit() rate.Limit {
	return l.limiters[0].Limit()
}

// LimitConfig 配置文件里的单条限速定义
type LimitConfig struct {
	EventCount int
	EventDur   int // 秒
	Bucket     int // 桶大小
}

// FromConfigs 从配置构造组合限速器,空配置返回nil表示不限速
func FromConfigs(cfgs []LimitConfig) RateLimiter {
	if len(cfgs) == 0 {
		return nil
	}

	var limiters []RateLimiter
	for _, c := range cfgs {
		l := rate.NewLimiter(Per(c.EventCount, time.Duration(c.EventDur)*time.Second), c.Bucket)
		limiters = append(limiters, l)
	}

	if len(limiters) == 1 {
		return limiters[0]
	}

	return Multi(limiters...)
}
