package nsrail

import (
	"time"

	"github.com/TaikerLiang/shipment-crawler/limiter"
	"github.com/TaikerLiang/shipment-crawler/spider"
	"golang.org/x/time/rate"
)

var NSRailTask = NewTask("rail_usns", "https://accessns.web.ocp01.nscorp.com/track-and-trace/results")

func NewTask(name, resultURL string) *spider.Task {
	t := spider.NewTask(
		spider.WithName(name),
		spider.WithMaxRetry(3),
		spider.WithLimit(limiter.Multi(
			rate.NewLimiter(limiter.Per(1, 5*time.Second), 1),
		)),
	)
	t.Rule = NewRuleTree(resultURL)

	return t
}
