package oney

import (
	"time"

	"github.com/TaikerLiang/shipment-crawler/limiter"
	"github.com/TaikerLiang/shipment-crawler/spider"
	"golang.org/x/time/rate"
)

// ONE与SMLM共用同一套后台,只有入口域名不同
var (
	OneyTask = newTask("carrier_oney_multi", "https://ecomm.one-line.com/ecom/CUP_HOM_3301GS.do")
	SmlmTask = newTask("carrier_smlm_multi", "https://esvc.smlines.com/smline/CUP_HOM_3301GS.do")
)

func newTask(name, baseURL string) *spider.Task {
	t := spider.NewTask(
		spider.WithName(name),
		spider.WithBaseURL(baseURL),
		spider.WithLimit(limiter.Multi(
			rate.NewLimiter(limiter.Per(1, 2*time.Second), 1),
			rate.NewLimiter(limiter.Per(20, 60*time.Second), 20),
		)),
	)
	t.Rule = NewRuleTree()

	return t
}
