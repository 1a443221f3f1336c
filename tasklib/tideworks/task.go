package tideworks

import (
	"time"

	"github.com/TaikerLiang/shipment-crawler/limiter"
	"github.com/TaikerLiang/shipment-crawler/spider"
	"golang.org/x/time/rate"
)

var (
	// 各Tideworks码头只差公司信息,流程完全一致
	PctTask = NewTask("terminal_pct", CompanyInfo{
		LowerShort: "pct",
		UpperShort: "PCT",
		Email:      "tracking@shipmenttech.co",
		Password:   "changeme",
	})
	WutTask = NewTask("terminal_wut", CompanyInfo{
		LowerShort: "wut",
		UpperShort: "WUT",
		Email:      "tracking@shipmenttech.co",
		Password:   "changeme",
	})
)

func NewTask(name string, info CompanyInfo) *spider.Task {
	t := spider.NewTask(
		spider.WithName(name),
		spider.WithLimit(limiter.Multi(
			rate.NewLimiter(limiter.Per(1, 2*time.Second), 1),
		)),
	)
	t.Rule = NewRuleTree(info)

	return t
}
