package tasklib

import (
	"github.com/TaikerLiang/shipment-crawler/spider"
	"github.com/TaikerLiang/shipment-crawler/tasklib/nsrail"
	"github.com/TaikerLiang/shipment-crawler/tasklib/oney"
	"github.com/TaikerLiang/shipment-crawler/tasklib/tideworks"
)

func init() {
	spider.TaskStore.Add(oney.OneyTask)
	spider.TaskStore.Add(oney.SmlmTask)
	spider.TaskStore.Add(tideworks.PctTask)
	spider.TaskStore.Add(tideworks.WutTask)
	spider.TaskStore.Add(nsrail.NSRailTask)
}
