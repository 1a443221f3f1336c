package pipeline

import (
	"reflect"
	"strings"

	"github.com/TaikerLiang/shipment-crawler/spider"
)

// orderedRecords 按key归槽的重复子记录,保持首次出现的顺序
type orderedRecords struct {
	keys []string
	m    map[string]map[string]interface{}
}

func newOrderedRecords() *orderedRecords {
	return &orderedRecords{
		m: make(map[string]map[string]interface{}),
	}
}

// 槽位首次引用时惰性创建,同key重复引用幂等复用
func (r *orderedRecords) getOrCreate(key string, def func() map[string]interface{}) map[string]interface{} {
	if slot, ok := r.m[key]; ok {
		return slot
	}

	slot := def()
	r.keys = append(r.keys, key)
	r.m[key] = slot

	return slot
}

func (r *orderedRecords) values() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, r.m[k])
	}

	return out
}

func (r *orderedRecords) size() int {
	return len(r.keys)
}

// ResultCollector 单个任务的结果累加器
// basic段后写覆盖,status列表只追加,出结果时去重
type ResultCollector struct {
	requestArgs map[string]interface{}
	isEnd       bool
	errData     map[string]interface{}
	notFound    map[string]interface{}
	basic       map[string]interface{}
	vessels     *orderedRecords
	containers  *orderedRecords
}

func NewResultCollector(requestArgs map[string]interface{}) *ResultCollector {
	args := make(map[string]interface{}, len(requestArgs))
	for k, v := range requestArgs {
		args[k] = v
	}

	return &ResultCollector{
		requestArgs: args,
		errData:     map[string]interface{}{},
		notFound:    map[string]interface{}{},
		basic:       map[string]interface{}{},
		vessels:     newOrderedRecords(),
		containers:  newOrderedRecords(),
	}
}

func (c *ResultCollector) CollectMblItem(item *spider.MblItem) {
	for k, v := range cleanFields(item.Fields) {
		c.basic[k] = v
	}
}

func (c *ResultCollector) CollectVesselItem(item *spider.VesselItem) {
	slot := c.vessels.getOrCreate(item.VesselKey, func() map[string]interface{} {
		return map[string]interface{}{
			"vessel_key": item.VesselKey,
		}
	})

	for k, v := range cleanFields(item.Fields) {
		slot[k] = v
	}
}

func (c *ResultCollector) CollectContainerItem(item *spider.ContainerItem) {
	slot := c.containerSlot(item.ContainerKey)

	for k, v := range cleanFields(item.Fields) {
		if k == "status" || k == "rail_status" {
			continue
		}
		slot[k] = v
	}
}

func (c *ResultCollector) CollectContainerStatusItem(item *spider.ContainerStatusItem) {
	slot := c.containerSlot(item.ContainerKey)
	slot["status"] = append(slot["status"].([]map[string]interface{}), cleanFields(item.Fields))
}

func (c *ResultCollector) CollectRailItem(item *spider.RailItem) {
	slot := c.containerSlot(item.ContainerKey)
	slot["rail_status"] = append(slot["rail_status"].([]map[string]interface{}), cleanFields(item.Fields))
}

func (c *ResultCollector) CollectNotFoundItem(item *spider.DataNotFoundItem) {
	c.notFound["status"] = spider.StatusError
	if item.Detail != "" {
		c.notFound["detail"] = item.Detail
	} else {
		c.notFound["detail"] = "Data was not found"
	}
	if item.SearchNo != "" {
		c.notFound["search_no"] = item.SearchNo
	}
	if item.SearchType != "" {
		c.notFound["search_type"] = item.SearchType
	}
}

func (c *ResultCollector) CollectErrorItem(item *spider.ExportErrorData) {
	for k, v := range cleanFields(item.Fields) {
		c.errData[k] = v
	}
	c.errData["status"] = item.Status
	c.errData["detail"] = item.Detail
}

func (c *ResultCollector) SetIsEnd() {
	c.isEnd = true
}

func (c *ResultCollector) IsEnd() bool {
	return c.isEnd
}

func (c *ResultCollector) HasError() bool {
	return len(c.errData) > 0
}

func (c *ResultCollector) HasNotFound() bool {
	return len(c.notFound) > 0
}

func (c *ResultCollector) GetErrorItem() map[string]interface{} {
	c.errData["request_args"] = c.requestArgs

	return c.errData
}

func (c *ResultCollector) GetNotFoundItem() map[string]interface{} {
	c.notFound["request_args"] = c.requestArgs

	return c.notFound
}

// BuildFinalData 没收到任何数据时返回nil,调用方按not-found处理
// task_id只用于把同一任务的item串起来,不属于payload,这里统一剔除
func (c *ResultCollector) BuildFinalData() map[string]interface{} {
	if len(c.basic) == 0 && c.vessels.size() == 0 && c.containers.size() == 0 {
		return nil
	}

	basic := make(map[string]interface{}, len(c.basic))
	for k, v := range c.basic {
		if k == "task_id" {
			continue
		}
		basic[k] = v
	}

	vessels := make([]map[string]interface{}, 0, c.vessels.size())
	for _, vessel := range c.vessels.values() {
		delete(vessel, "task_id")
		vessels = append(vessels, vessel)
	}

	containers := make([]map[string]interface{}, 0, c.containers.size())
	for _, container := range c.containers.values() {
		delete(container, "task_id")
		container["status"] = dedupStatuses(container["status"].([]map[string]interface{}))
		container["rail_status"] = dedupStatuses(container["rail_status"].([]map[string]interface{}))
		containers = append(containers, container)
	}

	return map[string]interface{}{
		"status":       spider.StatusData,
		"request_args": c.requestArgs,
		"basic":        basic,
		"vessels":      vessels,
		"containers":   containers,
	}
}

func (c *ResultCollector) BuildErrorData(item *spider.ExportErrorData) map[string]interface{} {
	result := map[string]interface{}{
		"status":       spider.StatusFatal, // 缺省按最严重算
		"request_args": c.requestArgs,
	}

	if item.Status != "" {
		result["status"] = item.Status
	}
	result["detail"] = item.Detail
	for k, v := range cleanFields(item.Fields) {
		result[k] = v
	}

	return result
}

func (c *ResultCollector) BuildDebugData(item *spider.DebugItem) map[string]interface{} {
	return map[string]interface{}{
		"status": spider.StatusDebug,
		"info":   item.Info,
	}
}

func (c *ResultCollector) containerSlot(key string) map[string]interface{} {
	return c.containers.getOrCreate(key, func() map[string]interface{} {
		return map[string]interface{}{
			"container_key": key,
			"container_no":  key,
			"status":        []map[string]interface{}{},
			"rail_status":   []map[string]interface{}{},
		}
	})
}

// 剔除下划线开头的内部字段
func cleanFields(fields map[string]interface{}) map[string]interface{} {
	res := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if strings.HasPrefix(k, "_") {
			continue
		}
		res[k] = v
	}

	return res
}

// 向后扫描去重:留下字面上最后一次出现的重复记录
// 站点在翻页/重试时会重复吐出同一条状态
func dedupStatuses(statuses []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(statuses))

	for i, status := range statuses {
		dup := false
		for _, later := range statuses[i+1:] {
			if reflect.DeepEqual(status, later) {
				dup = true

				break
			}
		}
		if dup {
			continue
		}
		delete(status, "task_id")
		out = append(out, status)
	}

	return out
}
