package pipeline

import (
	"fmt"
	"runtime/debug"

	"github.com/TaikerLiang/shipment-crawler/spider"
	"go.uber.org/zap"
)

// ResultSink 外部EDI引擎,收走每个任务的终端payload
// 重试与超时是客户端自己的事
type ResultSink interface {
	SendProviderResultBack(taskID string, providerCode string, itemResult map[string]interface{}) (int, string, error)
}

// DataRepository 终端payload的落库归档
type DataRepository interface {
	Save(results ...*TaskResult) error
}

// TaskResult 一个任务的最终结果
type TaskResult struct {
	TaskID  string
	Spider  string
	Status  string
	Payload map[string]interface{}
}

// Pipeline item只用来推动collector状态或触发收尾,处理完即丢弃
type Pipeline interface {
	OpenSpider(task *spider.Task) error
	ProcessItem(item spider.Item) error
}

// ItemPipeline 单任务变体,整次运行共用一个collector
type ItemPipeline struct {
	options
	task      *spider.Task
	taskID    string
	collector *ResultCollector
	emitted   bool
}

func NewItemPipeline(opts ...Option) *ItemPipeline {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	return &ItemPipeline{options: options}
}

func (p *ItemPipeline) OpenSpider(task *spider.Task) error {
	p.logger.Info("open spider", zap.String("spider", task.Name))

	p.task = task
	if len(task.TaskIDs) > 0 {
		p.taskID = task.TaskIDs[0]
	}
	p.collector = NewResultCollector(task.RequestArgs())

	return nil
}

func (p *ItemPipeline) ProcessItem(item spider.Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.handleFatal(fmt.Sprintf("%v\n%s", r, debug.Stack()))
			err = nil
		}
	}()

	switch item.Kind() {
	case spider.KindMbl:
		p.collector.CollectMblItem(item.(*spider.MblItem))
	case spider.KindVessel:
		p.collector.CollectVesselItem(item.(*spider.VesselItem))
	case spider.KindContainer:
		p.collector.CollectContainerItem(item.(*spider.ContainerItem))
	case spider.KindContainerStatus:
		p.collector.CollectContainerStatusItem(item.(*spider.ContainerStatusItem))
	case spider.KindRail:
		p.collector.CollectRailItem(item.(*spider.RailItem))
	case spider.KindDataNotFound:
		p.collector.CollectNotFoundItem(item.(*spider.DataNotFoundItem))
	case spider.KindEnd:
		p.collector.SetIsEnd()
	case spider.KindExportError:
		p.collector.CollectErrorItem(item.(*spider.ExportErrorData))
	case spider.KindDebug:
		p.logger.Debug("debug item", zap.Any("data", p.collector.BuildDebugData(item.(*spider.DebugItem))))
	case spider.KindExportFinal:
		p.emitTask(p.taskID, p.collector)
	default:
		p.handleFatal(fmt.Sprintf("unknown item kind: %s", item.Kind()))
	}

	return nil
}

// 未预期的异常统一在这里转成FATAL payload,绝不向外抛
func (p *ItemPipeline) handleFatal(detail string) {
	p.logger.Error("item processing failed", zap.String("detail", detail))

	errItem := &spider.ExportErrorData{Status: spider.StatusFatal, Detail: detail}
	p.sendBack(p.taskID, p.task.Name, p.collector.BuildErrorData(errItem), &p.emitted)
}

func (p *ItemPipeline) emitTask(taskID string, collector *ResultCollector) {
	result := resolveResult(taskID, collector)
	p.sendBack(taskID, p.task.Name, result, &p.emitted)
}

func (p *ItemPipeline) sendBack(taskID, spiderName string, result map[string]interface{}, emitted *bool) {
	sendResultBack(&p.options, taskID, spiderName, result, emitted)
}

// MultiItemsPipeline 多任务变体,collector按task id挂在map里
// 一个任务崩溃不能影响兄弟任务出结果
type MultiItemsPipeline struct {
	options
	task         *spider.Task
	taskOrder    []string
	collectorMap map[string]*ResultCollector
	emitted      map[string]bool
}

func NewMultiItemsPipeline(opts ...Option) *MultiItemsPipeline {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	return &MultiItemsPipeline{options: options}
}

func (p *MultiItemsPipeline) OpenSpider(task *spider.Task) error {
	p.logger.Info("open spider", zap.String("spider", task.Name), zap.Int("tasks", len(task.TaskIDs)))

	if len(task.TaskIDs) != len(task.SearchNos) {
		return fmt.Errorf("task ids and search nos length mismatch")
	}

	p.task = task
	p.collectorMap = make(map[string]*ResultCollector, len(task.TaskIDs))
	p.emitted = make(map[string]bool, len(task.TaskIDs))
	p.taskOrder = append([]string(nil), task.TaskIDs...)

	for i, taskID := range task.TaskIDs {
		p.collectorMap[taskID] = NewResultCollector(task.RequestArgsFor(taskID, task.SearchNos[i]))
	}

	return nil
}

func (p *MultiItemsPipeline) ProcessItem(item spider.Item) (err error) {
	taskID := item.TaskID()

	defer func() {
		if r := recover(); r != nil {
			p.handleFatal(taskID, fmt.Sprintf("%v\n%s", r, debug.Stack()))
			err = nil
		}
	}()

	if item.Kind() == spider.KindExportFinal {
		for _, id := range p.taskOrder {
			p.emitTask(id, p.collectorMap[id])
		}

		return nil
	}

	if item.Kind() == spider.KindDebug {
		p.logger.Debug("debug item", zap.Any("info", item.(*spider.DebugItem).Info))

		return nil
	}

	// 不带task id的错误属于整个运行,记到每个还没出结果的任务上
	if item.Kind() == spider.KindExportError && taskID == "" {
		for _, id := range p.taskOrder {
			p.collectorMap[id].CollectErrorItem(item.(*spider.ExportErrorData))
		}

		return nil
	}

	collector, ok := p.collectorMap[taskID]
	if !ok {
		p.logger.Warn("item for unknown task", zap.String("task_id", taskID), zap.String("kind", item.Kind().String()))

		return fmt.Errorf("no collector for task %q", taskID)
	}

	switch item.Kind() {
	case spider.KindMbl:
		collector.CollectMblItem(item.(*spider.MblItem))
	case spider.KindVessel:
		collector.CollectVesselItem(item.(*spider.VesselItem))
	case spider.KindContainer:
		collector.CollectContainerItem(item.(*spider.ContainerItem))
	case spider.KindContainerStatus:
		collector.CollectContainerStatusItem(item.(*spider.ContainerStatusItem))
	case spider.KindRail:
		collector.CollectRailItem(item.(*spider.RailItem))
	case spider.KindDataNotFound:
		collector.CollectNotFoundItem(item.(*spider.DataNotFoundItem))
	case spider.KindEnd:
		collector.SetIsEnd()
	case spider.KindExportError:
		collector.CollectErrorItem(item.(*spider.ExportErrorData))
	default:
		p.handleFatal(taskID, fmt.Sprintf("unknown item kind: %s", item.Kind()))
	}

	return nil
}

// 单个任务的崩溃短路成该任务的FATAL payload,兄弟任务不受影响
func (p *MultiItemsPipeline) handleFatal(taskID, detail string) {
	p.logger.Error("item processing failed",
		zap.String("task_id", taskID),
		zap.String("detail", detail),
	)

	collector, ok := p.collectorMap[taskID]
	if !ok {
		p.logger.Warn("fatal on unknown task, payload dropped", zap.String("task_id", taskID))

		return
	}

	errItem := &spider.ExportErrorData{Task: taskID, Status: spider.StatusFatal, Detail: detail}
	emitted := p.emitted[taskID]
	sendResultBack(&p.options, taskID, p.task.Name, collector.BuildErrorData(errItem), &emitted)
	p.emitted[taskID] = emitted
}

func (p *MultiItemsPipeline) emitTask(taskID string, collector *ResultCollector) {
	result := resolveResult(taskID, collector)
	emitted := p.emitted[taskID]
	sendResultBack(&p.options, taskID, p.task.Name, result, &emitted)
	p.emitted[taskID] = emitted
}

// 收尾时按固定优先级出结果: error > not-found > did-not-end > data
// 没收到数据也必须有结论,归为not-found
func resolveResult(taskID string, collector *ResultCollector) map[string]interface{} {
	switch {
	case collector.HasError():
		return collector.GetErrorItem()
	case collector.HasNotFound():
		return collector.GetNotFoundItem()
	case !collector.IsEnd():
		return collector.BuildErrorData(spider.NewDidNotEndError(taskID).BuildErrorData())
	}

	if result := collector.BuildFinalData(); result != nil {
		return result
	}

	notFound := &spider.DataNotFoundItem{Task: taskID}
	collector.CollectNotFoundItem(notFound)

	return collector.GetNotFoundItem()
}

// 每个任务一生恰好送出一个终端payload
func sendResultBack(opts *options, taskID, spiderName string, result map[string]interface{}, emitted *bool) {
	if *emitted {
		opts.logger.Warn("task already emitted, payload dropped", zap.String("task_id", taskID))

		return
	}
	*emitted = true

	status, _ := result["status"].(string)

	if opts.storage != nil {
		err := opts.storage.Save(&TaskResult{
			TaskID:  taskID,
			Spider:  spiderName,
			Status:  status,
			Payload: result,
		})
		if err != nil {
			opts.logger.Error("archive result failed", zap.String("task_id", taskID), zap.Error(err))
		}
	}

	if opts.sink == nil {
		opts.logger.Info("no result sink, payload dropped",
			zap.String("task_id", taskID),
			zap.String("status", status),
		)

		return
	}

	statusCode, text, err := opts.sink.SendProviderResultBack(taskID, opts.providerCode, result)
	if err != nil {
		opts.logger.Error("send result back failed", zap.String("task_id", taskID), zap.Error(err))

		return
	}

	opts.logger.Info("result sent back",
		zap.String("task_id", taskID),
		zap.String("status", status),
		zap.Int("status_code", statusCode),
		zap.String("text", text),
	)
}
