package engine

import (
	"fmt"

	"github.com/TaikerLiang/shipment-crawler/pipeline"
	"github.com/TaikerLiang/shipment-crawler/spider"
	"go.uber.org/zap"
)

// CrawlEngine 驱动一次爬虫运行:收响应,找规则,发后续请求
// 同一条任务链内严格因果有序,任务链之间不保证顺序
type CrawlEngine struct {
	options

	task        *spider.Task
	pipeline    pipeline.Pipeline
	ruleManager *spider.RuleManager

	requestCh chan *spider.Request
	workerCh  chan *spider.Request
	out       chan fetchResult
	done      chan struct{}

	pending    int
	retryCount int
}

type fetchResult struct {
	req  *spider.Request
	resp *spider.Response
	err  error
}

func NewCrawlEngine(task *spider.Task, p pipeline.Pipeline, opts ...Option) (*CrawlEngine, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	if task.Fetcher == nil {
		return nil, fmt.Errorf("task %q has no fetcher", task.Name)
	}

	rm, err := spider.NewRuleManager(task.Rule.Trunk...)
	if err != nil {
		return nil, err
	}

	return &CrawlEngine{
		options:     options,
		task:        task,
		pipeline:    p,
		ruleManager: rm,
		requestCh:   make(chan *spider.Request),
		workerCh:    make(chan *spider.Request),
		out:         make(chan fetchResult),
		done:        make(chan struct{}),
	}, nil
}

// Run 走完整个运行:种子请求,排空所有任务链,触发收尾
// 返回error只发生在接线错误上,正常的任务失败都化成payload
func (e *CrawlEngine) Run() error {
	if err := e.pipeline.OpenSpider(e.task); err != nil {
		return err
	}

	seeds, err := e.task.Rule.Root(e.task)
	if err != nil {
		return fmt.Errorf("build seed requests failed:%w", err)
	}

	go e.schedule()
	for i := 0; i < e.WorkCount; i++ {
		go e.createWork()
	}

	for _, option := range seeds {
		if err := e.scheduleOption(option); err != nil {
			close(e.done)

			return err
		}
	}

	err = e.handleResult()
	close(e.done)
	if err != nil {
		return err
	}

	// 队列排空且没有在途请求,整次运行收尾
	return e.pipeline.ProcessItem(&spider.ExportFinalData{})
}

// 调度协程,维持未分派请求的队列
func (e *CrawlEngine) schedule() {
	var reqQueue []*spider.Request

	for {
		var req *spider.Request
		var ch chan *spider.Request

		if len(reqQueue) > 0 {
			req = reqQueue[0]
			ch = e.workerCh
		}

		select {
		case <-e.done:
			return
		case r := <-e.requestCh:
			reqQueue = append(reqQueue, r)
		case ch <- req:
			reqQueue = reqQueue[1:]
		}
	}
}

func (e *CrawlEngine) createWork() {
	for {
		var req *spider.Request

		select {
		case <-e.done:
			return
		case req = <-e.workerCh:
		}

		resp, err := e.task.Fetcher.Do(req)

		select {
		case <-e.done:
			return
		case e.out <- fetchResult{req: req, resp: resp, err: err}:
		}
	}
}

// 唯一触碰pipeline与pending计数的协程,collector因此无须加锁
func (e *CrawlEngine) handleResult() error {
	for e.pending > 0 {
		result := <-e.out
		e.pending--

		if result.err != nil {
			e.Logger.Error("fetch failed",
				zap.String("url", result.req.Option.URL),
				zap.Error(result.err),
			)
			e.processItem(&spider.ExportErrorData{
				Task:   metaTaskID(result.req.Meta),
				Status: spider.StatusError,
				Detail: fmt.Sprintf("<fetch-error> %s", result.err),
				Fields: map[string]interface{}{},
			})

			continue
		}

		if err := e.onResponse(result.resp); err != nil {
			return err
		}
	}

	return nil
}

func (e *CrawlEngine) onResponse(resp *spider.Response) error {
	rule, err := e.ruleManager.GetRuleByResponse(resp)
	if err != nil {
		// 接线错误,说明某条规则的builder有bug,直接中止
		return err
	}

	saveName := rule.Name()
	if namer, ok := rule.(spider.SaveNamer); ok {
		saveName = namer.SaveName(resp)
	}
	if err := e.task.Saver.Save(saveName, resp.Text()); err != nil {
		e.Logger.Warn("save response failed", zap.String("rule", rule.Name()), zap.Error(err))
	}

	outputs, err := rule.Handle(resp)
	if err != nil {
		// 规则认定的致命错误,短路成该任务的错误payload
		e.Logger.Error("rule handle failed", zap.String("rule", rule.Name()), zap.Error(err))
		e.processItem(spider.ErrorData(err))

		return nil
	}

	for _, output := range outputs {
		switch v := output.(type) {
		case *spider.RequestOption:
			if e.startsNewRound(v.RuleName) {
				e.retryCount = 0
			}
			if err := e.scheduleOption(v); err != nil {
				return err
			}
		case spider.Restart:
			e.handleRestart(v)
		case spider.Warning:
			e.Logger.Warn("rule warning", zap.String("rule", rule.Name()), zap.String("reason", v.Reason))
		case spider.Item:
			e.processItem(v)
		default:
			return spider.NewRoutingError(fmt.Sprintf("unknown rule output %T", output))
		}
	}

	return nil
}

// 轮次边界由规则自己声明,重试预算按轮计
func (e *CrawlEngine) startsNewRound(ruleName string) bool {
	rule, ok := e.ruleManager.GetRuleByName(ruleName)
	if !ok {
		return false
	}

	resetter, ok := rule.(spider.RoundResetter)

	return ok && resetter.ResetsRound()
}

func (e *CrawlEngine) scheduleOption(option *spider.RequestOption) error {
	if e.task.Proxy != nil {
		option = e.task.Proxy.ApplyProxyToRequestOption(option)
	}

	req, err := e.ruleManager.BuildRequestBy(option, e.task)
	if err != nil {
		return err
	}

	e.pending++
	e.requestCh <- req

	return nil
}

// Restart信号:换代理/会话后从头再来,有重试上限
func (e *CrawlEngine) handleRestart(sig spider.Restart) {
	if e.retryCount >= e.task.MaxRetry {
		e.Logger.Warn("restart limit reached", zap.String("reason", sig.Reason))
		e.emitErrorForTasks(sig, "Data was not found")

		return
	}

	e.retryCount++
	e.Logger.Warn("restart with new session",
		zap.String("reason", sig.Reason),
		zap.Int("retry", e.retryCount),
	)

	if e.task.Proxy != nil {
		if err := e.task.Proxy.RenewProxy(); err != nil {
			e.emitErrorForTasks(sig, "proxy max retry error")

			return
		}
	}

	if e.task.Rule.OnRestart == nil {
		e.Logger.Error("task has no restart entry", zap.String("spider", e.task.Name))
		e.emitErrorForTasks(sig, sig.Reason)

		return
	}

	option, err := e.task.Rule.OnRestart(e.task, sig)
	if err != nil {
		e.Logger.Error("build restart request failed", zap.Error(err))
		e.emitErrorForTasks(sig, err.Error())

		return
	}

	if err := e.scheduleOption(option); err != nil {
		e.Logger.Error("schedule restart request failed", zap.Error(err))
	}
}

func (e *CrawlEngine) emitErrorForTasks(sig spider.Restart, detail string) {
	for _, taskID := range sig.TaskIDs {
		e.processItem(&spider.ExportErrorData{
			Task:   taskID,
			Status: spider.StatusError,
			Detail: detail,
			Fields: map[string]interface{}{},
		})
	}
}

func (e *CrawlEngine) processItem(item spider.Item) {
	if err := e.pipeline.ProcessItem(item); err != nil {
		e.Logger.Warn("process item failed", zap.String("kind", item.Kind().String()), zap.Error(err))
	}
}

func metaTaskID(meta map[string]interface{}) string {
	id, _ := meta["task_id"].(string)

	return id
}
