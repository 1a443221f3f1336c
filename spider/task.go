package spider

import (
	"fmt"
	"strings"
)

// RuleTree 一个站点的完整交互流程
// Root给出每轮起始请求,Trunk按插入顺序持有全部规则
type RuleTree struct {
	Root      func(task *Task) ([]*RequestOption, error)
	Trunk     []RoutingRule
	OnRestart func(task *Task, sig Restart) (*RequestOption, error)
}

// ProxyApplier 在请求发出前给option附加代理/会话信息
type ProxyApplier interface {
	RenewProxy() error
	ApplyProxyToRequestOption(option *RequestOption) *RequestOption
}

// Task 一次爬虫运行:一个站点加一批追踪任务
// 每个task id对应一条独立推进的请求链
type Task struct {
	Options

	TaskIDs    []string
	SearchNos  []string
	SearchType string
	Save       bool

	Rule RuleTree
}

func NewTask(opts ...Option) *Task {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	t := &Task{}
	t.Options = options

	return t
}

// InitSearch 填入去重后的task id与查询号,两边必须一一对应
func (t *Task) InitSearch(searchType string, taskIDs, searchNos []string) error {
	taskIDs = removeDuplicates(taskIDs)
	searchNos = removeDuplicates(searchNos)

	if len(taskIDs) != len(searchNos) {
		return fmt.Errorf("task ids(%d) and search nos(%d) length mismatch", len(taskIDs), len(searchNos))
	}

	t.SearchType = searchType
	t.TaskIDs = taskIDs
	t.SearchNos = searchNos

	return nil
}

// RequestArgs 整次运行的请求参数,单任务pipeline直接使用
func (t *Task) RequestArgs() map[string]interface{} {
	args := map[string]interface{}{
		"task_id": strings.Join(t.TaskIDs, ","),
		"save":    t.Save,
	}
	args[searchNoField(t.SearchType)] = strings.Join(t.SearchNos, ",")

	return args
}

// RequestArgsFor 单个task id的请求参数,多任务pipeline按任务使用
func (t *Task) RequestArgsFor(taskID, searchNo string) map[string]interface{} {
	args := map[string]interface{}{
		"task_id": taskID,
		"save":    t.Save,
	}
	args[searchNoField(t.SearchType)] = searchNo

	return args
}

func searchNoField(searchType string) string {
	if searchType == SearchTypeBooking {
		return "booking_no"
	}

	return "mbl_no"
}

func removeDuplicates(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))

	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
