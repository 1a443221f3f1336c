package spider

import "fmt"

// 路由标签在meta中的保留键
const MetaRoutingRuleName = "ROUTING_RULE_NAME"

// RoutingRule 对应站点交互流程中的一个环节
// Handle返回的序列有限且有序,error只用于真正致命的情况(页面结构变更等)
type RoutingRule interface {
	Name() string
	Handle(resp *Response) ([]RuleOutput, error)
}

// SaveNamer 可选实现,决定调试抓包落盘的文件名
type SaveNamer interface {
	SaveName(resp *Response) string
}

// RoundResetter 可选实现,标记一轮查询的边界
// 引擎在轮次边界清零Restart重试计数
type RoundResetter interface {
	ResetsRound() bool
}

// RuleOutput 是Handle产出的三选一: Item、*RequestOption或Signal
type RuleOutput interface {
	ruleOutput()
}

func (*RequestOption) ruleOutput() {}

// Signal 是规则抛回给驱动层的控制信号
type Signal interface {
	RuleOutput
	signal()
}

// Restart 要求换session/代理后从头再来
type Restart struct {
	SearchNos []string
	TaskIDs   []string
	Reason    string
}

// Warning 只记日志,不影响任务
type Warning struct {
	Reason string
}

func (Restart) ruleOutput() {}
func (Restart) signal()     {}
func (Warning) ruleOutput() {}
func (Warning) signal()     {}

// RuleManager 持有一个爬虫的全部规则,按插入顺序保存
// 负责把响应派发回所属规则,以及统一校验并构造真正的请求
type RuleManager struct {
	names   []string
	ruleMap map[string]RoutingRule
}

func NewRuleManager(rules ...RoutingRule) (*RuleManager, error) {
	m := &RuleManager{
		ruleMap: make(map[string]RoutingRule, len(rules)),
	}

	for _, r := range rules {
		if _, ok := m.ruleMap[r.Name()]; ok {
			return nil, fmt.Errorf("duplicated rule name: %q", r.Name())
		}
		m.names = append(m.names, r.Name())
		m.ruleMap[r.Name()] = r
	}

	return m, nil
}

// GetRuleByResponse 读出响应meta中的路由标签并找回规则
// 找不到说明某条规则的builder写错了,属于致命的接线错误
func (m *RuleManager) GetRuleByResponse(resp *Response) (RoutingRule, error) {
	name, ok := resp.Meta[MetaRoutingRuleName].(string)
	if !ok {
		return nil, NewRoutingError("response meta has no routing rule name")
	}

	rule, ok := m.ruleMap[name]
	if !ok {
		return nil, NewRoutingError(fmt.Sprintf("no rule matches name %q", name))
	}

	return rule, nil
}

func (m *RuleManager) GetRuleByName(name string) (RoutingRule, bool) {
	rule, ok := m.ruleMap[name]

	return rule, ok
}

func (m *RuleManager) RuleNames() []string {
	return append([]string(nil), m.names...)
}

// BuildRequestBy 是整个爬虫唯一的请求校验收口
// 把rule_name并入meta,保证响应能原路回到所属规则
func (m *RuleManager) BuildRequestBy(option *RequestOption, task *Task) (*Request, error) {
	if err := option.Check(); err != nil {
		return nil, err
	}

	if _, ok := m.ruleMap[option.RuleName]; !ok {
		return nil, NewRoutingError(fmt.Sprintf("option built for unknown rule %q", option.RuleName))
	}

	meta := make(map[string]interface{}, len(option.Meta)+1)
	for k, v := range option.Meta {
		meta[k] = v
	}
	meta[MetaRoutingRuleName] = option.RuleName

	return &Request{
		Task:   task,
		Option: option,
		Meta:   meta,
	}, nil
}

// RequestOptionQueue 供需要串行访问目标站的流程排队用
type RequestOptionQueue struct {
	queue []*RequestOption
}

func (q *RequestOptionQueue) IsEmpty() bool {
	return len(q.queue) == 0
}

func (q *RequestOptionQueue) AddRequest(option *RequestOption) {
	q.queue = append(q.queue, option)
}

func (q *RequestOptionQueue) AddHighPriorityRequest(option *RequestOption) {
	q.queue = append([]*RequestOption{option}, q.queue...)
}

func (q *RequestOptionQueue) NextRequest() *RequestOption {
	if len(q.queue) == 0 {
		return nil
	}

	next := q.queue[0]
	q.queue = q.queue[1:]

	return next
}
