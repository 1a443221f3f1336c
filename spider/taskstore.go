package spider

import (
	"fmt"

	"github.com/robertkrimen/otto"
)

// TaskStore is a global instance
var (
	TaskStore = &taskStore{
		Hash: map[string]*Task{},
	}
)

type taskStore struct {
	List []*Task
	Hash map[string]*Task
}

func (c *taskStore) Add(task *Task) {
	c.Hash[task.Name] = task
	c.List = append(c.List, task)
}

func (c *taskStore) Get(name string) (*Task, bool) {
	t, ok := c.Hash[name]

	return t, ok
}

// 用JS脚本声明的站点流程,便于不改二进制快速接新站
type (
	TaskModle struct {
		Name    string      `json:"name"`
		BaseURL string      `json:"base_url"`
		Root    string      `json:"root_script"`
		Rules   []RuleModle `json:"rule"`
	}
	RuleModle struct {
		Name         string `json:"name"`
		HandleScript string `json:"handle_script"`
	}
)

func (c *taskStore) AddJSTask(m *TaskModle) {
	task := &Task{}
	task.Name = m.Name
	task.BaseURL = m.BaseURL

	task.Rule.Root = func(t *Task) ([]*RequestOption, error) {
		vm := otto.New()
		if err := vm.Set("task", map[string]interface{}{
			"name":       t.Name,
			"base_url":   t.BaseURL,
			"task_ids":   t.TaskIDs,
			"search_nos": t.SearchNos,
		}); err != nil {
			return nil, err
		}

		v, err := vm.Eval(m.Root)
		if err != nil {
			return nil, err
		}

		e, err := v.Export()
		if err != nil {
			return nil, err
		}

		raw, ok := e.([]map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("root script of %q returned %T", m.Name, e)
		}

		options := make([]*RequestOption, 0, len(raw))
		for _, jopt := range raw {
			options = append(options, optionFromJS(jopt))
		}

		return options, nil
	}

	for _, r := range m.Rules {
		task.Rule.Trunk = append(task.Rule.Trunk, NewJSRule(r.Name, r.HandleScript))
	}

	c.Hash[task.Name] = task
	c.List = append(c.List, task)
}

// JSRule 脚本化的RoutingRule,脚本对resp求值,返回items与requests
type JSRule struct {
	name   string
	script string
}

func NewJSRule(name, script string) *JSRule {
	return &JSRule{name: name, script: script}
}

func (r *JSRule) Name() string {
	return r.name
}

func (r *JSRule) Handle(resp *Response) ([]RuleOutput, error) {
	vm := otto.New()

	err := vm.Set("resp", map[string]interface{}{
		"url":         resp.URL,
		"status_code": resp.StatusCode,
		"body":        resp.Text(),
		"meta":        resp.Meta,
	})
	if err != nil {
		return nil, err
	}

	v, err := vm.Eval(r.script)
	if err != nil {
		return nil, NewFormatError("", fmt.Sprintf("rule %q script failed: %s", r.name, err))
	}

	e, err := v.Export()
	if err != nil {
		return nil, err
	}

	result, ok := e.(map[string]interface{})
	if !ok {
		return nil, NewFormatError("", fmt.Sprintf("rule %q script returned %T", r.name, e))
	}

	var outputs []RuleOutput

	if items, ok := result["items"].([]map[string]interface{}); ok {
		for _, jitem := range items {
			item, err := itemFromJS(jitem)
			if err != nil {
				return nil, err
			}
			outputs = append(outputs, item)
		}
	}

	if requests, ok := result["requests"].([]map[string]interface{}); ok {
		for _, jopt := range requests {
			outputs = append(outputs, optionFromJS(jopt))
		}
	}

	return outputs, nil
}

func optionFromJS(jopt map[string]interface{}) *RequestOption {
	option := &RequestOption{}
	option.RuleName, _ = jopt["rule_name"].(string)
	option.Method, _ = jopt["method"].(string)
	option.URL, _ = jopt["url"].(string)

	if form, ok := jopt["form_data"].(map[string]interface{}); ok {
		option.FormData = make(map[string]string, len(form))
		for k, v := range form {
			option.FormData[k] = fmt.Sprint(v)
		}
	}

	if meta, ok := jopt["meta"].(map[string]interface{}); ok {
		option.Meta = meta
	}

	return option
}

func itemFromJS(jitem map[string]interface{}) (Item, error) {
	kind, _ := jitem["kind"].(string)
	taskID, _ := jitem["task_id"].(string)
	key, _ := jitem["key"].(string)
	fields, _ := jitem["fields"].(map[string]interface{})
	if fields == nil {
		fields = map[string]interface{}{}
	}

	switch kind {
	case "mbl":
		return &MblItem{Task: taskID, Fields: fields}, nil
	case "vessel":
		return &VesselItem{Task: taskID, VesselKey: key, Fields: fields}, nil
	case "container":
		return &ContainerItem{Task: taskID, ContainerKey: key, Fields: fields}, nil
	case "container_status":
		return &ContainerStatusItem{Task: taskID, ContainerKey: key, Fields: fields}, nil
	case "rail":
		return &RailItem{Task: taskID, ContainerKey: key, Fields: fields}, nil
	case "not_found":
		detail, _ := jitem["detail"].(string)

		return &DataNotFoundItem{Task: taskID, Detail: detail}, nil
	case "end":
		return &EndItem{Task: taskID}, nil
	case "error":
		detail, _ := jitem["detail"].(string)

		return &ExportErrorData{Task: taskID, Status: StatusError, Detail: detail, Fields: fields}, nil
	}

	return nil, fmt.Errorf("unknown js item kind %q", kind)
}
