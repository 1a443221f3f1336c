package spider

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyRuleName = errors.New("empty rule name")
	ErrEmptyURL      = errors.New("empty url")
)

// TrackingError 是带类别标签的任务级错误
// FATAL表示解析假设被破坏等系统性问题,ERROR表示站点侧可解释的失败
type TrackingError struct {
	Task     string
	SearchNo string
	Status   string
	Tag      string
	Reason   string
}

func (e *TrackingError) Error() string {
	if e.Reason == "" {
		return e.Tag
	}

	return fmt.Sprintf("%s %s", e.Tag, e.Reason)
}

// BuildErrorData 把错误转成可直接送往pipeline的item
func (e *TrackingError) BuildErrorData() *ExportErrorData {
	fields := map[string]interface{}{}
	if e.SearchNo != "" {
		fields["search_no"] = e.SearchNo
	}

	return &ExportErrorData{
		Task:   e.Task,
		Status: e.Status,
		Detail: e.Error(),
		Fields: fields,
	}
}

// 页面或JSON结构不符合解析假设
func NewFormatError(taskID, reason string) *TrackingError {
	return &TrackingError{Task: taskID, Status: StatusFatal, Tag: "<format-error>", Reason: reason}
}

func NewStatusCodeError(taskID, reason string) *TrackingError {
	return &TrackingError{Task: taskID, Status: StatusFatal, Tag: "<status-code-error>", Reason: reason}
}

// 接线错误,正常运行中不应出现
func NewRoutingError(reason string) *TrackingError {
	return &TrackingError{Status: StatusFatal, Tag: "<routing-error>", Reason: reason}
}

func NewSuspiciousOperationError(taskID, reason string) *TrackingError {
	return &TrackingError{Task: taskID, Status: StatusFatal, Tag: "<suspicious-operation>", Reason: reason}
}

func NewProxyMaxRetryError(taskID string) *TrackingError {
	return &TrackingError{Task: taskID, Status: StatusError, Tag: "<proxy-max-retry-error>"}
}

func NewMaxRetryError(taskID, reason string) *TrackingError {
	return &TrackingError{Task: taskID, Status: StatusError, Tag: "<max-retry-error>", Reason: reason}
}

// 任务链结束时没有收到EndItem
func NewDidNotEndError(taskID string) *TrackingError {
	return &TrackingError{Task: taskID, Status: StatusError, Tag: "<Task did not end>"}
}

func NewTimeOutError(taskID, url string) *TrackingError {
	reason := ""
	if url != "" {
		reason = fmt.Sprintf("url='%s'", url)
	}

	return &TrackingError{Task: taskID, Status: StatusError, Tag: "<website-timeout-error>", Reason: reason}
}

func NewAccessDeniedError(taskID string) *TrackingError {
	return &TrackingError{Task: taskID, Status: StatusError, Tag: "<access-denied>"}
}

// ErrorData 把任意error归一成ExportErrorData,未分类的按FATAL处理
func ErrorData(err error) *ExportErrorData {
	var te *TrackingError
	if errors.As(err, &te) {
		return te.BuildErrorData()
	}

	return &ExportErrorData{
		Status: StatusFatal,
		Detail: err.Error(),
		Fields: map[string]interface{}{},
	}
}
