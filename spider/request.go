package spider

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// 请求方法,必须与RequestOption中填充的字段配套
const (
	MethodGet      = "GET"
	MethodPostForm = "POST_FORM"
	MethodPostBody = "POST_BODY"
	MethodPut      = "PUT"
	MethodDelete   = "DELETE"
)

// RequestOption 描述一次待发出的请求,由规则的builder构造,构造后不再修改
// RuleName标识响应应当回到哪条规则
type RequestOption struct {
	RuleName string
	Method   string
	URL      string
	Headers  map[string]string
	Cookies  map[string]string
	FormData map[string]string
	Body     []byte
	Meta     map[string]interface{}
}

// 方法与字段不匹配属于规则编写错误,尽早失败
func (o *RequestOption) Check() error {
	if o.RuleName == "" {
		return fmt.Errorf("request option: %w", ErrEmptyRuleName)
	}

	if o.URL == "" {
		return fmt.Errorf("request option %q: %w", o.RuleName, ErrEmptyURL)
	}

	switch o.Method {
	case MethodGet, MethodDelete:
		if len(o.FormData) > 0 || len(o.Body) > 0 {
			return fmt.Errorf("request option %q: method %s carries a payload", o.RuleName, o.Method)
		}
	case MethodPostForm:
		if len(o.FormData) == 0 {
			return fmt.Errorf("request option %q: POST_FORM without form data", o.RuleName)
		}
	case MethodPostBody, MethodPut:
		if len(o.Body) == 0 {
			return fmt.Errorf("request option %q: %s without body", o.RuleName, o.Method)
		}
	default:
		return NewSuspiciousOperationError("", fmt.Sprintf("unexpected request method: `%s`", o.Method))
	}

	return nil
}

// CopyExtendedBy 拷贝并追加headers与meta,原option保持不变
func (o *RequestOption) CopyExtendedBy(headers map[string]string, meta map[string]interface{}) *RequestOption {
	clone := &RequestOption{
		RuleName: o.RuleName,
		Method:   o.Method,
		URL:      o.URL,
		Headers:  make(map[string]string, len(o.Headers)+len(headers)),
		Cookies:  make(map[string]string, len(o.Cookies)),
		FormData: make(map[string]string, len(o.FormData)),
		Meta:     make(map[string]interface{}, len(o.Meta)+len(meta)),
	}

	for k, v := range o.Headers {
		clone.Headers[k] = v
	}
	for k, v := range headers {
		clone.Headers[k] = v
	}
	for k, v := range o.Cookies {
		clone.Cookies[k] = v
	}
	for k, v := range o.FormData {
		clone.FormData[k] = v
	}
	if len(o.Body) > 0 {
		clone.Body = append([]byte(nil), o.Body...)
	}
	for k, v := range o.Meta {
		clone.Meta[k] = v
	}
	for k, v := range meta {
		clone.Meta[k] = v
	}

	return clone
}

// Request 是经过RuleManager校验后可以真正发出的请求
// Meta中已并入路由标签,响应原样带回
type Request struct {
	Task   *Task
	Option *RequestOption
	Meta   map[string]interface{}
}

// 请求的唯一识别码
func (r *Request) Unique() string {
	block := md5.Sum([]byte(r.Option.URL + r.Option.Method + r.Option.RuleName))

	return hex.EncodeToString(block[:])
}
