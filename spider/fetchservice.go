package spider

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TaikerLiang/shipment-crawler/extensions"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type FetchType int

const (
	BaseFetchType FetchType = iota
	BrowserFetchType
)

// Fetcher 执行一个已经过校验的请求并带回响应
// meta原样从请求带到响应,路由标签靠它回流
type Fetcher interface {
	Do(req *Request) (*Response, error)
}

func NewFetchService(typ FetchType) Fetcher {
	switch typ {
	case BaseFetchType:
		return &baseFetch{}
	case BrowserFetchType:
		return &browserFetch{}
	default:
		return &browserFetch{}
	}
}

type baseFetch struct{}

func (*baseFetch) Do(req *Request) (*Response, error) {
	httpReq, err := buildHTTPRequest(req)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return buildResponse(req, resp)
}

type browserFetch struct{}

// 模拟浏览器访问
func (b *browserFetch) Do(req *Request) (*Response, error) {
	task := req.Task

	if task.Limit != nil {
		if err := task.Limit.Wait(context.Background()); err != nil {
			return nil, err
		}
	}

	// 随机休眠,模拟人类行为
	if task.WaitTime > 0 {
		sleeptime := rand.Int63n(task.WaitTime * 1000)
		time.Sleep(time.Duration(sleeptime) * time.Millisecond)
	}

	client := &http.Client{
		Timeout: task.Timeout,
	}

	// 代理地址由ProxyApplier写进meta,这里只负责接上
	if proxyURL := metaProxy(req.Meta); proxyURL != nil {
		client.Transport = &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		}
	}

	httpReq, err := buildHTTPRequest(req)
	if err != nil {
		return nil, err
	}

	if len(task.Cookie) > 0 && httpReq.Header.Get("Cookie") == "" {
		httpReq.Header.Set("Cookie", task.Cookie)
	}

	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", extensions.GenerateRandomUA())
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return buildResponse(req, resp)
}

func buildHTTPRequest(req *Request) (*http.Request, error) {
	option := req.Option

	var httpReq *http.Request
	var err error

	switch option.Method {
	case MethodGet:
		httpReq, err = http.NewRequest(http.MethodGet, option.URL, nil)
	case MethodDelete:
		httpReq, err = http.NewRequest(http.MethodDelete, option.URL, nil)
	case MethodPostForm:
		form := url.Values{}
		for k, v := range option.FormData {
			form.Set(k, v)
		}
		httpReq, err = http.NewRequest(http.MethodPost, option.URL, strings.NewReader(form.Encode()))
		if err == nil {
			httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	case MethodPostBody:
		httpReq, err = http.NewRequest(http.MethodPost, option.URL, bytes.NewReader(option.Body))
	case MethodPut:
		httpReq, err = http.NewRequest(http.MethodPut, option.URL, bytes.NewReader(option.Body))
	default:
		return nil, NewSuspiciousOperationError("", fmt.Sprintf("unexpected request method: `%s`", option.Method))
	}

	if err != nil {
		return nil, fmt.Errorf("build request failed:%w", err)
	}

	for k, v := range option.Headers {
		httpReq.Header.Set(k, v)
	}

	if (option.Method == MethodPostBody || option.Method == MethodPut) && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	for k, v := range option.Cookies {
		httpReq.AddCookie(&http.Cookie{Name: k, Value: v})
	}

	return httpReq, nil
}

func buildResponse(req *Request, resp *http.Response) (*Response, error) {
	bodyReader := bufio.NewReader(resp.Body)
	e := DeterminEncoding(bodyReader)
	utf8Reader := transform.NewReader(bodyReader, e.NewDecoder())

	body, err := ioutil.ReadAll(utf8Reader)
	if err != nil {
		return nil, err
	}

	return &Response{
		Req:        req,
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       body,
		Meta:       req.Meta,
	}, nil
}

func metaProxy(meta map[string]interface{}) *url.URL {
	raw, ok := meta["proxy"].(string)
	if !ok || raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		zap.L().Warn("invalid proxy url in meta", zap.String("proxy", raw), zap.Error(err))

		return nil
	}

	return u
}

func DeterminEncoding(r *bufio.Reader) encoding.Encoding {
	peek, err := r.Peek(1024)

	if err != nil {
		return unicode.UTF8
	}

	e, _, _ := charset.DetermineEncoding(peek, "")

	return e
}
