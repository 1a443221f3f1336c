package spider

import (
	"bytes"
	"encoding/json"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// Response 由fetcher构造,Meta从请求端原样带回
type Response struct {
	Req        *Request
	URL        string
	StatusCode int
	Body       []byte
	Meta       map[string]interface{}
}

func (r *Response) Text() string {
	return string(r.Body)
}

// MetaString 读meta中的字符串值,缺失时返回空串
func (r *Response) MetaString(key string) string {
	s, _ := r.Meta[key].(string)

	return s
}

func (r *Response) MetaStrings(key string) []string {
	switch v := r.Meta[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}

		return out
	}

	return nil
}

// Document 解析成goquery文档,供CSS选择器取数
func (r *Response) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
}

// HTMLNode 解析成html节点树,供XPath取数
func (r *Response) HTMLNode() (*html.Node, error) {
	return htmlquery.Parse(bytes.NewReader(r.Body))
}

func (r *Response) DecodeJSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}
