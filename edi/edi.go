package edi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"
)

// ClientService 回传结果给EDI引擎的客户端
// 重试/超时策略都在这一层,core不关心
type ClientService struct {
	url      string
	ediUser  string
	ediToken string
	host     string
	client   *http.Client
}

func NewClientService(serviceURL, ediUser, ediToken, host string) *ClientService {
	return &ClientService{
		url:      serviceURL,
		ediUser:  ediUser,
		ediToken: ediToken,
		host:     host,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendProviderResultBack 回传单个任务的终端payload
func (s *ClientService) SendProviderResultBack(taskID string, providerCode string, itemResult map[string]interface{}) (int, string, error) {
	form, err := s.buildProviderResult(taskID, providerCode, itemResult)
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.applyHeader(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", err
	}

	return resp.StatusCode, string(body), nil
}

// GetActiveTasksBySCACCode 拉取某承运人代码下的待跑任务
func (s *ClientService) GetActiveTasksBySCACCode(scacCode string) ([]map[string]interface{}, error) {
	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s?scac_code=%s", s.url, url.QueryEscape(scacCode)), nil)
	if err != nil {
		return nil, err
	}
	s.applyHeader(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var content struct {
		Rows []map[string]interface{} `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&content); err != nil {
		return nil, err
	}

	return content.Rows, nil
}

func (s *ClientService) applyHeader(req *http.Request) {
	req.Header.Set("HEDI-SENDER", s.ediUser)
	req.Header.Set("HEDI-AUTHORIZATION", fmt.Sprintf("AuthToken %s", s.ediToken))
	if s.host != "" {
		req.Host = s.host
	}
}

func (s *ClientService) buildProviderResult(taskID, providerCode string, itemResult map[string]interface{}) (url.Values, error) {
	resultData, err := json.Marshal(map[string]interface{}{
		"task_id":      taskID,
		"job_key":      "-",
		"spider":       providerCode,
		"close_reason": "",
		"items":        []map[string]interface{}{itemResult},
	})
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("provider_code", providerCode)
	form.Set("task_id", taskID)
	form.Set("result_data", string(resultData))

	return form, nil
}
