package edi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_SendProviderResultBack(t *testing.T) {
	var gotSender, gotAuth string
	var gotForm map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSender = r.Header.Get("HEDI-SENDER")
		gotAuth = r.Header.Get("HEDI-AUTHORIZATION")
		assert.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"provider_code": r.PostFormValue("provider_code"),
			"task_id":       r.PostFormValue("task_id"),
			"result_data":   r.PostFormValue("result_data"),
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	client := NewClientService(srv.URL, "crawler", "token-123", "")
	code, body, err := client.SendProviderResultBack("task-1", "cloud_api", map[string]interface{}{
		"status":  "DATA",
		"mbl_nos": []string{"MBL001"},
	})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, `{"status":"ok"}`, body)

	assert.Equal(t, "crawler", gotSender)
	assert.Equal(t, "AuthToken token-123", gotAuth)
	assert.Equal(t, "cloud_api", gotForm["provider_code"])
	assert.Equal(t, "task-1", gotForm["task_id"])

	var envelope map[string]interface{}
	assert.NoError(t, json.Unmarshal([]byte(gotForm["result_data"]), &envelope))
	assert.Equal(t, "task-1", envelope["task_id"])
	assert.Equal(t, "cloud_api", envelope["spider"])
	items, ok := envelope["items"].([]interface{})
	assert.True(t, ok)
	assert.Len(t, items, 1)
}

func Test_GetActiveTasksBySCACCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ONEY", r.URL.Query().Get("scac_code"))
		w.Write([]byte(`{"rows":[{"task_id":1,"mbl_no":"MBL001"},{"task_id":2,"mbl_no":"MBL002"}]}`))
	}))
	defer srv.Close()

	client := NewClientService(srv.URL, "crawler", "token-123", "")
	rows, err := client.GetActiveTasksBySCACCode("ONEY")
	assert.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, "MBL001", rows[0]["mbl_no"])
}
