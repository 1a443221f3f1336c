package oney

import (
	"fmt"
	"strings"
	"testing"

	"github.com/TaikerLiang/shipment-crawler/spider"
	"github.com/stretchr/testify/assert"
)

func firstTierResponse(body string, searchNos, taskIDs []string) *spider.Response {
	return &spider.Response{
		URL:        "https://ecomm.one-line.com/ecom/CUP_HOM_3301GS.do",
		StatusCode: 200,
		Body:       []byte(body),
		Meta: map[string]interface{}{
			"base_url":    "https://ecomm.one-line.com/ecom/CUP_HOM_3301GS.do",
			"search_type": spider.SearchTypeMbl,
			"search_nos":  searchNos,
			"task_ids":    taskIDs,
		},
	}
}

func Test_FirstTierHandle(t *testing.T) {
	body := `{"list": [
		{"blNo": "ONEYMBL001", "cntrNo": "CNTR0000001", "bkgNo": "BKG001", "copNo": "COP001", "placeNm": "LOS ANGELES, CA"},
		{"blNo": "ONEYMBL001", "cntrNo": "CNTR0000002", "bkgNo": "BKG001", "copNo": "COP002", "placeNm": "LOS ANGELES, CA"}
	]}`
	resp := firstTierResponse(body, []string{"ONEYMBL001", "ONEYMBL404"}, []string{"1", "2"})

	rule := &FirstTierRule{}
	outputs, err := rule.Handle(resp)
	assert.NoError(t, err)

	var mbls []*spider.MblItem
	var notFounds []*spider.DataNotFoundItem
	var containers []*spider.ContainerItem
	var options []*spider.RequestOption
	for _, output := range outputs {
		switch v := output.(type) {
		case *spider.MblItem:
			mbls = append(mbls, v)
		case *spider.DataNotFoundItem:
			notFounds = append(notFounds, v)
		case *spider.ContainerItem:
			containers = append(containers, v)
		case *spider.RequestOption:
			options = append(options, v)
		}
	}

	assert.Len(t, mbls, 1)
	assert.Equal(t, "1", mbls[0].Task)
	assert.Equal(t, "ONEYMBL001", mbls[0].Fields["mbl_no"])
	assert.Equal(t, map[string]interface{}{"name": "LOS ANGELES, CA"}, mbls[0].Fields["final_dest"])

	assert.Len(t, notFounds, 1)
	assert.Equal(t, "2", notFounds[0].Task)
	assert.Equal(t, "ONEYMBL404", notFounds[0].SearchNo)

	assert.Len(t, containers, 2)
	assert.Equal(t, "CNTR0000001", containers[0].ContainerKey)
	assert.Equal(t, "CNTR0000002", containers[1].ContainerKey)

	// 每个箱跟3个后续请求,加一个VESSEL与收尾的NEXT_ROUND
	ruleNames := map[string]int{}
	for _, option := range options {
		ruleNames[option.RuleName]++
	}
	assert.Equal(t, map[string]int{
		"VESSEL":           1,
		"CONTAINER_STATUS": 2,
		"RELEASE_STATUS":   2,
		"RAIL_INFORMATION": 2,
		"NEXT_ROUND":       1,
	}, ruleNames)
}

func Test_FirstTierSystemError(t *testing.T) {
	resp := firstTierResponse(`<html>System error</html>`, []string{"ONEYMBL001"}, []string{"1"})

	outputs, err := (&FirstTierRule{}).Handle(resp)
	assert.NoError(t, err)
	assert.Len(t, outputs, 1)

	sig, ok := outputs[0].(spider.Restart)
	assert.True(t, ok)
	assert.Equal(t, "JSON response invalid", sig.Reason)
	assert.Equal(t, []string{"1"}, sig.TaskIDs)
}

func Test_FirstTierIPBlock(t *testing.T) {
	// list键缺失,不是空列表
	resp := firstTierResponse(`{"count": 0}`, []string{"ONEYMBL001"}, []string{"1"})

	outputs, err := (&FirstTierRule{}).Handle(resp)
	assert.NoError(t, err)
	assert.Len(t, outputs, 1)

	sig, ok := outputs[0].(spider.Restart)
	assert.True(t, ok)
	assert.Equal(t, "IP block", sig.Reason)
}

func Test_VesselHandle(t *testing.T) {
	body := `{"list": [
		{"vslEngNm": "ONE COLUMBA", "skdVoyNo": "001", "skdDirCd": "E",
		 "polNm": "PUSAN", "podNm": "LOS ANGELES",
		 "etd": "2021-01-01 10:00", "etdFlag": "A", "eta": "2021-01-15 08:00", "etaFlag": "C"}
	]}`
	resp := &spider.Response{Body: []byte(body), Meta: map[string]interface{}{"task_id": "1"}}

	outputs, err := (&VesselRule{}).Handle(resp)
	assert.NoError(t, err)
	assert.Len(t, outputs, 1)

	vessel := outputs[0].(*spider.VesselItem)
	assert.Equal(t, "ONE COLUMBA", vessel.VesselKey)
	assert.Equal(t, "001E", vessel.Fields["voyage"])
	// A是实际时间,C是预计时间
	assert.Equal(t, "2021-01-01 10:00", vessel.Fields["atd"])
	assert.Nil(t, vessel.Fields["etd"])
	assert.Equal(t, "2021-01-15 08:00", vessel.Fields["eta"])
	assert.Nil(t, vessel.Fields["ata"])
}

func Test_ContainerStatusHandle(t *testing.T) {
	body := `{"list": [
		{"statusNm": "Discharged from<br>vessel", "eventDt": "2021-01-15 09:00", "placeNm": "LOS ANGELES, CA", "actTpCd": "A"},
		{"statusNm": "Empty returned", "eventDt": "", "placeNm": "LOS ANGELES, CA", "actTpCd": "E"}
	]}`
	resp := &spider.Response{Body: []byte(body), Meta: map[string]interface{}{
		"task_id": "1", "container_key": "CNTR0000001",
	}}

	outputs, err := (&ContainerStatusRule{}).Handle(resp)
	assert.NoError(t, err)
	assert.Len(t, outputs, 1)

	status := outputs[0].(*spider.ContainerStatusItem)
	assert.Equal(t, "CNTR0000001", status.ContainerKey)
	assert.Equal(t, "Discharged from vessel", status.Fields["description"])
	assert.Equal(t, "2021-01-15 09:00", status.Fields["local_date_time"])
}

func Test_ContainerStatusEmpty(t *testing.T) {
	resp := &spider.Response{Body: []byte(`{"list": []}`), Meta: map[string]interface{}{
		"task_id": "1", "container_key": "CNTR0000001",
		"search_nos": []string{"ONEYMBL001"}, "task_ids": []string{"1"},
	}}

	outputs, err := (&ContainerStatusRule{}).Handle(resp)
	assert.NoError(t, err)
	assert.Len(t, outputs, 1)

	sig, ok := outputs[0].(spider.Restart)
	assert.True(t, ok)
	assert.Equal(t, "No container status info", sig.Reason)
}

func Test_ReleaseStatusHandle(t *testing.T) {
	body := `{"list": [
		{"ocnFrtColDt": "2021-01-16", "cstmsClrDt": "2021-01-17", "impFilDt": "",
		 "delFirmsCode": "Y258", "lastFreeDt": "2021-01-20", "podFirmsCode": "W182"}
	]}`
	resp := &spider.Response{Body: []byte(body), Meta: map[string]interface{}{
		"task_id": "1", "container_key": "CNTR0000001",
	}}

	outputs, err := (&ReleaseStatusRule{}).Handle(resp)
	assert.NoError(t, err)
	assert.Len(t, outputs, 2)

	mbl := outputs[0].(*spider.MblItem)
	assert.Equal(t, "2021-01-16", mbl.Fields["freight_date"])
	assert.Nil(t, mbl.Fields["us_filing_date"])

	container := outputs[1].(*spider.ContainerItem)
	assert.Equal(t, "2021-01-20", container.Fields["last_free_day"])
	assert.Equal(t, map[string]interface{}{"name": "W182"}, container.Fields["terminal_pod"])
}

func Test_ReleaseStatusRowCount(t *testing.T) {
	resp := &spider.Response{
		Body: []byte(`{"list": [{"lastFreeDt": "a"}, {"lastFreeDt": "b"}]}`),
		Meta: map[string]interface{}{"task_id": "1"},
	}

	_, err := (&ReleaseStatusRule{}).Handle(resp)
	var te *spider.TrackingError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, spider.StatusFatal, te.Status)
}

func Test_RailInfoHandle(t *testing.T) {
	body := `{"list": [
		{"pickUpAvail": "2021-01-21 10:00", "inArrYardNm": "BNSF LOS ANGELES", "inArrDate": "2021-01-22"}
	]}`
	resp := &spider.Response{Body: []byte(body), Meta: map[string]interface{}{
		"task_id": "1", "container_key": "CNTR0000001",
	}}

	outputs, err := (&RailInfoRule{}).Handle(resp)
	assert.NoError(t, err)
	assert.Len(t, outputs, 1)

	container := outputs[0].(*spider.ContainerItem)
	assert.Equal(t, "BNSF LOS ANGELES", container.Fields["railway"])
	assert.Equal(t, "2021-01-22", container.Fields["final_dest_eta"])
}

func Test_NextRoundHandle(t *testing.T) {
	nos := make([]string, 0, MaxPageNum+2)
	ids := make([]string, 0, MaxPageNum+2)
	for i := 0; i < MaxPageNum+2; i++ {
		nos = append(nos, fmt.Sprintf("ONEYMBL%03d", i))
		ids = append(ids, fmt.Sprintf("%d", i))
	}

	resp := &spider.Response{Meta: map[string]interface{}{
		"base_url":    "https://ecomm.one-line.com/ecom/CUP_HOM_3301GS.do",
		"search_type": spider.SearchTypeMbl,
		"search_nos":  nos,
		"task_ids":    ids,
	}}

	outputs, err := (&NextRoundRule{}).Handle(resp)
	assert.NoError(t, err)
	assert.Len(t, outputs, MaxPageNum+1)

	for i := 0; i < MaxPageNum; i++ {
		end, ok := outputs[i].(*spider.EndItem)
		assert.True(t, ok)
		assert.Equal(t, ids[i], end.Task)
	}

	// 下一轮起点,重试预算重新起算
	assert.True(t, (&NextRoundRule{}).ResetsRound())

	// 剩余单号重新进FIRST_TIER
	option, ok := outputs[MaxPageNum].(*spider.RequestOption)
	assert.True(t, ok)
	assert.Equal(t, "FIRST_TIER", option.RuleName)
	assert.True(t, strings.Contains(option.URL, "ONEYMBL010,ONEYMBL011"))
	assert.Equal(t, nos[MaxPageNum:], option.Meta["search_nos"])
	assert.Equal(t, ids[MaxPageNum:], option.Meta["task_ids"])
}

func Test_NextRoundAllEnded(t *testing.T) {
	resp := &spider.Response{Meta: map[string]interface{}{
		"base_url":    "https://ecomm.one-line.com/ecom/CUP_HOM_3301GS.do",
		"search_type": spider.SearchTypeMbl,
		"search_nos":  []string{"ONEYMBL001"},
		"task_ids":    []string{"1"},
	}}

	outputs, err := (&NextRoundRule{}).Handle(resp)
	assert.NoError(t, err)
	assert.Len(t, outputs, 1)

	_, ok := outputs[0].(*spider.EndItem)
	assert.True(t, ok)
}
