package tideworks

import (
	"testing"

	"github.com/TaikerLiang/shipment-crawler/spider"
	"github.com/stretchr/testify/assert"
)

var testInfo = CompanyInfo{
	LowerShort: "pct",
	UpperShort: "PCT",
	Email:      "tracking@shipmenttech.co",
	Password:   "changeme",
}

func Test_LoginHandle(t *testing.T) {
	resp := &spider.Response{
		Body: []byte("<html></html>"),
		Meta: map[string]interface{}{
			"container_nos": []string{"CNTR0000001", "CNTR0000002"},
			"task_ids":      []string{"1", "2"},
		},
	}

	outputs, err := (&LoginRule{info: testInfo}).Handle(resp)
	assert.NoError(t, err)
	assert.Len(t, outputs, 2)

	option := outputs[0].(*spider.RequestOption)
	assert.Equal(t, "SEARCH_CONTAINER", option.RuleName)
	assert.Equal(t, "https://pct.tideworks.com/fc-PCT/import/default.do?method=defaultSearch", option.URL)
	assert.Equal(t, "CTR", option.FormData["searchBy"])
	assert.Equal(t, "CNTR0000001", option.FormData["numbers"])
	assert.Equal(t, "1", option.Meta["task_id"])
}

func Test_SearchContainerHandle(t *testing.T) {
	body := `<html><body>
		<div id="result">
			<table><tr>
				<td><a href="/fc-PCT/import/container.do?method=view&id=123">CNTR0000001</a></td>
			</tr></table>
		</div>
	</body></html>`
	resp := &spider.Response{Body: []byte(body), Meta: map[string]interface{}{
		"container_no": "CNTR0000001", "task_id": "1",
	}}

	outputs, err := (&SearchContainerRule{info: testInfo}).Handle(resp)
	assert.NoError(t, err)
	assert.Len(t, outputs, 1)

	option := outputs[0].(*spider.RequestOption)
	assert.Equal(t, "CONTAINER_DETAIL", option.RuleName)
	assert.Equal(t, "https://pct.tideworks.com/fc-PCT/import/container.do?method=view&id=123", option.URL)
}

func Test_SearchContainerInvalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no_result_rows", `<html><body><div id="result"></div></body></html>`},
		{"nearby_locations", `<html><body>
			<div id="result"><table><tr>
				<td><a href="/x">CNTR0000001</a></td>
				<td>Not found. Check nearby locations</td>
			</tr></table></div>
		</body></html>`},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resp := &spider.Response{Body: []byte(c.body), Meta: map[string]interface{}{
				"container_no": "CNTR0000001", "task_id": "1",
			}}

			outputs, err := (&SearchContainerRule{info: testInfo}).Handle(resp)
			assert.NoError(t, err)
			assert.Len(t, outputs, 2)

			notFound := outputs[0].(*spider.DataNotFoundItem)
			assert.Equal(t, "1", notFound.Task)
			assert.Equal(t, "CNTR0000001", notFound.SearchNo)

			_, ok := outputs[1].(*spider.EndItem)
			assert.True(t, ok)
		})
	}
}

func Test_ContainerDetailHandle(t *testing.T) {
	body := `<html><body>
		<div class="page-header"><h2>Container - CNTR0000001</h2></div>
		<div class="col-sm-4">
			<div>Unload Date: 01/15/2021</div>
			<div>Available for pickup: Yes</div>
			<div>Size/Type: 40DR</div>
			<div>Line: ONEY</div>
			<div>Location: Yard Grounded (Y-100)</div>
			<div>Vessel/Voyage: ONE COLUMBA/001E</div>
			<div>Weight: 20,000   lbs</div>
		</div>
		<div class="col-sm-6">
			<div>Line Release Status: Released</div>
			<div>Customs Release Status: Released</div>
		</div>
		<div class="col-sm-2">
			<div>Satisfied Thru: 01/20/2021</div>
			<div>Demurrage: $0.00</div>
			<div>Holds: None</div>
		</div>
	</body></html>`
	resp := &spider.Response{Body: []byte(body), Meta: map[string]interface{}{
		"container_no": "CNTR0000001", "task_id": "1",
	}}

	outputs, err := (&ContainerDetailRule{}).Handle(resp)
	assert.NoError(t, err)
	assert.Len(t, outputs, 2)

	container := outputs[0].(*spider.ContainerItem)
	assert.Equal(t, "CNTR0000001", container.ContainerKey)
	assert.Equal(t, "01/15/2021", container.Fields["discharge_date"])
	assert.Equal(t, "Yes", container.Fields["ready_for_pick_up"])
	assert.Equal(t, "ONE COLUMBA", container.Fields["vessel"])
	assert.Equal(t, "20,000 lbs", container.Fields["weight"])
	assert.Equal(t, "Released", container.Fields["carrier_release"])
	assert.Equal(t, "01/20/2021", container.Fields["last_free_day"])
	assert.Nil(t, container.Fields["holds"])

	_, ok := outputs[1].(*spider.EndItem)
	assert.True(t, ok)
}

func Test_ContainerDetailBadHeader(t *testing.T) {
	body := `<html><body><div class="page-header"><h2>Session expired</h2></div></body></html>`
	resp := &spider.Response{Body: []byte(body), Meta: map[string]interface{}{"task_id": "1"}}

	_, err := (&ContainerDetailRule{}).Handle(resp)
	var te *spider.TrackingError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, spider.StatusFatal, te.Status)
}
