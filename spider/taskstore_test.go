package spider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_TaskStoreAddGet(t *testing.T) {
	store := &taskStore{Hash: map[string]*Task{}}
	store.Add(&Task{Options: Options{Name: "carrier_demo"}})

	task, ok := store.Get("carrier_demo")
	assert.True(t, ok)
	assert.Equal(t, "carrier_demo", task.Name)

	_, ok = store.Get("unknown")
	assert.False(t, ok)
}

func Test_AddJSTaskRoot(t *testing.T) {
	store := &taskStore{Hash: map[string]*Task{}}
	store.AddJSTask(&TaskModle{
		Name:    "carrier_js_demo",
		BaseURL: "https://example.com",
		Root: `
			var options = [];
			for (var i = 0; i < task.search_nos.length; i++) {
				options.push({
					rule_name: "SEARCH",
					method: "GET",
					url: task.base_url + "/search/" + task.search_nos[i],
					meta: {task_id: task.task_ids[i]},
				});
			}
			options;
		`,
		Rules: []RuleModle{{Name: "SEARCH", HandleScript: `({items: [], requests: []});`}},
	})

	task, ok := store.Get("carrier_js_demo")
	assert.True(t, ok)
	task.SearchNos = []string{"MBL001", "MBL002"}
	task.TaskIDs = []string{"1", "2"}

	options, err := task.Rule.Root(task)
	assert.NoError(t, err)
	assert.Len(t, options, 2)
	assert.Equal(t, "SEARCH", options[0].RuleName)
	assert.Equal(t, "https://example.com/search/MBL001", options[0].URL)
	assert.Equal(t, "1", options[0].Meta["task_id"])
	assert.Len(t, task.Rule.Trunk, 1)
	assert.Equal(t, "SEARCH", task.Rule.Trunk[0].Name())
}

func Test_JSRuleHandle(t *testing.T) {
	rule := NewJSRule("SEARCH", `
		var data = JSON.parse(resp.body);
		var items = [
			{kind: "mbl", task_id: resp.meta.task_id, fields: {mbl_no: data.mbl_no}},
			{kind: "end", task_id: resp.meta.task_id},
		];
		var requests = [
			{rule_name: "DETAIL", method: "POST_FORM", url: resp.url + "/detail", form_data: {no: data.mbl_no}},
		];
		({items: items, requests: requests});
	`)

	outputs, err := rule.Handle(&Response{
		URL:        "https://example.com/search",
		StatusCode: 200,
		Body:       []byte(`{"mbl_no":"MBL001"}`),
		Meta:       map[string]interface{}{"task_id": "1"},
	})
	assert.NoError(t, err)
	assert.Len(t, outputs, 3)

	mbl, ok := outputs[0].(*MblItem)
	assert.True(t, ok)
	assert.Equal(t, "1", mbl.Task)
	assert.Equal(t, "MBL001", mbl.Fields["mbl_no"])

	_, ok = outputs[1].(*EndItem)
	assert.True(t, ok)

	option, ok := outputs[2].(*RequestOption)
	assert.True(t, ok)
	assert.Equal(t, "DETAIL", option.RuleName)
	assert.Equal(t, "MBL001", option.FormData["no"])
}

func Test_JSRuleHandleBadScript(t *testing.T) {
	rule := NewJSRule("BROKEN", `throw new Error("boom");`)

	_, err := rule.Handle(&Response{Body: []byte("{}")})
	var te *TrackingError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, StatusFatal, te.Status)
}
