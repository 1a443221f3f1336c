package spider

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_InitSearch(t *testing.T) {
	task := NewTask(WithName("carrier_oney_multi"))

	err := task.InitSearch(SearchTypeMbl, []string{"1", "2", " 2 "}, []string{"MBL001", "MBL002", "MBL002"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, task.TaskIDs)
	assert.Equal(t, []string{"MBL001", "MBL002"}, task.SearchNos)
}

func Test_InitSearchLengthMismatch(t *testing.T) {
	task := NewTask()

	err := task.InitSearch(SearchTypeMbl, []string{"1"}, []string{"MBL001", "MBL002"})
	assert.Error(t, err)
}

func Test_RequestArgs(t *testing.T) {
	task := NewTask(WithName("carrier_oney_multi"))
	assert.NoError(t, task.InitSearch(SearchTypeBooking, []string{"1", "2"}, []string{"BKG001", "BKG002"}))

	args := task.RequestArgs()
	assert.Equal(t, "1,2", args["task_id"])
	assert.Equal(t, "BKG001,BKG002", args["booking_no"])

	args = task.RequestArgsFor("2", "BKG002")
	assert.Equal(t, "2", args["task_id"])
	assert.Equal(t, "BKG002", args["booking_no"])

	task2 := NewTask()
	assert.NoError(t, task2.InitSearch(SearchTypeMbl, []string{"1"}, []string{"MBL001"}))
	assert.Equal(t, "MBL001", task2.RequestArgs()["mbl_no"])
}

func Test_TaskDefaults(t *testing.T) {
	task := NewTask(WithName("carrier_oney_multi"))

	assert.Equal(t, int64(2), task.WaitTime)
	assert.Equal(t, 3, task.MaxRetry)
	assert.NotNil(t, task.Saver)
	assert.NotNil(t, task.Logger())
}
