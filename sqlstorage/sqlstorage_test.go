package sqlstorage

import (
	"testing"

	"github.com/TaikerLiang/shipment-crawler/pipeline"
	"github.com/TaikerLiang/shipment-crawler/sqldb"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeDB struct {
	created []sqldb.TableData
	inserts []sqldb.TableData
}

func (f *fakeDB) CreateTable(t sqldb.TableData) error {
	f.created = append(f.created, t)
	return nil
}

func (f *fakeDB) Insert(t sqldb.TableData) error {
	f.inserts = append(f.inserts, t)
	return nil
}

func newTestStorage(batchCount int) (*SQLStorage, *fakeDB) {
	db := &fakeDB{}
	s := &SQLStorage{
		db:    db,
		Table: make(map[string]struct{}),
	}
	s.options = defaultOptions
	s.logger = zap.NewNop()
	s.BatchCount = batchCount

	return s, db
}

func TestSQLStorage_SaveBatch(t *testing.T) {
	s, db := newTestStorage(2)

	results := []*pipeline.TaskResult{
		{TaskID: "1", Spider: "oney_multi", Status: "DATA", Payload: map[string]interface{}{"mbl_no": "MBL001"}},
		{TaskID: "2", Spider: "oney_multi", Status: "DATA", Payload: map[string]interface{}{"mbl_no": "MBL002"}},
		{TaskID: "3", Spider: "oney_multi", Status: "ERROR", Payload: map[string]interface{}{"detail": "boom"}},
	}
	assert.NoError(t, s.Save(results...))

	// 表只建一次
	assert.Len(t, db.created, 1)
	assert.Equal(t, "result_oney_multi", db.created[0].TableName)

	// 凑满一个批次立即落库,第三条留在缓存
	assert.Len(t, db.inserts, 1)
	assert.Equal(t, 2, db.inserts[0].DataCount)
	assert.Len(t, db.inserts[0].Args, 2*len(resultColumns()))
	assert.Equal(t, "1", db.inserts[0].Args[0])

	assert.NoError(t, s.Flush())
	assert.Len(t, db.inserts, 2)
	assert.Equal(t, 1, db.inserts[1].DataCount)
	assert.Equal(t, "ERROR", db.inserts[1].Args[1])
}

func TestSQLStorage_FlushAtRunEnd(t *testing.T) {
	s, db := newTestStorage(2)

	// 批次没凑满,Save不落库
	assert.NoError(t, s.Save(&pipeline.TaskResult{
		TaskID: "1", Spider: "oney_multi", Status: "DATA",
		Payload: map[string]interface{}{"mbl_no": "MBL001"},
	}))
	assert.Empty(t, db.inserts)

	// 运行收尾的Flush必须把缓存清空落库
	assert.NoError(t, s.Flush())
	assert.Len(t, db.inserts, 1)
	assert.Equal(t, 1, db.inserts[0].DataCount)
	assert.Equal(t, "1", db.inserts[0].Args[0])

	// 再次Flush不产生空insert
	assert.NoError(t, s.Flush())
	assert.Len(t, db.inserts, 1)
}

func TestSQLStorage_FlushEmpty(t *testing.T) {
	s, db := newTestStorage(10)
	assert.NoError(t, s.Flush())
	assert.Empty(t, db.inserts)
}
