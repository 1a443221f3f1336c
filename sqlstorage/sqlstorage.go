package sqlstorage

import (
	"encoding/json"
	"time"

	"github.com/TaikerLiang/shipment-crawler/pipeline"
	"github.com/TaikerLiang/shipment-crawler/sqldb"
	"go.uber.org/zap"
)

// SQLStorage 按spider分表归档终端payload
type SQLStorage struct {
	resultDocker []*pipeline.TaskResult // 分批落库缓存
	db           sqldb.DBer
	Table        map[string]struct{}
	options
}

func New(opts ...Option) (*SQLStorage, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}

	s := &SQLStorage{}
	s.options = options
	s.Table = make(map[string]struct{})

	var err error
	s.db, err = sqldb.New(
		sqldb.WithConnURL(s.sqlURL),
		sqldb.WithLogger(s.logger),
	)

	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SQLStorage) Save(results ...*pipeline.TaskResult) error {
	for _, result := range results {
		name := tableName(result)
		if _, ok := s.Table[name]; !ok {
			err := s.db.CreateTable(sqldb.TableData{
				TableName:   name,
				ColumnNames: resultColumns(),
				AutoKey:     true,
			})
			if err != nil {
				s.logger.Error("create table failed", zap.Error(err))
			}

			s.Table[name] = struct{}{}
		}

		s.resultDocker = append(s.resultDocker, result)

		if len(s.resultDocker) >= s.BatchCount {
			if err := s.Flush(); err != nil {
				s.logger.Error("insert data failed", zap.Error(err))
			}
		}
	}

	return nil
}

func tableName(result *pipeline.TaskResult) string {
	return "result_" + result.Spider
}

func resultColumns() []sqldb.Field {
	return []sqldb.Field{
		{Title: "task_id", Type: "VARCHAR(64)"},
		{Title: "status", Type: "VARCHAR(16)"},
		{Title: "payload", Type: "MEDIUMTEXT"},
		{Title: "created_at", Type: "VARCHAR(64)"},
	}
}

// Flush 运行收尾时必须再调一次,没凑满批次的结果也要落库
func (s *SQLStorage) Flush() error {
	if len(s.resultDocker) == 0 {
		return nil
	}

	defer func() {
		s.resultDocker = nil
	}()

	args := make([]interface{}, 0, len(s.resultDocker)*4)
	now := time.Now().Format(time.RFC3339)

	for _, result := range s.resultDocker {
		payload, err := json.Marshal(result.Payload)
		if err != nil {
			s.logger.Error("marshal payload failed",
				zap.String("task_id", result.TaskID), zap.Error(err))
			payload = []byte("{}")
		}

		args = append(args, result.TaskID, result.Status, string(payload), now)
	}

	return s.db.Insert(sqldb.TableData{
		TableName:   tableName(s.resultDocker[0]),
		ColumnNames: resultColumns(),
		Args:        args,
		DataCount:   len(s.resultDocker),
	})
}
