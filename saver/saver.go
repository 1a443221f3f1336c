package saver

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Saver 把抓到的原始响应落盘,只用于排查,不参与结果正确性
type Saver interface {
	Save(to string, text string) error
}

type NullSaver struct{}

func NewNullSaver() *NullSaver {
	return &NullSaver{}
}

func (*NullSaver) Save(_ string, _ string) error {
	return nil
}

type FileSaver struct {
	folderPath string
	logger     *zap.Logger
	count      int
}

func NewFileSaver(folderPath string, logger *zap.Logger) *FileSaver {
	return &FileSaver{
		folderPath: folderPath,
		logger:     logger,
	}
}

// Save 同名文件按到达顺序编号,一次抓取的多个响应互不覆盖
func (s *FileSaver) Save(to string, text string) error {
	if err := os.MkdirAll(s.folderPath, 0o755); err != nil {
		return err
	}

	s.count++
	name := fmt.Sprintf("%03d_%s.html", s.count, to)
	path := filepath.Join(s.folderPath, name)

	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		s.logger.Error("save response failed", zap.String("path", path), zap.Error(err))

		return err
	}

	s.logger.Debug("response saved", zap.String("path", path))

	return nil
}
