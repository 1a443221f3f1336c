package proxy

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/TaikerLiang/shipment-crawler/spider"
	"go.uber.org/zap"
)

const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Manager 会话级住宅代理,通过meta与Proxy-Authorization头装饰RequestOption
// 续约次数有上限,超过按任务失败处理
type Manager struct {
	proxyURL string
	password string
	session  string
	maxRenew int
	logger   *zap.Logger

	renewCount int
	username   string
}

func NewManager(proxyURL, password, session string, maxRenew int, logger *zap.Logger) *Manager {
	return &Manager{
		proxyURL: proxyURL,
		password: password,
		session:  session,
		maxRenew: maxRenew,
		logger:   logger,
	}
}

func (m *Manager) RenewProxy() error {
	if m.renewCount > m.maxRenew {
		return spider.NewProxyMaxRetryError("")
	}

	m.renewCount++
	m.logger.Warn("renew proxy", zap.Int("count", m.renewCount))

	randStr := make([]byte, 20)
	for i := range randStr {
		randStr[i] = letters[rand.Intn(len(letters))]
	}
	m.username = fmt.Sprintf("groups-RESIDENTIAL,session-%s%s", m.session, randStr)

	return nil
}

func (m *Manager) ApplyProxyToRequestOption(option *spider.RequestOption) *spider.RequestOption {
	return option.CopyExtendedBy(
		map[string]string{
			"Proxy-Authorization": basicAuthHeader(m.username, m.password),
		},
		map[string]interface{}{
			"proxy": "http://" + m.proxyURL,
		},
	)
}

// RoundRobinSwitcher 在固定代理池里轮转,renew只是切到下一个
type RoundRobinSwitcher struct {
	proxyURLs []string
	index     uint32
}

func NewRoundRobinSwitcher(proxyURLs ...string) (*RoundRobinSwitcher, error) {
	if len(proxyURLs) < 1 {
		return nil, errors.New("proxy url list is empty")
	}

	return &RoundRobinSwitcher{proxyURLs: proxyURLs}, nil
}

func (r *RoundRobinSwitcher) RenewProxy() error {
	atomic.AddUint32(&r.index, 1)

	return nil
}

func (r *RoundRobinSwitcher) ApplyProxyToRequestOption(option *spider.RequestOption) *spider.RequestOption {
	index := atomic.LoadUint32(&r.index)
	u := r.proxyURLs[index%uint32(len(r.proxyURLs))]

	return option.CopyExtendedBy(nil, map[string]interface{}{
		"proxy": u,
	})
}

func basicAuthHeader(username, password string) string {
	auth := username + ":" + password

	return "Basic " + base64.StdEncoding.EncodeToString([]byte(auth))
}
