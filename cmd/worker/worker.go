package worker

import (
	"net/http"
	_ "net/http/pprof"
	"strings"

	"github.com/TaikerLiang/shipment-crawler/edi"
	"github.com/TaikerLiang/shipment-crawler/engine"
	"github.com/TaikerLiang/shipment-crawler/log"
	"github.com/TaikerLiang/shipment-crawler/pipeline"
	"github.com/TaikerLiang/shipment-crawler/proxy"
	"github.com/TaikerLiang/shipment-crawler/saver"
	"github.com/TaikerLiang/shipment-crawler/spider"
	"github.com/TaikerLiang/shipment-crawler/sqlstorage"
	_ "github.com/TaikerLiang/shipment-crawler/tasklib"
	"github.com/bwmarrin/snowflake"
	"github.com/go-micro/plugins/v4/config/encoder/toml"
	"github.com/spf13/cobra"
	"go-micro.dev/v4/config"
	"go-micro.dev/v4/config/reader"
	"go-micro.dev/v4/config/reader/json"
	"go-micro.dev/v4/config/source"
	"go-micro.dev/v4/config/source/file"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var WorkerCmd = &cobra.Command{
	Use:   "worker",
	Short: "run one crawl task.",
	Long:  "run one crawl task.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		Run()
	},
}

func init() {
	WorkerCmd.Flags().StringVar(
		&taskName, "task", "", "set spider task name")

	WorkerCmd.Flags().StringVar(
		&searchType, "type", spider.SearchTypeMbl, "set search type (mbl or booking)")

	WorkerCmd.Flags().StringVar(
		&searchNos, "nos", "", "set search numbers, comma separated")

	WorkerCmd.Flags().StringVar(
		&taskIDs, "ids", "", "set task ids, comma separated; generated when empty")

	WorkerCmd.Flags().StringVar(
		&PProfListenAddress, "pprof", ":9981", "set pprof address")

	WorkerCmd.Flags().BoolVar(
		&save, "save", false, "save raw responses for debugging")
}

var taskName string
var searchType string
var searchNos string
var taskIDs string
var PProfListenAddress string
var save bool

func Run() {
	go func() {
		if err := http.ListenAndServe(PProfListenAddress, nil); err != nil {
			panic(err)
		}
	}()

	// load config
	enc := toml.NewEncoder()
	cfg, err := config.NewConfig(config.WithReader(json.NewReader(reader.WithEncoder(enc))))
	if err != nil {
		panic(err)
	}
	if err := cfg.Load(file.NewSource(
		file.WithPath("config.toml"),
		source.WithEncoder(enc),
	)); err != nil {
		panic(err)
	}

	// log
	logText := cfg.Get("logLevel").String("INFO")
	logLevel, err := zapcore.ParseLevel(logText)
	if err != nil {
		panic(err)
	}
	plugin := log.NewStdoutPlugin(logLevel)
	logger := log.NewLogger(plugin)
	logger.Info("log init end")

	// set zap global logger
	zap.ReplaceGlobals(logger)

	task, ok := spider.TaskStore.Get(taskName)
	if !ok {
		logger.Sugar().Fatal("unknown task name: ", taskName)
	}

	nos := splitList(searchNos)
	if len(nos) == 0 {
		logger.Fatal("no search numbers given")
	}

	ids := splitList(taskIDs)
	if len(ids) == 0 {
		ids, err = generateTaskIDs(len(nos))
		if err != nil {
			logger.Fatal("generate task ids failed", zap.Error(err))
		}
	}

	if err := task.InitSearch(searchType, ids, nos); err != nil {
		logger.Fatal("init search failed", zap.Error(err))
	}

	// fetcher
	task.Fetcher = spider.NewFetchService(spider.BrowserFetchType)
	spider.WithLogger(logger.Named("spider"))(&task.Options)

	// proxy
	sessionURL := cfg.Get("proxy", "url").String("")
	if sessionURL != "" {
		manager := proxy.NewManager(
			sessionURL,
			cfg.Get("proxy", "password").String(""),
			cfg.Get("proxy", "session").String(task.Name),
			cfg.Get("proxy", "maxRenew").Int(5),
			logger.Named("proxy"),
		)
		// 种子请求也要带上会话凭据
		if err := manager.RenewProxy(); err != nil {
			logger.Fatal("init proxy session failed", zap.Error(err))
		}
		task.Proxy = manager
	} else if proxyURLs := cfg.Get("fetcher", "proxy").StringSlice([]string{}); len(proxyURLs) > 0 {
		switcher, err := proxy.NewRoundRobinSwitcher(proxyURLs...)
		if err != nil {
			logger.Error("round robin switcher failed", zap.Error(err))
		} else {
			task.Proxy = switcher
		}
	}

	if save {
		task.Save = true
		task.Saver = saver.NewFileSaver(cfg.Get("saver", "dir").String("./saved"), logger.Named("saver"))
	}

	// storage
	var storage pipeline.DataRepository
	var archive *sqlstorage.SQLStorage
	switch cfg.Get("storage", "type").String("") {
	case "mysql":
		sqlURL := cfg.Get("storage", "sqlURL").String("")
		if archive, err = sqlstorage.New(
			sqlstorage.WithSQLURL(sqlURL),
			sqlstorage.WithLogger(logger.Named("sqlDB")),
			sqlstorage.WithBatchCount(cfg.Get("storage", "batchCount").Int(2)),
		); err != nil {
			logger.Fatal("create sqlstorage failed", zap.Error(err))
		}
		storage = archive
		logger.Info("start mysql storage")
	default:
		logger.Info("result archive disabled")
	}

	// EDI sink
	var sink pipeline.ResultSink
	if ediURL := cfg.Get("edi", "url").String(""); ediURL != "" {
		sink = edi.NewClientService(
			ediURL,
			cfg.Get("edi", "user").String(""),
			cfg.Get("edi", "token").String(""),
			cfg.Get("edi", "host").String(""),
		)
	}

	pipe := pipeline.NewMultiItemsPipeline(
		pipeline.WithLogger(logger.Named("pipeline")),
		pipeline.WithSink(sink),
		pipeline.WithStorage(storage),
		pipeline.WithProviderCode(cfg.Get("edi", "providerCode").String("cloud_api")),
	)

	e, err := engine.NewCrawlEngine(task, pipe,
		engine.WithLogger(logger.Named("engine")),
		engine.WithWorkCount(cfg.Get("workCount").Int(1)),
	)
	if err != nil {
		logger.Fatal("create crawl engine failed", zap.Error(err))
	}

	if err := e.Run(); err != nil {
		logger.Fatal("crawl run failed", zap.Error(err))
	}

	// 单次运行的payload往往凑不满一个批次,收尾强制落库
	if archive != nil {
		if err := archive.Flush(); err != nil {
			logger.Error("flush result archive failed", zap.Error(err))
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

func generateTaskIDs(count int) ([]string, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, node.Generate().String())
	}

	return ids, nil
}
