package spider

// 终端payload的status取值
const (
	StatusData  = "DATA"
	StatusFatal = "FATAL"
	StatusError = "ERROR"
	StatusDebug = "DEBUG"
	StatusClose = "CLOSE"
)

// 查询号类型
const (
	SearchTypeMbl     = "MBL"
	SearchTypeBooking = "BOOKING"
)

// ItemKind 是item的封闭判别标签,pipeline按它派发
type ItemKind int

const (
	KindMbl ItemKind = iota
	KindVessel
	KindContainer
	KindContainerStatus
	KindRail
	KindDataNotFound
	KindEnd
	KindDebug
	KindExportError
	KindExportFinal
)

func (k ItemKind) String() string {
	switch k {
	case KindMbl:
		return "mbl"
	case KindVessel:
		return "vessel"
	case KindContainer:
		return "container"
	case KindContainerStatus:
		return "container_status"
	case KindRail:
		return "rail"
	case KindDataNotFound:
		return "data_not_found"
	case KindEnd:
		return "end"
	case KindDebug:
		return "debug"
	case KindExportError:
		return "export_error"
	case KindExportFinal:
		return "export_final"
	}

	return "unknown"
}

// Item 是规则产出、pipeline消费的记录
// Fields中以下划线开头的键是内部字段,落payload前会被剔除
type Item interface {
	RuleOutput
	Kind() ItemKind
	TaskID() string
}

type baseItem struct{}

func (baseItem) ruleOutput() {}

// MblItem 主记录,合并进collector的basic段
type MblItem struct {
	baseItem
	Task   string
	Fields map[string]interface{}
}

func (i *MblItem) Kind() ItemKind { return KindMbl }
func (i *MblItem) TaskID() string { return i.Task }

// VesselItem 以vessel_key归槽的重复子记录
type VesselItem struct {
	baseItem
	Task      string
	VesselKey string
	Fields    map[string]interface{}
}

func (i *VesselItem) Kind() ItemKind { return KindVessel }
func (i *VesselItem) TaskID() string { return i.Task }

// ContainerItem 以container_key归槽的重复子记录
type ContainerItem struct {
	baseItem
	Task         string
	ContainerKey string
	Fields       map[string]interface{}
}

func (i *ContainerItem) Kind() ItemKind { return KindContainer }
func (i *ContainerItem) TaskID() string { return i.Task }

// ContainerStatusItem 追加进所属container槽的status列表
type ContainerStatusItem struct {
	baseItem
	Task         string
	ContainerKey string
	Fields       map[string]interface{}
}

func (i *ContainerStatusItem) Kind() ItemKind { return KindContainerStatus }
func (i *ContainerStatusItem) TaskID() string { return i.Task }

// RailItem 追加进所属container槽的rail_status列表
type RailItem struct {
	baseItem
	Task         string
	ContainerKey string
	Fields       map[string]interface{}
}

func (i *RailItem) Kind() ItemKind { return KindRail }
func (i *RailItem) TaskID() string { return i.Task }

// DataNotFoundItem 查询号无效,属于可恢复结果而不是异常
type DataNotFoundItem struct {
	baseItem
	Task       string
	SearchNo   string
	SearchType string
	Detail     string
}

func (i *DataNotFoundItem) Kind() ItemKind { return KindDataNotFound }
func (i *DataNotFoundItem) TaskID() string { return i.Task }

// EndItem 显式声明任务链正常走完
type EndItem struct {
	baseItem
	Task string
}

func (i *EndItem) Kind() ItemKind { return KindEnd }
func (i *EndItem) TaskID() string { return i.Task }

// DebugItem 只用于排查,不参与结果合并
type DebugItem struct {
	baseItem
	Info interface{}
}

func (i *DebugItem) Kind() ItemKind { return KindDebug }
func (i *DebugItem) TaskID() string { return "" }

// ExportErrorData 规则层显式上报的错误结果
type ExportErrorData struct {
	baseItem
	Task   string
	Status string
	Detail string
	Fields map[string]interface{}
}

func (i *ExportErrorData) Kind() ItemKind { return KindExportError }
func (i *ExportErrorData) TaskID() string { return i.Task }

// ExportFinalData 收尾信号,触发所有collector出结果
type ExportFinalData struct {
	baseItem
}

func (i *ExportFinalData) Kind() ItemKind { return KindExportFinal }
func (i *ExportFinalData) TaskID() string { return "" }
