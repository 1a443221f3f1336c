package oney

import (
	"fmt"
	"strings"
	"time"

	"github.com/TaikerLiang/shipment-crawler/spider"
)

// 单轮最多查询的单号数,超出的留给NEXT_ROUND
const MaxPageNum = 10

const (
	firstTierCmd       = "121"
	vesselCmd          = "124"
	containerStatusCmd = "125"
	releaseStatusCmd   = "126"
	railInfoCmd        = "127"

	// NEXT_ROUND不打站点,走一个轻量探活地址做中转
	healthCheckURL = "https://eval.edi.hardcoretech.co/c/livez"
)

// NewRuleTree 组装ONE/SMLM承运人的完整查询流程
// search type在InitSearch之后才定,跟着meta走而不是编进规则
func NewRuleTree() spider.RuleTree {
	return spider.RuleTree{
		Root: func(t *spider.Task) ([]*spider.RequestOption, error) {
			return []*spider.RequestOption{
				buildFirstTierOption(t.BaseURL, t.SearchType, t.SearchNos, t.TaskIDs),
			}, nil
		},
		Trunk: []spider.RoutingRule{
			&FirstTierRule{},
			&VesselRule{},
			&ContainerStatusRule{},
			&ReleaseStatusRule{},
			&RailInfoRule{},
			&NextRoundRule{},
		},
		OnRestart: func(t *spider.Task, sig spider.Restart) (*spider.RequestOption, error) {
			return buildFirstTierOption(t.BaseURL, t.SearchType, sig.SearchNos, sig.TaskIDs), nil
		},
	}
}

type containerInfo struct {
	MblNo         string
	ContainerNo   string
	BookingNo     string
	CooperationNo string
	FinalDest     string
}

type oneyRow struct {
	BlNo     string `json:"blNo"`
	CntrNo   string `json:"cntrNo"`
	BkgNo    string `json:"bkgNo"`
	CopNo    string `json:"copNo"`
	PlaceNm  string `json:"placeNm"`
	StatusNm string `json:"statusNm"`
	EventDt  string `json:"eventDt"`
	ActTpCd  string `json:"actTpCd"`

	VslEngNm string `json:"vslEngNm"`
	SkdVoyNo string `json:"skdVoyNo"`
	SkdDirCd string `json:"skdDirCd"`
	PolNm    string `json:"polNm"`
	PodNm    string `json:"podNm"`
	Etd      string `json:"etd"`
	EtdFlag  string `json:"etdFlag"`
	Eta      string `json:"eta"`
	EtaFlag  string `json:"etaFlag"`

	OcnFrtColDt  string `json:"ocnFrtColDt"`
	CstmsClrDt   string `json:"cstmsClrDt"`
	ImpFilDt     string `json:"impFilDt"`
	DelFirmsCode string `json:"delFirmsCode"`
	LastFreeDt   string `json:"lastFreeDt"`
	PodFirmsCode string `json:"podFirmsCode"`

	PickUpAvail string `json:"pickUpAvail"`
	InArrYardNm string `json:"inArrYardNm"`
	InArrDate   string `json:"inArrDate"`
}

// list键缺失与空列表含义不同:缺失代表被站点拦截
type listEnvelope struct {
	List *[]oneyRow `json:"list"`
}

// FirstTierRule 首查,按单号批量拿提单与箱清单
type FirstTierRule struct{}

func (r *FirstTierRule) Name() string { return "FIRST_TIER" }

func (r *FirstTierRule) SaveName(resp *spider.Response) string {
	return fmt.Sprintf("%s.json", r.Name())
}

func buildFirstTierOption(baseURL, searchType string, searchNos, taskIDs []string) *spider.RequestOption {
	pageNos := searchNos
	if len(pageNos) > MaxPageNum {
		pageNos = pageNos[:MaxPageNum]
	}

	url := fmt.Sprintf(
		"%s?_search=false&nd=%d&rows=10000&page=1&sidx=&sord=asc&f_cmd=%s&search_type=B&search_name=%s&cust_cd=",
		baseURL, time.Now().UnixNano()/int64(time.Millisecond), firstTierCmd, strings.Join(pageNos, ","),
	)

	return &spider.RequestOption{
		RuleName: "FIRST_TIER",
		Method:   spider.MethodGet,
		URL:      url,
		Headers: map[string]string{
			"accept":           "application/json, text/javascript, */*; q=0.01",
			"x-requested-with": "XMLHttpRequest",
		},
		Meta: map[string]interface{}{
			"base_url":    baseURL,
			"search_type": searchType,
			"task_ids":    taskIDs,
			"search_nos":  searchNos,
		},
	}
}

func (r *FirstTierRule) Handle(resp *spider.Response) ([]spider.RuleOutput, error) {
	taskIDs := resp.MetaStrings("task_ids")
	searchNos := resp.MetaStrings("search_nos")
	baseURL := resp.MetaString("base_url")
	searchType := resp.MetaString("search_type")

	if strings.Contains(resp.Text(), "System error") {
		return []spider.RuleOutput{
			spider.Restart{SearchNos: searchNos, TaskIDs: taskIDs, Reason: "JSON response invalid"},
		}, nil
	}

	var envelope listEnvelope
	if err := resp.DecodeJSON(&envelope); err != nil {
		return nil, spider.NewFormatError("", fmt.Sprintf("first tier response is not JSON: %v", err))
	}

	if envelope.List == nil {
		return []spider.RuleOutput{
			spider.Restart{SearchNos: searchNos, TaskIDs: taskIDs, Reason: "IP block"},
		}, nil
	}

	containers := extractContainerInfos(*envelope.List)
	knownNos := map[string]struct{}{}
	for _, c := range containers {
		knownNos[pickSearchNo(searchType, c)] = struct{}{}
	}

	pageNos, pageIDs := searchNos, taskIDs
	if len(pageNos) > MaxPageNum {
		pageNos = pageNos[:MaxPageNum]
		pageIDs = pageIDs[:MaxPageNum]
	}

	var out []spider.RuleOutput
	for i, searchNo := range pageNos {
		taskID := pageIDs[i]
		if _, ok := knownNos[searchNo]; !ok {
			out = append(out, &spider.DataNotFoundItem{
				Task:       taskID,
				SearchNo:   searchNo,
				SearchType: searchType,
				Detail:     "Data was not found",
			})

			continue
		}

		finalDest := ""
		for _, c := range containers {
			if pickSearchNo(searchType, c) == searchNo {
				finalDest = c.FinalDest
				break
			}
		}

		fields := map[string]interface{}{
			"final_dest": map[string]interface{}{"name": finalDest},
		}
		fields[searchNoKey(searchType)] = searchNo

		out = append(out, &spider.MblItem{Task: taskID, Fields: fields})
		out = append(out, buildVesselOption(baseURL, searchNo, taskID))
	}

	for _, c := range containers {
		idx := indexOf(searchNos, pickSearchNo(searchType, c))
		if idx < 0 {
			continue
		}

		taskID := taskIDs[idx]

		out = append(out, &spider.ContainerItem{
			Task:         taskID,
			ContainerKey: c.ContainerNo,
			Fields: map[string]interface{}{
				"container_key": c.ContainerNo,
				"container_no":  c.ContainerNo,
			},
		})

		out = append(out, buildContainerStatusOption(baseURL, c, taskID, searchNos, taskIDs))
		out = append(out, buildReleaseStatusOption(baseURL, c, taskID))
		out = append(out, buildRailInfoOption(baseURL, c, taskID))
	}

	out = append(out, buildNextRoundOption(baseURL, searchType, searchNos, taskIDs))

	return out, nil
}

func pickSearchNo(searchType string, c containerInfo) string {
	if searchType == spider.SearchTypeBooking {
		return c.BookingNo
	}

	return c.MblNo
}

func searchNoKey(searchType string) string {
	if searchType == spider.SearchTypeBooking {
		return "booking_no"
	}

	return "mbl_no"
}

func extractContainerInfos(rows []oneyRow) []containerInfo {
	infos := make([]containerInfo, 0, len(rows))
	for _, row := range rows {
		infos = append(infos, containerInfo{
			MblNo:         strings.TrimSpace(row.BlNo),
			ContainerNo:   strings.TrimSpace(row.CntrNo),
			BookingNo:     strings.TrimSpace(row.BkgNo),
			CooperationNo: strings.TrimSpace(row.CopNo),
			FinalDest:     strings.TrimSpace(row.PlaceNm),
		})
	}

	return infos
}

func indexOf(ss []string, target string) int {
	for i, s := range ss {
		if s == target {
			return i
		}
	}

	return -1
}

// VesselRule 查船名航次与进出港时间
type VesselRule struct{}

func (r *VesselRule) Name() string { return "VESSEL" }

func (r *VesselRule) SaveName(resp *spider.Response) string {
	return fmt.Sprintf("%s.json", r.Name())
}

func buildVesselOption(baseURL, bookingNo, taskID string) *spider.RequestOption {
	return &spider.RequestOption{
		RuleName: "VESSEL",
		Method:   spider.MethodPostForm,
		URL:      baseURL,
		FormData: map[string]string{
			"f_cmd":  vesselCmd,
			"bkg_no": bookingNo,
		},
		Meta: map[string]interface{}{
			"task_id": taskID,
		},
	}
}

func (r *VesselRule) Handle(resp *spider.Response) ([]spider.RuleOutput, error) {
	taskID := resp.MetaString("task_id")

	var envelope listEnvelope
	if err := resp.DecodeJSON(&envelope); err != nil {
		return nil, spider.NewFormatError(taskID, fmt.Sprintf("vessel response is not JSON: %v", err))
	}

	if envelope.List == nil {
		return nil, nil
	}

	var out []spider.RuleOutput
	for _, row := range *envelope.List {
		name := strings.TrimSpace(row.VslEngNm)
		fields := map[string]interface{}{
			"vessel_key": name,
			"vessel":     name,
			"voyage":     strings.TrimSpace(row.SkdVoyNo) + strings.TrimSpace(row.SkdDirCd),
			"pol":        map[string]interface{}{"name": strings.TrimSpace(row.PolNm)},
			"pod":        map[string]interface{}{"name": strings.TrimSpace(row.PodNm)},
			"etd":        nil,
			"atd":        nil,
			"eta":        nil,
			"ata":        nil,
		}

		// C是预计,A是实际
		switch row.EtdFlag {
		case "C":
			fields["etd"] = strings.TrimSpace(row.Etd)
		case "A":
			fields["atd"] = strings.TrimSpace(row.Etd)
		}
		switch row.EtaFlag {
		case "C":
			fields["eta"] = strings.TrimSpace(row.Eta)
		case "A":
			fields["ata"] = strings.TrimSpace(row.Eta)
		}

		out = append(out, &spider.VesselItem{Task: taskID, VesselKey: name, Fields: fields})
	}

	return out, nil
}

// ContainerStatusRule 查单箱的事件列表
type ContainerStatusRule struct{}

func (r *ContainerStatusRule) Name() string { return "CONTAINER_STATUS" }

func (r *ContainerStatusRule) SaveName(resp *spider.Response) string {
	return fmt.Sprintf("%s_%s.json", r.Name(), resp.MetaString("container_key"))
}

func buildContainerStatusOption(baseURL string, c containerInfo, taskID string, searchNos, taskIDs []string) *spider.RequestOption {
	return &spider.RequestOption{
		RuleName: "CONTAINER_STATUS",
		Method:   spider.MethodPostForm,
		URL:      baseURL,
		FormData: map[string]string{
			"f_cmd":   containerStatusCmd,
			"cntr_no": c.ContainerNo,
			"bkg_no":  c.BookingNo,
			"cop_no":  c.CooperationNo,
		},
		Meta: map[string]interface{}{
			"container_key": c.ContainerNo,
			"task_id":       taskID,
			"search_nos":    searchNos,
			"task_ids":      taskIDs,
		},
	}
}

func (r *ContainerStatusRule) Handle(resp *spider.Response) ([]spider.RuleOutput, error) {
	taskID := resp.MetaString("task_id")
	containerKey := resp.MetaString("container_key")

	var envelope listEnvelope
	if err := resp.DecodeJSON(&envelope); err != nil {
		return nil, spider.NewFormatError(taskID, fmt.Sprintf("container status response is not JSON: %v", err))
	}

	var out []spider.RuleOutput
	if envelope.List != nil {
		for _, row := range *envelope.List {
			localTime := strings.TrimSpace(row.EventDt)
			if localTime == "" {
				// 无时间的事件直接忽略
				continue
			}

			out = append(out, &spider.ContainerStatusItem{
				Task:         taskID,
				ContainerKey: containerKey,
				Fields: map[string]interface{}{
					"container_key":   containerKey,
					"description":     strings.ReplaceAll(strings.TrimSpace(row.StatusNm), "<br>", " "),
					"local_date_time": localTime,
					"location":        map[string]interface{}{"name": strings.TrimSpace(row.PlaceNm)},
					"est_or_actual":   strings.TrimSpace(row.ActTpCd),
				},
			})
		}
	}

	if len(out) == 0 {
		return []spider.RuleOutput{
			spider.Restart{
				SearchNos: resp.MetaStrings("search_nos"),
				TaskIDs:   resp.MetaStrings("task_ids"),
				Reason:    "No container status info",
			},
		}, nil
	}

	return out, nil
}

// ReleaseStatusRule 查放货与海关状态
type ReleaseStatusRule struct{}

func (r *ReleaseStatusRule) Name() string { return "RELEASE_STATUS" }

func (r *ReleaseStatusRule) SaveName(resp *spider.Response) string {
	return fmt.Sprintf("%s_%s.json", r.Name(), resp.MetaString("container_key"))
}

func buildReleaseStatusOption(baseURL string, c containerInfo, taskID string) *spider.RequestOption {
	return &spider.RequestOption{
		RuleName: "RELEASE_STATUS",
		Method:   spider.MethodPostForm,
		URL:      baseURL,
		FormData: map[string]string{
			"f_cmd":   releaseStatusCmd,
			"cntr_no": c.ContainerNo,
			"bkg_no":  c.BookingNo,
		},
		Meta: map[string]interface{}{
			"container_key": c.ContainerNo,
			"task_id":       taskID,
		},
	}
}

func (r *ReleaseStatusRule) Handle(resp *spider.Response) ([]spider.RuleOutput, error) {
	taskID := resp.MetaString("task_id")
	containerKey := resp.MetaString("container_key")

	var envelope listEnvelope
	if err := resp.DecodeJSON(&envelope); err != nil {
		return nil, spider.NewFormatError(taskID, fmt.Sprintf("release status response is not JSON: %v", err))
	}

	if envelope.List == nil {
		return nil, nil
	}

	rows := *envelope.List
	if len(rows) != 1 {
		return nil, spider.NewFormatError(taskID, fmt.Sprintf("release information rows: %d", len(rows)))
	}

	row := rows[0]

	return []spider.RuleOutput{
		&spider.MblItem{
			Task: taskID,
			Fields: map[string]interface{}{
				"freight_date":    emptyAsNil(row.OcnFrtColDt),
				"us_customs_date": emptyAsNil(row.CstmsClrDt),
				"us_filing_date":  emptyAsNil(row.ImpFilDt),
				"firms_code":      emptyAsNil(row.DelFirmsCode),
			},
		},
		&spider.ContainerItem{
			Task:         taskID,
			ContainerKey: containerKey,
			Fields: map[string]interface{}{
				"container_key": containerKey,
				"last_free_day": emptyAsNil(row.LastFreeDt),
				"terminal_pod":  map[string]interface{}{"name": emptyAsNil(row.PodFirmsCode)},
			},
		},
	}, nil
}

// RailInfoRule 查铁路段的提柜与到站信息
type RailInfoRule struct{}

func (r *RailInfoRule) Name() string { return "RAIL_INFORMATION" }

func (r *RailInfoRule) SaveName(resp *spider.Response) string {
	return fmt.Sprintf("%s_%s.json", r.Name(), resp.MetaString("container_key"))
}

func buildRailInfoOption(baseURL string, c containerInfo, taskID string) *spider.RequestOption {
	return &spider.RequestOption{
		RuleName: "RAIL_INFORMATION",
		Method:   spider.MethodPostForm,
		URL:      baseURL,
		FormData: map[string]string{
			"f_cmd":  railInfoCmd,
			"cop_no": c.CooperationNo,
		},
		Meta: map[string]interface{}{
			"container_key": c.ContainerNo,
			"task_id":       taskID,
		},
	}
}

func (r *RailInfoRule) Handle(resp *spider.Response) ([]spider.RuleOutput, error) {
	taskID := resp.MetaString("task_id")
	containerKey := resp.MetaString("container_key")

	var envelope listEnvelope
	if err := resp.DecodeJSON(&envelope); err != nil {
		return nil, spider.NewFormatError(taskID, fmt.Sprintf("rail info response is not JSON: %v", err))
	}

	if envelope.List == nil {
		return nil, nil
	}

	rows := *envelope.List
	if len(rows) != 1 {
		return nil, spider.NewFormatError(taskID, fmt.Sprintf("rail information rows: %d", len(rows)))
	}

	row := rows[0]

	return []spider.RuleOutput{
		&spider.ContainerItem{
			Task:         taskID,
			ContainerKey: containerKey,
			Fields: map[string]interface{}{
				"container_key":     containerKey,
				"ready_for_pick_up": emptyAsNil(row.PickUpAvail),
				"railway":           emptyAsNil(row.InArrYardNm),
				"final_dest_eta":    emptyAsNil(row.InArrDate),
			},
		},
	}, nil
}

// NextRoundRule 一轮查完后截掉已处理的单号,必要时重新进FIRST_TIER
type NextRoundRule struct{}

func (r *NextRoundRule) Name() string { return "NEXT_ROUND" }

// 进入下一轮查询,Restart重试预算重新起算
func (r *NextRoundRule) ResetsRound() bool { return true }

func buildNextRoundOption(baseURL, searchType string, searchNos, taskIDs []string) *spider.RequestOption {
	return &spider.RequestOption{
		RuleName: "NEXT_ROUND",
		Method:   spider.MethodGet,
		URL:      healthCheckURL,
		Meta: map[string]interface{}{
			"base_url":    baseURL,
			"search_type": searchType,
			"search_nos":  searchNos,
			"task_ids":    taskIDs,
		},
	}
}

func (r *NextRoundRule) Handle(resp *spider.Response) ([]spider.RuleOutput, error) {
	taskIDs := resp.MetaStrings("task_ids")
	searchNos := resp.MetaStrings("search_nos")
	baseURL := resp.MetaString("base_url")
	searchType := resp.MetaString("search_type")

	// 每个task链都要显式收尾,否则pipeline按未走完处理
	var out []spider.RuleOutput
	endedIDs := taskIDs
	if len(endedIDs) > MaxPageNum {
		endedIDs = endedIDs[:MaxPageNum]
	}

	for _, taskID := range endedIDs {
		out = append(out, &spider.EndItem{Task: taskID})
	}

	if len(searchNos) <= MaxPageNum {
		return out, nil
	}

	out = append(out, buildFirstTierOption(baseURL, searchType, searchNos[MaxPageNum:], taskIDs[MaxPageNum:]))

	return out, nil
}

func emptyAsNil(s string) interface{} {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	return s
}
