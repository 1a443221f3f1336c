package tideworks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/TaikerLiang/shipment-crawler/spider"
)

// CompanyInfo 同一套Tideworks系统部署在多个码头,只有域名与账号不同
type CompanyInfo struct {
	LowerShort string
	UpperShort string
	Email      string
	Password   string
}

// NewRuleTree 组装Tideworks码头的登录-搜索-详情流程
func NewRuleTree(info CompanyInfo) spider.RuleTree {
	return spider.RuleTree{
		Root: func(t *spider.Task) ([]*spider.RequestOption, error) {
			return []*spider.RequestOption{
				buildLoginOption(info, t.SearchNos, t.TaskIDs),
			}, nil
		},
		Trunk: []spider.RoutingRule{
			&LoginRule{info: info},
			&SearchContainerRule{info: info},
			&ContainerDetailRule{},
		},
		OnRestart: func(t *spider.Task, sig spider.Restart) (*spider.RequestOption, error) {
			return buildLoginOption(info, sig.SearchNos, sig.TaskIDs), nil
		},
	}
}

// LoginRule 表单登录,成功后给每个箱号派一条搜索请求
type LoginRule struct {
	info CompanyInfo
}

func (r *LoginRule) Name() string { return "LOGIN" }

func (r *LoginRule) SaveName(resp *spider.Response) string {
	return fmt.Sprintf("%s.html", r.Name())
}

func buildLoginOption(info CompanyInfo, containerNos, taskIDs []string) *spider.RequestOption {
	return &spider.RequestOption{
		RuleName: "LOGIN",
		Method:   spider.MethodPostForm,
		URL: fmt.Sprintf("https://%s.tideworks.com/fc-%s/j_spring_security_check",
			info.LowerShort, info.UpperShort),
		FormData: map[string]string{
			"j_username": info.Email,
			"j_password": info.Password,
		},
		Meta: map[string]interface{}{
			"container_nos": containerNos,
			"task_ids":      taskIDs,
		},
	}
}

func (r *LoginRule) Handle(resp *spider.Response) ([]spider.RuleOutput, error) {
	containerNos := resp.MetaStrings("container_nos")
	taskIDs := resp.MetaStrings("task_ids")

	var out []spider.RuleOutput
	for i, containerNo := range containerNos {
		out = append(out, buildSearchOption(r.info, containerNo, taskIDs[i]))
	}

	return out, nil
}

// SearchContainerRule 按箱号搜索,拿详情页链接
type SearchContainerRule struct {
	info CompanyInfo
}

func (r *SearchContainerRule) Name() string { return "SEARCH_CONTAINER" }

func (r *SearchContainerRule) SaveName(resp *spider.Response) string {
	return fmt.Sprintf("%s_%s.html", r.Name(), resp.MetaString("container_no"))
}

func buildSearchOption(info CompanyInfo, containerNo, taskID string) *spider.RequestOption {
	return &spider.RequestOption{
		RuleName: "SEARCH_CONTAINER",
		Method:   spider.MethodPostForm,
		URL: fmt.Sprintf("https://%s.tideworks.com/fc-%s/import/default.do?method=defaultSearch",
			info.LowerShort, info.UpperShort),
		FormData: map[string]string{
			"searchBy": "CTR",
			"numbers":  containerNo,
		},
		Meta: map[string]interface{}{
			"container_no": containerNo,
			"task_id":      taskID,
		},
	}
}

func (r *SearchContainerRule) Handle(resp *spider.Response) ([]spider.RuleOutput, error) {
	containerNo := resp.MetaString("container_no")
	taskID := resp.MetaString("task_id")

	doc, err := resp.Document()
	if err != nil {
		return nil, spider.NewFormatError(taskID, fmt.Sprintf("search page is not HTML: %v", err))
	}

	if isContainerNoInvalid(doc) {
		return []spider.RuleOutput{
			&spider.DataNotFoundItem{
				Task:     taskID,
				SearchNo: containerNo,
				Detail:   "Data was not found",
			},
			&spider.EndItem{Task: taskID},
		}, nil
	}

	href, ok := doc.Find("div#result tr td a").First().Attr("href")
	if !ok {
		return nil, spider.NewFormatError(taskID, "container link has no href")
	}

	return []spider.RuleOutput{
		buildDetailOption(r.info, href, containerNo, taskID),
	}, nil
}

func isContainerNoInvalid(doc *goquery.Document) bool {
	if doc.Find("div#result tr td a").Length() == 0 {
		return true
	}

	invalid := false
	doc.Find("div#result tr td").Each(func(_ int, s *goquery.Selection) {
		if strings.Contains(s.Text(), "Check nearby locations") {
			invalid = true
		}
	})

	return invalid
}

// ContainerDetailRule 详情页,箱况字段都在label: value形式的div里
type ContainerDetailRule struct{}

func (r *ContainerDetailRule) Name() string { return "CONTAINER_DETAIL" }

func (r *ContainerDetailRule) SaveName(resp *spider.Response) string {
	return fmt.Sprintf("%s_%s.html", r.Name(), resp.MetaString("container_no"))
}

func buildDetailOption(info CompanyInfo, containerURL, containerNo, taskID string) *spider.RequestOption {
	return &spider.RequestOption{
		RuleName: "CONTAINER_DETAIL",
		Method:   spider.MethodGet,
		URL:      fmt.Sprintf("https://%s.tideworks.com%s", info.LowerShort, containerURL),
		Meta: map[string]interface{}{
			"container_no": containerNo,
			"task_id":      taskID,
		},
	}
}

var (
	containerNoPattern = regexp.MustCompile(`^Container - (.+)$`)
	vesselPattern      = regexp.MustCompile(`^([\w\s]+)/`)
)

func (r *ContainerDetailRule) Handle(resp *spider.Response) ([]spider.RuleOutput, error) {
	taskID := resp.MetaString("task_id")

	doc, err := resp.Document()
	if err != nil {
		return nil, spider.NewFormatError(taskID, fmt.Sprintf("detail page is not HTML: %v", err))
	}

	header := strings.TrimSpace(doc.Find("div.page-header h2").First().Text())
	m := containerNoPattern.FindStringSubmatch(header)
	if m == nil {
		return nil, spider.NewFormatError(taskID, fmt.Sprintf("unexpected page header: `%s`", header))
	}
	containerNo := m[1]

	info := extractLabeledDivs(doc, "div.col-sm-4 div")
	extra := extractLabeledDivs(doc, "div.col-sm-6 div")
	for k, v := range extractLabeledDivs(doc, "div.col-sm-2 div") {
		extra[k] = v
	}

	vessel := ""
	if vm := vesselPattern.FindStringSubmatch(info["Vessel/Voyage"]); vm != nil {
		vessel = strings.TrimSpace(vm[1])
	}

	holds := extra["Holds"]
	fields := map[string]interface{}{
		"container_key":     containerNo,
		"container_no":      containerNo,
		"discharge_date":    info["Unload Date"],
		"ready_for_pick_up": info["Available for pickup"],
		"container_spec":    info["Size/Type"],
		"carrier":           info["Line"],
		"cy_location":       info["Location"],
		"vessel":            vessel,
		"weight":            strings.Join(strings.Fields(info["Weight"]), " "),
		"carrier_release":   extra["Line Release Status"],
		"customs_release":   extra["Customs Release Status"],
		"last_free_day":     extra["Satisfied Thru"],
		"demurrage":         extra["Demurrage"],
		"holds":             emptyHolds(holds),
	}

	return []spider.RuleOutput{
		&spider.ContainerItem{Task: taskID, ContainerKey: containerNo, Fields: fields},
		&spider.EndItem{Task: taskID},
	}, nil
}

// label和value挤在同一个div里,偶尔label单独成行
func extractLabeledDivs(doc *goquery.Document, selector string) map[string]string {
	out := map[string]string{}
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}

		parts := strings.SplitN(text, ":", 2)
		key := strings.TrimSpace(parts[0])
		if key == "" {
			return
		}

		value := ""
		if len(parts) == 2 {
			value = strings.Join(strings.Fields(parts[1]), " ")
		}

		out[key] = value
	})

	return out
}

func emptyHolds(holds string) interface{} {
	if holds == "" || holds == "None" {
		return nil
	}

	return holds
}
