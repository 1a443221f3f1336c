package nsrail

import (
	"fmt"
	"strings"

	"github.com/TaikerLiang/shipment-crawler/spider"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// NewRuleTree 组装NS铁路的批量箱况查询流程
// 站点一次查完整批箱号,结果都在一张track&trace表里
func NewRuleTree(resultURL string) spider.RuleTree {
	return spider.RuleTree{
		Root: func(t *spider.Task) ([]*spider.RequestOption, error) {
			return []*spider.RequestOption{
				buildContainerOption(resultURL, t.SearchNos, t.TaskIDs),
			}, nil
		},
		Trunk: []spider.RoutingRule{
			&ContainerRule{},
		},
		OnRestart: func(t *spider.Task, sig spider.Restart) (*spider.RequestOption, error) {
			return buildContainerOption(resultURL, sig.SearchNos, sig.TaskIDs), nil
		},
	}
}

// ContainerRule 查询结果页表格,按Equipment ID对回输入箱号
type ContainerRule struct{}

func (r *ContainerRule) Name() string { return "CONTAINER" }

func (r *ContainerRule) SaveName(resp *spider.Response) string {
	return fmt.Sprintf("%s.html", r.Name())
}

func buildContainerOption(resultURL string, containerNos, taskIDs []string) *spider.RequestOption {
	return &spider.RequestOption{
		RuleName: "CONTAINER",
		Method:   spider.MethodGet,
		URL:      fmt.Sprintf("%s?equipments=%s", resultURL, strings.Join(containerNos, ",")),
		Meta: map[string]interface{}{
			"container_nos": containerNos,
			"task_ids":      taskIDs,
		},
	}
}

func (r *ContainerRule) Handle(resp *spider.Response) ([]spider.RuleOutput, error) {
	containerNos := resp.MetaStrings("container_nos")
	taskIDs := resp.MetaStrings("task_ids")

	doc, err := resp.HTMLNode()
	if err != nil {
		return nil, spider.NewFormatError("", fmt.Sprintf("rail result page is not HTML: %v", err))
	}

	invalidNos := map[string]struct{}{}
	if htmlquery.FindOne(doc, "//button[@aria-label='No Results Found']") != nil {
		errorTexts := htmlquery.Find(doc, "//h5[contains(@class,'d-inline-block')]")
		if len(errorTexts) == 0 {
			return nil, spider.NewFormatError("", "no-results banner without error detail")
		}

		for _, node := range errorTexts {
			no := strings.ReplaceAll(htmlquery.InnerText(node), " ", "")
			if no != "" {
				invalidNos[no] = struct{}{}
			}
		}
	}

	infos := extractContainerInfos(doc)
	if len(infos) == 0 && len(invalidNos) == 0 {
		// 页面既无表格也无错误提示,多半是没加载完
		return []spider.RuleOutput{
			spider.Restart{SearchNos: containerNos, TaskIDs: taskIDs, Reason: "empty track and trace page"},
		}, nil
	}

	var out []spider.RuleOutput
	for i, containerNo := range containerNos {
		taskID := taskIDs[i]
		// 表格里的箱号不带校验码
		bare := containerNo
		if len(bare) > 0 {
			bare = bare[:len(bare)-1]
		}

		if _, ok := invalidNos[bare]; ok {
			out = append(out,
				&spider.DataNotFoundItem{
					Task:     taskID,
					SearchNo: containerNo,
					Detail:   "Data was not found",
				},
				&spider.EndItem{Task: taskID},
			)

			continue
		}

		info, ok := infos[bare]
		if !ok {
			continue
		}

		out = append(out,
			&spider.RailItem{
				Task:         taskID,
				ContainerKey: containerNo,
				Fields: map[string]interface{}{
					"container_key":     containerNo,
					"container_no":      containerNo,
					"last_event_date":   info["Last Event Date & Time"],
					"origin_location":   info["Origin"],
					"final_destination": info["Destination"],
					"current_location":  info["Current Location"],
					"description":       eventDescription(info["Event Code"]),
					"eta":               info["ETA/I"],
				},
			},
			&spider.EndItem{Task: taskID},
		)
	}

	return out, nil
}

// ag-grid表格:表头与行体分开渲染,按列序号对回标题
func extractContainerInfos(doc *html.Node) map[string]map[string]string {
	var titles []string
	for _, node := range htmlquery.Find(doc, "//span[contains(@class,'ag-header-cell-text')]") {
		titles = append(titles, strings.TrimSpace(htmlquery.InnerText(node)))
	}

	infos := map[string]map[string]string{}
	rows := htmlquery.Find(doc, "//div[contains(@class,'ag-center-cols-container')]/div")
	for _, row := range rows {
		cells := htmlquery.Find(row, "./div")
		if len(cells) < 2 {
			continue
		}

		record := map[string]string{}
		for i, cell := range cells[1:] {
			if i >= len(titles) {
				break
			}

			record[titles[i]] = strings.TrimSpace(htmlquery.InnerText(cell))
		}

		containerNo := strings.ReplaceAll(record["Equipment ID"], " ", "")
		if containerNo == "" {
			continue
		}

		infos[containerNo] = record
	}

	return infos
}

func eventDescription(code string) string {
	if desc, ok := eventMap[code]; ok {
		return desc
	}

	return code
}

// AAR车辆事件代码,未收录的原样返回
var eventMap = map[string]string{
	"ABNO": "ARRIVED BUT NOT ORDERED",
	"ADRI": "PULLED FROM THE CUSTOMER",
	"AETA": "ADVANCED ETA",
	"AETI": "ETA AT INTERCHANGE POINT",
	"AINV": "INVENTORY MOVE (AAR USE ONLY)",
	"ARIL": "ARRIVAL AT INTRANSIT LOCATION",
	"ARRI": "ARRIVAL AT FINAL DESTINATION",
	"AVPL": "AVAILABLE FOR PLACEMENT",
	"BADO": "BAD ORDER",
	"BFRM": "BAD ORDER FROM",
	"BHVY": "BAD ORDER HEAVY-TO-REPAIR",
	"BLGT": "BAD ORDER LIGHT-TO-REPAIR",
	"BOGD": "BAD ORDER (SIMS)",
	"BOHR": "BAD ORDER HOURS-TO-REPAIR",
	"BOLA": "BILL OF LADING ENTERED BY SIMS",
	"BOLP": "PHYSICAL BILL CREATED AT DEST",
	"BXNG": "BOUNDARY CROSSING",
	"CGIP": "CAR GRADE BY INSPECTION",
	"CGRD": "CAR GRADE BY WAYBILL (AAR)",
	"CH80": "CH RULE 5 TERMINAL SWITCH",
	"CH81": "CH RULE 5-INTERMEDIAT SWITCH",
	"CH82": "CH RULE 15 TO DELINQUENT RD",
	"CH83": "CH RULE 15- TO HOLDING RD",
	"CH84": "CH RULE 5-INTERM FOLLOW INTERM",
	"CH85": "CH RULE 5-TERM FOLLOW INTERM",
	"CONF": "CONFIRMATION OF NOTIFICATION",
	"CPRQ": "REQUEST FOR CONSTRUCTIVE PLACE",
	"DAMG": "DAMAGE TO EQUIP WAS REPORTED",
	"DCHG": "DATA CHANGE TO BOL",
	"DFLC": "DEPARTED FROM LOCATION",
	"DLCM": "OUTGATE FOR CO-MATERIAL XFER",
	"DLEL": "OUTGATE EMPTY FOR LOAD SHIFT",
	"DLFR": "OUTGATED FOR RETIREMENT",
	"DLLL": "LIVE LIFT OUTGATE",
	"DLLS": "OUTGATE LOAD FOR LOAD SHIFT",
	"DLLT": "OUTGATE LOAD FOR LOT TRANSFER",
	"DLNR": "OUTGATE FOR NON-REVENUE LOAD",
	"DLOF": "OUTGATE FOR RETURN",
	"DLOV": "OUTGATE FOR OVER THE ROAD",
	"DLRP": "OUTGATE FOR REPAIR",
	"DLTA": "OUTGATE FOR TURNAROUND",
	"DLTN": "OUTGATE FOR TERMINATION",
	"DPAC": "DEMURRAGE PLACE",
	"DPUL": "DEMURRAGE PULL",
	"DRMP": "DERAMPED",
	"DUMP": "COAL DUMP MOVE (TYES EVENT)",
	"ECHG": "EQUIPMENT CHANGE ON BOL",
	"EMAV": "EMPTY AVAILABLE FOR USE",
	"EMDV": "EMPTY AVAILABLE FOR USE-GRD D",
	"ENRT": "ENROUTE",
	"EQPP": "EQUIPMENT POSITION REPORT",
	"ERPO": "END REPOSITION OF EMPTY EQUIP",
	"EWIP": "EARLY WARNING INSPECTION",
	"EWLT": "EARLY WARNING LETTER--AAR ONLY",
	"FADD": "INVENTORY FORCE ADD",
	"FDEL": "INVENTORY FORCE DEL",
	"FMVE": "INVENTORY FORCE MOVE",
	"FRTK": "FROM REPAIR TRACK",
	"HADR": "HWY DEPART FROM RR FAC TO CUST",
	"HHAR": "HWY ARRIVAL AT RR FAC FROM CUS",
	"HIGT": "INTERMODAL IN-GATE INTERMEDIAT",
	"HLCK": "HITCH LOCK CHECK",
	"HMIS": "TO HOLD, DELAYED, MISC",
	"HOGT": "INTERMODAL OUT-GATE INTERMEDIA",
	"HOLD": "HOLD ORDERS PLACED ON EQUIPMNT",
	"ICHD": "INTERCHANGE DELIVERY",
	"ICHG": "INTERCHANGE",
	"ICHR": "INTERCHANGE RECEIPT",
	"ICHV": "INTERCHANGE RECORD VERIFIED",
	"ILFC": "INTERMEDIATE LOAD ON FLATCAR",
	"INSP": "REEFER WAS INSPECTED",
	"IRFC": "INTERMEDIATE REMOVE FROM CAR",
	"LASN": "LOCOMOTIVE ASSIGNED TO TRAIN",
	"LCOM": "LAST COMMODITY",
	"LDCH": "CONTAINER ATTACHED TO CHASSIS",
	"LDFC": "LOADED ON FLAT CAR",
	"LDSF": "LOAD SHIFTED FROM",
	"LDST": "LOAD SHIFTED TO",
	"LINE": "RELEASE TRAILER FOR CASH",
	"LTCK": "LOT INVENTORY COMPLETED",
	"LUSN": "LOCOMOTIVE UNASSIGNED FROM TRN",
	"MAWY": "MOVE AWAY",
	"MNOT": "SHIPMENT CHANGE, RENOTIFY",
	"MRLS": "MECH RLSE TO TRANSP FOR MVMNT",
	"MURL": "MECH UN-RLSE TO TRANSP",
	"NCHG": "SHIPMENT NOTIFICATION CHANGE",
	"NOBL": "NO BILL AT LOCATION",
	"NOCU": "NOTIFIED CUSTOMS",
	"NOPA": "NOTIFY PATRON -- EQUIP AVAIL",
	"NOTE": "NOTIFIED VIA EDI",
	"NOTF": "NOTIFIED VIA FAX",
	"NOTV": "NOTIFIED VIA VOICE",
	"NTFY": "USER GENERATED CUSTOMER NOTIFY",
	"OPRO": "PLACE REQUEST (CSAO)",
	"ORPL": "ORDERED FOR PLACEMENT",
	"OSTH": "FROM STORAGE,HOLD, DELAYED,MISC",
	"PACT": "PLACEMENT - ACTUAL",
	"PCON": "PLACEMENT CONSTRUCTIVE",
	"PFLT": "PULL FROM LEASED TRACK",
	"PFPS": "CAR PULLED FROM PATRON SIDING",
	"PLJI": "PLACED AT JOINT INDUSTRY",
	"PLLF": "PLACED LOAD TO LT FOR FORWARDI",
	"PLLT": "PLACED TO LEASED TRACK",
	"PLMC": "PLACED AT MIXING CENTER (TYES)",
	"PLRM": "PLACED AT PIGGYBACK FACILITY",
	"PUJI": "PULLED FROM JOINT INDUSTRY",
	"PULL": "PULLED FOR SHIPMENT",
	"PUMC": "PULLED FR MIXING CENTER (TYES)",
	"PURM": "PULLED FROM PIGGYBACK FACILITY",
	"PURQ": "PULL REQUEST (CSAO)",
	"RAMP": "RAMPED",
	"RCCM": "INGATE FOR CO-MATERIAL XFER",
	"RCEL": "INGATE EMPTY FOR LOAD SHIFT",
	"RCFR": "INGATE FOR RETIREMENT",
	"RCIF": "INGATE FOR EQUIPMENT RETURN",
	"RCLL": "LIVE LIFT INGATE",
	"RCLS": "INGATE AS RETURN FOR LOAD SHFT",
	"RCLT": "INGATE FROM LOT TRANSFER",
	"RCNR": "INGATE FOR NON-REVENUE SHIPMNT",
	"RCOR": "INGATE FROM EQUIP ORININATION",
	"RCOV": "INGATE FOR OVER THE ROAD",
	"RCRP": "INGATE FROM REPAIR",
	"REBL": "REBILLED/RECONSIGNED/RESPOT",
	"REJS": "REJECTION BY SHIPPER",
	"RELC": "RELEASED FROM CUSTOMERS",
	"RELS": "DEMURRAGE RELEASE",
	"RFLT": "RELEASED FROM LT FOR FORWARDI",
	"RLOD": "RELEASE LOADED",
	"RLSE": "RELEASE FROM RAILWAY FOR PULL",
	"RLSH": "RELEASE HOLD",
	"RMFC": "REMOVED FROM FLATCAR",
	"RMTY": "RELEASE EMPTY",
	"RNOT": "RE-NOTIFICATION",
	"RRFS": "OWNER/POOL OP ORDERED CAR RETN",
	"RTAA": "TRAVELNG PER AAR/ICC DIRECTIVE",
	"RTOI": "TRAVELNG TO OWNER PER HIS INST",
	"RTPO": "TRAVELNG TO POOL OP--HIS INST",
	"SCAN": "AEL SCANNER REPORTING",
	"SEAL": "SEAL APPLIED TO UNIT",
	"STEA": "TO STORAGE - ACTUAL(346-8)",
	"STEX": "TO STORAGE INTENDED(346-8)",
	"STPL": "TO STORAGE PROSPECTIVE LOADING",
	"STSE": "TO STORAGE SEASONABLE USE",
	"STSU": "TO STORAGE SERVICEABLE SURPLUS",
	"STUN": "TO STORAGE UNSERVICEABLE",
	"SWAP": "SWAP CHASSIS",
	"TKMV": "TRACK MOVE/INVENTORY MOVE",
	"TOLA": "TRANSFER OF LIABILITY-ACCEPTED",
	"TOLD": "TRANSFER OF LIABILITY-DECLINED",
	"TOLS": "TRANSFER OF LIABILITY-SENT",
	"TRTK": "TO REPAIR TRACK",
	"ULCH": "CONTAINER REMOVED FROM CHASSIS",
	"UNKN": "CAR ON FILE, NO MOVES REPORTED",
	"UNLD": "AUTOMOTIVE RAMP UNLOAD EVENT",
	"UPAC": "TYES UPDATE OF ACCOUNT ROAD",
	"UPLR": "UNPLACE AT RAMP",
	"URLS": "UNRELEASE FROM RAMP",
	"UTCS": "DISPATCH REPORTING",
	"VOID": "BILL OF LADING VOIDED",
	"WAYB": "WAYBILL RESPONSE",
	"WAYR": "WAYBILL RATED",
	"WCIL": "INTERLINE WAYBILL EVENT",
	"WCLN": "LOCAL NON-REVENUE WAYBILL EVT",
	"WCLR": "LOCAL REVENUE WAYBILL EVENT",
	"WCMT": "EMPTY WAYBILL EVENT",
	"WREL": "WAYBILL RELEASE",
	"XFRI": "TYES TRANSFER INTO INVENTORY",
	"XFRO": "TYES TRANSFER OUT OF INVENTORY",
	"YDEN": "YARD END (TYES -- CREW OFF)",
	"YDST": "YARD START (TYES -- CREW ON)",
}
