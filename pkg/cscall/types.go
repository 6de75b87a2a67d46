package cscall

import "strings"

// TelCallState состояние одной голосовой ветви (call leg) по версии модема.
// Значения соответствуют состояниям вызова CS-домена (2G/3G).
type TelCallState int32

const (
	CallStatusActive TelCallState = iota
	CallStatusHolding
	CallStatusDialing
	CallStatusAlerting
	CallStatusIncoming
	CallStatusWaiting
	CallStatusDisconnecting
	CallStatusDisconnected
)

var callStateNames = map[TelCallState]string{
	CallStatusActive:        "ACTIVE",
	CallStatusHolding:       "HOLDING",
	CallStatusDialing:       "DIALING",
	CallStatusAlerting:      "ALERTING",
	CallStatusIncoming:      "INCOMING",
	CallStatusWaiting:       "WAITING",
	CallStatusDisconnecting: "DISCONNECTING",
	CallStatusDisconnected:  "DISCONNECTED",
}

func (s TelCallState) String() string {
	if name, ok := callStateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// NetworkType тип сети, возвращаемый внешним запросом состояния сети.
type NetworkType int32

const (
	NetworkTypeUnknown NetworkType = iota
	NetworkTypeGSM
	NetworkTypeCDMA
)

func (n NetworkType) String() string {
	switch n {
	case NetworkTypeGSM:
		return "GSM"
	case NetworkTypeCDMA:
		return "CDMA"
	default:
		return "UNKNOWN"
	}
}

// CLIRMode режим подавления определения номера (Calling Line
// Identification Restriction) для исходящего набора.
type CLIRMode int32

const (
	CLIRDefault CLIRMode = iota
	CLIRInvocation
	CLIRSuppression
)

// CallSupplementType тип операции HangUp. Определяет, завершается ли
// конкретная ветвь или класс ветвей (активные / удерживаемые / все).
type CallSupplementType int32

const (
	TypeDefault CallSupplementType = iota
	TypeHangUpHoldWait
	TypeHangUpActive
	TypeHangUpAll
)

func (t CallSupplementType) String() string {
	switch t {
	case TypeDefault:
		return "DEFAULT"
	case TypeHangUpHoldWait:
		return "HANG_UP_HOLD_WAIT"
	case TypeHangUpActive:
		return "HANG_UP_ACTIVE"
	case TypeHangUpAll:
		return "HANG_UP_ALL"
	default:
		return "UNKNOWN"
	}
}

// CallType тип вызова. Движок обслуживает только CS-домен, но тип
// прокидывается в отчеты и диагностические события как есть.
type CallType int32

const (
	CallTypeCS CallType = iota
	CallTypeIMS
)

// VideoState видеосостояние вызова (для CS всегда voice).
type VideoState int32

const (
	VideoStateVoice VideoState = iota
	VideoStateVideo
)

// CallInfo запрос сервисного уровня на операцию с вызовом.
type CallInfo struct {
	SlotID     int32
	Number     string
	Index      int32
	CallType   CallType
	VideoState VideoState
}

// CallReportInfo снимок состояния одной ветви для отчета наверх.
// После построения обновляется только поле State.
type CallReportInfo struct {
	Index      int32
	Number     string
	State      TelCallState
	CallType   CallType
	VideoState VideoState
}

// CallsReportInfo пакет снимков всех ветвей одного слота.
type CallsReportInfo struct {
	SlotID int32
	Calls  []CallReportInfo
}

// ModemCall одна запись из отчета модема: кортеж (номер, индекс, состояние).
type ModemCall struct {
	Number string
	Index  int32
	State  TelCallState
}

// CallInfoList отчет модема о текущем наборе вызовов слота.
// Только для чтения, движок им не владеет.
type CallInfoList struct {
	Calls []ModemCall
}

// DialRequest параметры низкоуровневого запроса набора.
type DialRequest struct {
	Number   string
	CLIRMode CLIRMode
}

// cleanDialString убирает разделители из набираемой строки.
// Модему уходит только значимая часть номера.
func cleanDialString(number string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.', '/':
			return -1
		}
		return r
	}, number)
}
