package cscall

import (
	"context"
	"time"
)

// Radio доступ к радио-слою (модему). Session возвращает обработчик
// конкретного SIM-слота; ошибка означает, что слой или обработчик
// недоступны — операции над ним не выполняются.
type Radio interface {
	Session(slotID int32) (RadioSession, error)
}

// RadioSession низкоуровневые команды модема для одного слота.
// Все команды асинхронные: возвращаемая ошибка означает только отказ
// принять запрос, результат приходит отдельным каналом отчетов.
type RadioSession interface {
	Dial(ctx context.Context, req DialRequest) error
	ThreeWayDial(ctx context.Context, req DialRequest) error
	Hangup(ctx context.Context, index int32) error
	Answer(ctx context.Context) error
	Reject(ctx context.Context) error
	HoldCall(ctx context.Context) error
	UnHoldCall(ctx context.Context) error
	SwitchCall(ctx context.Context) error
	CombineConference(ctx context.Context) error
	SeparateConference(ctx context.Context, index int32) error
	CallSupplement(ctx context.Context, spType CallSupplementType) error
	SendDTMF(ctx context.Context, digit byte, index int32) error
	StartDTMF(ctx context.Context, digit byte, index int32) error
	StopDTMF(ctx context.Context, index int32) error
	GetCallList(ctx context.Context) error
	GetCallFailReason(ctx context.Context) error
}

// NetworkQuery внешний запрос типа сети слота.
type NetworkQuery interface {
	NetworkType(slotID int32) NetworkType
}

// MMIClassifier внешний детектор MMI-кодов. Evaluate получает уже
// очищенный номер; handled=true означает, что строка является
// MMI-кодом и набор не выполняется. CLIR-режим возвращается в любом
// случае (префикс *31#/#31# может лишь модифицировать набор).
type MMIClassifier interface {
	Evaluate(slotID int32, number string) (clir CLIRMode, handled bool)
}

// PreDialJudge внешняя предварительная проверка набора
// (валидность слота, наличие SIM, непустой номер).
type PreDialJudge interface {
	Evaluate(slotID int32, info CallInfo) error
}

// FaultEvent диагностическое событие об отказе операции.
// Отправляется без подтверждения, только для наблюдаемости.
type FaultEvent struct {
	ID         string
	Op         string
	SlotID     int32
	CallType   CallType
	VideoState VideoState
	ErrorCode  Code
	Reason     string
	At         time.Time
}

// FaultSink приемник диагностических событий.
type FaultSink interface {
	ReportFault(event FaultEvent)
}

// CallsObserver наблюдатель менеджера вызовов. Если наблюдатель не
// зарегистрирован, отчеты отбрасываются.
type CallsObserver interface {
	ReportCallsInfo(batch CallsReportInfo)
	ReportSingleCallInfo(info CallReportInfo, state TelCallState)
}
