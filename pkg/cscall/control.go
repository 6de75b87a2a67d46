package cscall

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxConnections потолок одновременных ветвей для нового набора.
// Соответствует правилам multiparty GSM/CDMA: активная плюс удерживаемая.
const DefaultMaxConnections = 2

// Config конфигурация движка управления вызовами
type Config struct {
	// Потолок одновременных ветвей для допуска нового набора.
	// 0 означает DefaultMaxConnections.
	MaxConnections int
	// Логгер; nil означает slog.Default()
	Logger *slog.Logger

	// Внешние участники. Radio обязателен для выполнения запросов, его
	// отсутствие дает ResourceUnavailable на каждой операции. Остальные
	// опциональны.
	Radio    Radio
	Network  NetworkQuery
	MMI      MMIClassifier
	PreJudge PreDialJudge
	Faults   FaultSink
}

// CSControl оркестратор состояний вызовов CS-домена одного SIM-слота.
//
// Держит карту ветвей, проверяет допустимость запрошенных переходов по
// совокупному состоянию карты, передает низкоуровневые запросы через
// Connection и сверяет периодические отчеты модема с картой.
//
// Экземпляр обслуживает один слот; один мьютекс явно выражает
// последовательный доступ к карте и флагам подавления.
type CSControl struct {
	config Config
	log    *slog.Logger

	connectionMap *connectionMap
	observer      CallsObserver

	// Одноразовые флаги подавления отчетов: первый INCOMING до
	// регистрации наблюдателя не репортится, как и парный ему hangup.
	ignoredIncomingCall bool
	ignoredHangupReport bool

	mu sync.Mutex
}

// NewCSControl создает движок для одного слота
func NewCSControl(cfg Config) *CSControl {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultMaxConnections
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CSControl{
		config:        cfg,
		log:           cfg.Logger.With(slog.String("component", "cscall")),
		connectionMap: newConnectionMap(),
	}
}

// RegisterCallsObserver регистрирует наблюдателя менеджера вызовов
func (ctl *CSControl) RegisterCallsObserver(observer CallsObserver) {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.observer = observer
}

// UnregisterCallsObserver снимает наблюдателя; отчеты отбрасываются
func (ctl *CSControl) UnregisterCallsObserver() {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	ctl.observer = nil
}

// newTransientConnection временный (unbound) обработчик для классовых
// операций, не привязанных к отслеживаемой ветви
func (ctl *CSControl) newTransientConnection() *Connection {
	return newConnection(ctl.config.Radio, ctl.config.Faults, ctl.log)
}

// newTrackedConnection ветвь для вставки в карту
func (ctl *CSControl) newTrackedConnection() *Connection {
	return newConnection(ctl.config.Radio, ctl.config.Faults, ctl.log)
}

// canCall контроль допуска: новый набор разрешен, пока живых ветвей
// меньше потолка
func (ctl *CSControl) canCall() bool {
	return ctl.connectionMap.Len() < ctl.config.MaxConnections
}

// Dial размещает исходящий вызов. Сначала внешняя предварительная
// проверка, затем диспетчеризация по типу сети; вне GSM/CDMA — отказ.
func (ctl *CSControl) Dial(ctx context.Context, info CallInfo) (err error) {
	defer func() { observeOperation("Dial", err) }()

	if ctl.config.PreJudge != nil {
		if err = ctl.config.PreJudge.Evaluate(info.SlotID, info); err != nil {
			ctl.log.Error("набор отклонен предварительной проверкой",
				slog.Int("slot", int(info.SlotID)),
				slog.String("error", err.Error()))
			return err
		}
	}

	netType := NetworkTypeUnknown
	if ctl.config.Network != nil {
		netType = ctl.config.Network.NetworkType(info.SlotID)
	}
	switch netType {
	case NetworkTypeGSM:
		return ctl.DialGsm(ctx, info)
	case NetworkTypeCDMA:
		return ctl.DialCdma(ctx, info)
	default:
		ctl.log.Error("набор вне GSM/CDMA",
			slog.Int("slot", int(info.SlotID)),
			slog.String("network", netType.String()))
		return newCallError(CodeUnsupportedNetworkType, "Dial", info.SlotID, "сеть не GSM и не CDMA")
	}
}

// DialGsm набор в GSM. Активная ветвь предварительно удерживается
// запросом SwitchCall; оба запроса асинхронные, набор не ждет
// завершения переключения.
func (ctl *CSControl) DialGsm(ctx context.Context, info CallInfo) (err error) {
	defer func() { observeOperation("DialGsm", err) }()

	number := cleanDialString(info.Number)
	clir := CLIRDefault
	if ctl.config.MMI != nil {
		mode, handled := ctl.config.MMI.Evaluate(info.SlotID, number)
		clir = mode
		if handled {
			ctl.log.Info("строка распознана как MMI-код",
				slog.Int("slot", int(info.SlotID)))
			return newCallError(CodeMMIHandled, "DialGsm", info.SlotID, "MMI-код, вызов не размещается")
		}
	}

	ctl.mu.Lock()
	if !ctl.canCall() {
		ctl.mu.Unlock()
		return newCallError(CodeCallCountExceeded, "DialGsm", info.SlotID, "достигнут потолок одновременных ветвей")
	}
	activeConn, hasActive := ctl.connectionMap.FindState(CallStatusActive)
	ctl.mu.Unlock()

	if hasActive {
		// Новая ветвь должна стать единственной активной
		if err := activeConn.SwitchRequest(ctx, info.SlotID); err != nil {
			return err
		}
	}

	conn := ctl.newTransientConnection()
	return conn.DialRequest(ctx, info.SlotID, DialRequest{Number: number, CLIRMode: clir})
}

// DialCdma набор в CDMA. При наличии активной ветви новая не
// размещается: выполняется трехсторонний набор поверх существующей.
func (ctl *CSControl) DialCdma(ctx context.Context, info CallInfo) (err error) {
	defer func() { observeOperation("DialCdma", err) }()

	number := cleanDialString(info.Number)
	clir := CLIRDefault
	if ctl.config.MMI != nil {
		mode, handled := ctl.config.MMI.Evaluate(info.SlotID, number)
		clir = mode
		if handled {
			ctl.log.Info("строка распознана как MMI-код",
				slog.Int("slot", int(info.SlotID)))
			return newCallError(CodeMMIHandled, "DialCdma", info.SlotID, "MMI-код, вызов не размещается")
		}
	}

	ctl.mu.Lock()
	if !ctl.canCall() {
		ctl.mu.Unlock()
		return newCallError(CodeCallCountExceeded, "DialCdma", info.SlotID, "достигнут потолок одновременных ветвей")
	}
	activeConn, hasActive := ctl.connectionMap.FindState(CallStatusActive)
	ctl.mu.Unlock()

	if hasActive {
		return activeConn.ThreeWayDialRequest(ctx, info.SlotID, DialRequest{Number: number, CLIRMode: clir})
	}

	conn := ctl.newTransientConnection()
	return conn.DialRequest(ctx, info.SlotID, DialRequest{Number: number, CLIRMode: clir})
}

// HangUp завершает вызов. Диспетчеризация по типу операции:
// конкретная ветвь, класс ветвей или все сразу.
func (ctl *CSControl) HangUp(ctx context.Context, info CallInfo, spType CallSupplementType) (err error) {
	defer func() { observeOperation("HangUp", err) }()

	switch spType {
	case TypeDefault:
		ctl.mu.Lock()
		conn, ok := ctl.connectionMap.Find(info.Number, info.Index)
		ctl.mu.Unlock()
		if !ok {
			return newCallError(CodeConnectionNotFound, "HangUp", info.SlotID, "ветвь не найдена ни по номеру, ни по индексу")
		}
		report := conn.CallReportInfo()
		report.State = CallStatusDisconnecting
		ctl.reportSingleCall(report, CallStatusDisconnecting)
		return conn.HangUpRequest(ctx, info.SlotID)

	case TypeHangUpHoldWait, TypeHangUpActive:
		// Классовая операция, ветвь карты не затрагивается до отчета
		conn := ctl.newTransientConnection()
		return conn.CallSupplementRequest(ctx, info.SlotID, spType)

	case TypeHangUpAll:
		// На уровне радио "завершить все" эквивалентно "отклонить все"
		conn := ctl.newTransientConnection()
		return conn.RejectRequest(ctx, info.SlotID)

	default:
		ctl.emitFault("HangUp", info, CodeInvalidArgument, "unknown call supplement type")
		return newCallError(CodeInvalidArgument, "HangUp", info.SlotID, "неизвестный тип операции завершения")
	}
}

// HangUpAllConnection завершает все ветви слота. Переиспользует путь
// Reject: на уровне радио команды эквивалентны.
func (ctl *CSControl) HangUpAllConnection(ctx context.Context, slotID int32) (err error) {
	defer func() { observeOperation("HangUpAllConnection", err) }()
	conn := ctl.newTransientConnection()
	return conn.RejectRequest(ctx, slotID)
}

// Answer отвечает на входящий вызов. При наличии активной ветви (или
// сценарии call waiting) активная сперва удерживается переключением.
func (ctl *CSControl) Answer(ctx context.Context, info CallInfo) (err error) {
	defer func() { observeOperation("Answer", err) }()

	ctl.mu.Lock()
	conn, ok := ctl.connectionMap.Find(info.Number, info.Index)
	var activeConn *Connection
	needSwitch := false
	if ok && (ctl.connectionMap.HasState(CallStatusActive) || conn.Status() == CallStatusWaiting) {
		needSwitch = true
		activeConn, _ = ctl.connectionMap.FindState(CallStatusActive)
	}
	ctl.mu.Unlock()

	if !ok {
		return newCallError(CodeConnectionNotFound, "Answer", info.SlotID, "ветвь не найдена ни по номеру, ни по индексу")
	}

	if needSwitch {
		if activeConn == nil {
			// Предикат сработал, но активной ветви нет. Не фатально.
			ctl.log.Error("активная ветвь не найдена при ответе",
				slog.Int("slot", int(info.SlotID)))
		} else if err = activeConn.SwitchRequest(ctx, info.SlotID); err != nil {
			return err
		}
	}

	switch conn.Status() {
	case CallStatusIncoming, CallStatusAlerting, CallStatusWaiting:
		return conn.AnswerRequest(ctx, info.SlotID)
	}
	ctl.emitFault("Answer", info, CodeInvalidCallState, "phone not ringing")
	return newCallError(CodeInvalidCallState, "Answer", info.SlotID, "вызов не звонит")
}

// Reject отклоняет звонящий вызов
func (ctl *CSControl) Reject(ctx context.Context, info CallInfo) (err error) {
	defer func() { observeOperation("Reject", err) }()

	ctl.mu.Lock()
	conn, ok := ctl.connectionMap.Find(info.Number, info.Index)
	ctl.mu.Unlock()
	if !ok {
		return newCallError(CodeConnectionNotFound, "Reject", info.SlotID, "ветвь не найдена ни по номеру, ни по индексу")
	}
	if !conn.IsRingingState() {
		return newCallError(CodeInvalidCallState, "Reject", info.SlotID, "вызов не звонит")
	}
	report := conn.CallReportInfo()
	report.State = CallStatusDisconnecting
	ctl.reportSingleCall(report, CallStatusDisconnecting)
	return conn.RejectRequest(ctx, info.SlotID)
}

// HoldCall удерживает активный вызов. Блокируется, пока звонит новый
// входящий.
func (ctl *CSControl) HoldCall(ctx context.Context, slotID int32) (err error) {
	defer func() { observeOperation("HoldCall", err) }()
	if err = ctl.rejectWhileIncoming("HoldCall", slotID); err != nil {
		return err
	}
	conn := ctl.newTransientConnection()
	return conn.HoldRequest(ctx, slotID)
}

// UnHoldCall снимает вызов с удержания. Блокируется, пока звонит новый
// входящий.
func (ctl *CSControl) UnHoldCall(ctx context.Context, slotID int32) (err error) {
	defer func() { observeOperation("UnHoldCall", err) }()
	if err = ctl.rejectWhileIncoming("UnHoldCall", slotID); err != nil {
		return err
	}
	conn := ctl.newTransientConnection()
	return conn.UnHoldRequest(ctx, slotID)
}

// SwitchCall меняет местами активный и удерживаемый вызовы.
// Блокируется, пока звонит новый входящий.
func (ctl *CSControl) SwitchCall(ctx context.Context, slotID int32) (err error) {
	defer func() { observeOperation("SwitchCall", err) }()
	if err = ctl.rejectWhileIncoming("SwitchCall", slotID); err != nil {
		return err
	}
	conn := ctl.newTransientConnection()
	return conn.SwitchRequest(ctx, slotID)
}

// rejectWhileIncoming общая проверка: неотвеченный входящий блокирует
// операции удержания и переключения
func (ctl *CSControl) rejectWhileIncoming(op string, slotID int32) error {
	ctl.mu.Lock()
	blocked := ctl.connectionMap.HasState(CallStatusIncoming)
	ctl.mu.Unlock()
	if blocked {
		return newCallError(CodeInvalidCallState, op, slotID, "звонит входящий вызов")
	}
	return nil
}

// CombineConference объединяет ветви в конференцию. Локальных
// предусловий нет, достаточно доступности радио.
func (ctl *CSControl) CombineConference(ctx context.Context, slotID int32) (err error) {
	defer func() { observeOperation("CombineConference", err) }()
	conn := ctl.newTransientConnection()
	return conn.CombineConferenceRequest(ctx, slotID)
}

// SeparateConference выделяет ветвь из конференции. Если splitString
// указывает на отслеживаемую ветвь, используется ее собственный индекс;
// иначе индекс вызывающего как есть.
func (ctl *CSControl) SeparateConference(ctx context.Context, slotID int32, splitString string, index int32) (err error) {
	defer func() { observeOperation("SeparateConference", err) }()

	if splitString == "" {
		ctl.log.Warn("пустой splitString при выделении из конференции",
			slog.Int("slot", int(slotID)))
	}
	ctl.mu.Lock()
	conn, ok := ctl.connectionMap.Get(splitString)
	ctl.mu.Unlock()
	if ok {
		return conn.SeparateConferenceRequest(ctx, slotID, conn.Index())
	}
	transient := ctl.newTransientConnection()
	return transient.SeparateConferenceRequest(ctx, slotID, index)
}

// StartDtmf начинает длительный DTMF-тон на ветви вызова
func (ctl *CSControl) StartDtmf(ctx context.Context, digit byte, info CallInfo) (err error) {
	defer func() { observeOperation("StartDtmf", err) }()
	ctl.mu.Lock()
	conn, ok := ctl.connectionMap.Find(info.Number, info.Index)
	ctl.mu.Unlock()
	if !ok {
		return newCallError(CodeConnectionNotFound, "StartDtmf", info.SlotID, "ветвь не найдена ни по номеру, ни по индексу")
	}
	return conn.StartDTMFRequest(ctx, info.SlotID, digit, conn.Index())
}

// StopDtmf завершает длительный DTMF-тон на ветви вызова
func (ctl *CSControl) StopDtmf(ctx context.Context, info CallInfo) (err error) {
	defer func() { observeOperation("StopDtmf", err) }()
	ctl.mu.Lock()
	conn, ok := ctl.connectionMap.Find(info.Number, info.Index)
	ctl.mu.Unlock()
	if !ok {
		return newCallError(CodeConnectionNotFound, "StopDtmf", info.SlotID, "ветвь не найдена ни по номеру, ни по индексу")
	}
	return conn.StopDTMFRequest(ctx, info.SlotID, conn.Index())
}

// SendDtmf отправляет одиночный DTMF-тон на ветви вызова
func (ctl *CSControl) SendDtmf(ctx context.Context, digit byte, info CallInfo) (err error) {
	defer func() { observeOperation("SendDtmf", err) }()
	ctl.mu.Lock()
	conn, ok := ctl.connectionMap.Find(info.Number, info.Index)
	ctl.mu.Unlock()
	if !ok {
		return newCallError(CodeConnectionNotFound, "SendDtmf", info.SlotID, "ветвь не найдена ни по номеру, ни по индексу")
	}
	return conn.SendDTMFRequest(ctx, info.SlotID, digit, conn.Index())
}

// GetCallList запрашивает у модема актуальный список вызовов слота.
// Результат придет каналом отчетов (ReportCallsData).
func (ctl *CSControl) GetCallList(ctx context.Context, slotID int32) (err error) {
	defer func() { observeOperation("GetCallList", err) }()
	conn := ctl.newTransientConnection()
	return conn.GetCallListRequest(ctx, slotID)
}

// GetCallFailReason запрашивает причину завершения последнего вызова
func (ctl *CSControl) GetCallFailReason(ctx context.Context, slotID int32) (err error) {
	defer func() { observeOperation("GetCallFailReason", err) }()
	conn := ctl.newTransientConnection()
	return conn.GetCallFailReasonRequest(ctx, slotID)
}

// reportSingleCall передает одиночный отчет наблюдателю; без
// наблюдателя отчет отбрасывается
func (ctl *CSControl) reportSingleCall(info CallReportInfo, state TelCallState) {
	ctl.mu.Lock()
	observer := ctl.observer
	ctl.mu.Unlock()
	if observer == nil {
		ctl.log.Debug("наблюдатель не зарегистрирован, одиночный отчет отброшен",
			slog.String("number", info.Number),
			slog.String("state", state.String()))
		return
	}
	observer.ReportSingleCallInfo(info, state)
}

// emitFault шлет диагностическое событие об отказе операции
func (ctl *CSControl) emitFault(op string, info CallInfo, code Code, reason string) {
	if ctl.config.Faults == nil {
		return
	}
	ctl.config.Faults.ReportFault(FaultEvent{
		ID:         uuid.NewString(),
		Op:         op,
		SlotID:     info.SlotID,
		CallType:   info.CallType,
		VideoState: info.VideoState,
		ErrorCode:  code,
		Reason:     reason,
		At:         time.Now(),
	})
}
