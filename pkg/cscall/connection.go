package cscall

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"
)

// Connection представляет одну ветвь вызова, привязанную к индексу модема.
//
// Хранит состояние ветви, кэшированный снимок для отчетов и признак
// "замечена в последнем отчете" для сверки (mark-and-sweep). Индекс
// стабилен на все время жизни ветви; состояние меняется только через
// Control.
type Connection struct {
	// Идентификация ветви
	index  int32
	number string

	// Кэш для отчетов и метка сверки
	reportInfo CallReportInfo
	flag       bool

	// FSM состояния ветви
	status       TelCallState
	stateMachine *fsm.FSM

	// Зависимости для низкоуровневых запросов
	radio  Radio
	faults FaultSink
	log    *slog.Logger

	mu sync.RWMutex
}

// newConnection создает ветвь. Используется и для отслеживаемых ветвей
// карты, и для временных (unbound) обработчиков классовых операций.
func newConnection(radio Radio, faults FaultSink, log *slog.Logger) *Connection {
	c := &Connection{
		radio:  radio,
		faults: faults,
		log:    log,
	}
	c.stateMachine = newCallFSM()
	return c
}

// Status возвращает текущее состояние ветви
func (c *Connection) Status() TelCallState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// SetStatus переводит ветвь в новое состояние. Переход проверяется
// автоматом; несогласованный переход не отвергается — отчет модема
// авторитетен — а форсируется с отметкой в логе.
func (c *Connection) SetStatus(state TelCallState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStatusLocked(state)
}

func (c *Connection) setStatusLocked(state TelCallState) {
	if state == c.status && c.stateMachine.Current() != fsmStateIdle {
		return
	}
	event := fsmEventFor(state)
	if event == "" {
		c.log.Warn("неизвестное состояние ветви", slog.Int("state", int(state)))
		return
	}
	if err := c.stateMachine.Event(context.Background(), event); err != nil {
		c.log.Debug("переход вне модели, состояние форсировано",
			slog.String("from", c.status.String()),
			slog.String("to", state.String()))
		c.stateMachine.SetState(fsmStateByCallState[state])
	}
	c.status = state
}

// Index возвращает индекс модема
func (c *Connection) Index() int32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.index
}

// SetIndex задает индекс модема
func (c *Connection) SetIndex(index int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = index
}

// Number возвращает номер-ключ ветви
func (c *Connection) Number() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.number
}

// SetNumber задает номер-ключ ветви
func (c *Connection) SetNumber(number string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.number = number
}

// CallReportInfo возвращает кэшированный снимок для отчетов
func (c *Connection) CallReportInfo() CallReportInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reportInfo
}

// UpdateCallReportInfo обновляет кэшированный снимок
func (c *Connection) UpdateCallReportInfo(info CallReportInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reportInfo = info
}

// Flag возвращает метку "замечена в последнем отчете"
func (c *Connection) Flag() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.flag
}

// SetFlag задает метку сверки
func (c *Connection) SetFlag(flag bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flag = flag
}

// IsRingingState возвращает true, если ветвь звонит:
// INCOMING, WAITING или ALERTING.
func (c *Connection) IsRingingState() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.status {
	case CallStatusIncoming, CallStatusWaiting, CallStatusAlerting:
		return true
	}
	return false
}

// session достает обработчик слота из радио-слоя. При недоступности
// возвращает типизированную ошибку; notifyFault дополнительно шлет
// диагностическое событие (для dial/answer/hangup/reject).
func (c *Connection) session(op string, slotID int32, notifyFault bool) (RadioSession, error) {
	if c.radio == nil {
		err := newCallError(CodeResourceUnavailable, op, slotID, "радио-сервис недоступен")
		if notifyFault {
			c.emitFault(op, slotID, CodeResourceUnavailable, "radio service unavailable")
		}
		return nil, err
	}
	sess, err := c.radio.Session(slotID)
	if err != nil {
		if notifyFault {
			c.emitFault(op, slotID, CodeResourceUnavailable, err.Error())
		}
		return nil, wrapCallError(CodeResourceUnavailable, op, slotID, err)
	}
	return sess, nil
}

// emitFault шлет диагностическое событие без подтверждения
func (c *Connection) emitFault(op string, slotID int32, code Code, reason string) {
	if c.faults == nil {
		return
	}
	c.mu.RLock()
	info := c.reportInfo
	c.mu.RUnlock()
	c.faults.ReportFault(FaultEvent{
		ID:         uuid.NewString(),
		Op:         op,
		SlotID:     slotID,
		CallType:   info.CallType,
		VideoState: info.VideoState,
		ErrorCode:  code,
		Reason:     reason,
		At:         time.Now(),
	})
}

// DialRequest передает запрос набора радио-слою. Запрос асинхронный,
// ответ модема придет каналом отчетов.
func (c *Connection) DialRequest(ctx context.Context, slotID int32, req DialRequest) error {
	sess, err := c.session("DialRequest", slotID, true)
	if err != nil {
		return err
	}
	return sess.Dial(ctx, req)
}

// ThreeWayDialRequest запрос трехстороннего набора CDMA поверх
// существующей активной ветви.
func (c *Connection) ThreeWayDialRequest(ctx context.Context, slotID int32, req DialRequest) error {
	sess, err := c.session("ThreeWayDialRequest", slotID, true)
	if err != nil {
		return err
	}
	return sess.ThreeWayDial(ctx, req)
}

// HangUpRequest запрос завершения ветви по ее индексу
func (c *Connection) HangUpRequest(ctx context.Context, slotID int32) error {
	sess, err := c.session("HangUpRequest", slotID, true)
	if err != nil {
		return err
	}
	return sess.Hangup(ctx, c.Index())
}

// AnswerRequest запрос ответа на входящий вызов
func (c *Connection) AnswerRequest(ctx context.Context, slotID int32) error {
	sess, err := c.session("AnswerRequest", slotID, true)
	if err != nil {
		return err
	}
	return sess.Answer(ctx)
}

// RejectRequest запрос отклонения вызова
func (c *Connection) RejectRequest(ctx context.Context, slotID int32) error {
	sess, err := c.session("RejectRequest", slotID, true)
	if err != nil {
		return err
	}
	return sess.Reject(ctx)
}

// HoldRequest запрос удержания активного вызова
func (c *Connection) HoldRequest(ctx context.Context, slotID int32) error {
	sess, err := c.session("HoldRequest", slotID, false)
	if err != nil {
		return err
	}
	return sess.HoldCall(ctx)
}

// UnHoldRequest запрос снятия вызова с удержания
func (c *Connection) UnHoldRequest(ctx context.Context, slotID int32) error {
	sess, err := c.session("UnHoldRequest", slotID, false)
	if err != nil {
		return err
	}
	return sess.UnHoldCall(ctx)
}

// SwitchRequest запрос переключения активного и удерживаемого вызовов
func (c *Connection) SwitchRequest(ctx context.Context, slotID int32) error {
	sess, err := c.session("SwitchRequest", slotID, false)
	if err != nil {
		return err
	}
	return sess.SwitchCall(ctx)
}

// CombineConferenceRequest запрос объединения ветвей в конференцию
func (c *Connection) CombineConferenceRequest(ctx context.Context, slotID int32) error {
	sess, err := c.session("CombineConferenceRequest", slotID, false)
	if err != nil {
		return err
	}
	return sess.CombineConference(ctx)
}

// SeparateConferenceRequest запрос выделения ветви из конференции
func (c *Connection) SeparateConferenceRequest(ctx context.Context, slotID int32, index int32) error {
	sess, err := c.session("SeparateConferenceRequest", slotID, false)
	if err != nil {
		return err
	}
	return sess.SeparateConference(ctx, index)
}

// CallSupplementRequest классовая операция завершения
// (активные / удерживаемые+ожидающие)
func (c *Connection) CallSupplementRequest(ctx context.Context, slotID int32, spType CallSupplementType) error {
	sess, err := c.session("CallSupplementRequest", slotID, false)
	if err != nil {
		return err
	}
	return sess.CallSupplement(ctx, spType)
}

// SendDTMFRequest запрос отправки одиночного DTMF-тона
func (c *Connection) SendDTMFRequest(ctx context.Context, slotID int32, digit byte, index int32) error {
	sess, err := c.session("SendDTMFRequest", slotID, false)
	if err != nil {
		return err
	}
	return sess.SendDTMF(ctx, digit, index)
}

// StartDTMFRequest запрос начала длительного DTMF-тона
func (c *Connection) StartDTMFRequest(ctx context.Context, slotID int32, digit byte, index int32) error {
	sess, err := c.session("StartDTMFRequest", slotID, false)
	if err != nil {
		return err
	}
	return sess.StartDTMF(ctx, digit, index)
}

// StopDTMFRequest запрос окончания длительного DTMF-тона
func (c *Connection) StopDTMFRequest(ctx context.Context, slotID int32, index int32) error {
	sess, err := c.session("StopDTMFRequest", slotID, false)
	if err != nil {
		return err
	}
	return sess.StopDTMF(ctx, index)
}

// GetCallListRequest запрос актуального списка вызовов модема
func (c *Connection) GetCallListRequest(ctx context.Context, slotID int32) error {
	sess, err := c.session("GetCallListRequest", slotID, false)
	if err != nil {
		return err
	}
	return sess.GetCallList(ctx)
}

// GetCallFailReasonRequest запрос причины завершения последнего вызова
func (c *Connection) GetCallFailReasonRequest(ctx context.Context, slotID int32) error {
	sess, err := c.session("GetCallFailReasonRequest", slotID, false)
	if err != nil {
		return err
	}
	return sess.GetCallFailReason(ctx)
}
