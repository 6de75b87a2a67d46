// Package simradio реализует программный радио-слой (виртуальный
// модем) для движка cscall: команды мутируют симулируемый список
// вызовов слота, а изменения доставляются движку обычным каналом
// отчетов ReportCallsData. Используется демо-стендом и функциональными
// тестами.
package simradio

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/arzzra/cs_call/pkg/cscall"
)

// Reporter приемник отчетов модема. CSControl удовлетворяет интерфейсу.
type Reporter interface {
	ReportCallsData(ctx context.Context, slotID int32, list cscall.CallInfoList) error
}

// Config конфигурация виртуального модема
type Config struct {
	// Число обслуживаемых слотов; 0 означает один слот
	Slots int
	// Приемник отчетов; допустим nil, тогда отчеты копятся до Bind
	Reporter Reporter
	// Автоматический отчет после каждой мутации списка вызовов.
	// При false изменения доставляются только явным Flush.
	AutoReport bool
	// Логгер; nil означает slog.Default()
	Logger *slog.Logger
}

// Modem виртуальный модем с независимым списком вызовов на слот
type Modem struct {
	config Config
	log    *slog.Logger

	mu       sync.Mutex
	reporter Reporter
	slots    map[int32]*slotState
}

type slotState struct {
	nextIndex  int32
	calls      []cscall.ModemCall
	failReason int32
}

// NewModem создает виртуальный модем
func NewModem(cfg Config) *Modem {
	if cfg.Slots <= 0 {
		cfg.Slots = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	m := &Modem{
		config:   cfg,
		log:      cfg.Logger.With(slog.String("component", "simradio")),
		reporter: cfg.Reporter,
		slots:    make(map[int32]*slotState),
	}
	for i := 0; i < cfg.Slots; i++ {
		m.slots[int32(i)] = &slotState{nextIndex: 1}
	}
	return m
}

// Bind привязывает приемник отчетов после создания модема
func (m *Modem) Bind(reporter Reporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reporter = reporter
}

// Session возвращает обработчик слота; несконфигурированный слот
// недоступен
func (m *Modem) Session(slotID int32) (cscall.RadioSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.slots[slotID]; !ok {
		return nil, errors.New("слот не сконфигурирован")
	}
	return &session{modem: m, slotID: slotID}, nil
}

// Calls возвращает копию симулируемого списка вызовов слота
func (m *Modem) Calls(slotID int32) []cscall.ModemCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[slotID]
	if !ok {
		return nil
	}
	out := make([]cscall.ModemCall, len(slot.calls))
	copy(out, slot.calls)
	return out
}

// Flush доставляет текущий список вызовов слота приемнику отчетов
func (m *Modem) Flush(ctx context.Context, slotID int32) error {
	m.mu.Lock()
	reporter, list, ok := m.snapshotLocked(slotID)
	m.mu.Unlock()
	if !ok || reporter == nil {
		return nil
	}
	return reporter.ReportCallsData(ctx, slotID, list)
}

// AddIncoming скриптует входящий вызов удаленной стороны. Если на
// слоте уже есть живые вызовы, новый приходит как WAITING.
func (m *Modem) AddIncoming(ctx context.Context, slotID int32, number string) {
	m.mu.Lock()
	slot, ok := m.slots[slotID]
	if !ok {
		m.mu.Unlock()
		return
	}
	state := cscall.CallStatusIncoming
	if len(slot.calls) > 0 {
		state = cscall.CallStatusWaiting
	}
	slot.calls = append(slot.calls, cscall.ModemCall{
		Number: number,
		Index:  slot.nextIndex,
		State:  state,
	})
	slot.nextIndex++
	m.mu.Unlock()
	m.autoFlush(ctx, slotID)
}

// AdvanceOutgoing продвигает исходящий вызов по жизненному циклу:
// DIALING -> ALERTING -> ACTIVE
func (m *Modem) AdvanceOutgoing(ctx context.Context, slotID int32) {
	m.mu.Lock()
	slot, ok := m.slots[slotID]
	if ok {
		for i := range slot.calls {
			switch slot.calls[i].State {
			case cscall.CallStatusDialing:
				slot.calls[i].State = cscall.CallStatusAlerting
			case cscall.CallStatusAlerting:
				slot.calls[i].State = cscall.CallStatusActive
			}
		}
	}
	m.mu.Unlock()
	m.autoFlush(ctx, slotID)
}

// RemoteHangup скриптует завершение вызова удаленной стороной
func (m *Modem) RemoteHangup(ctx context.Context, slotID int32, number string) {
	m.mu.Lock()
	slot, ok := m.slots[slotID]
	if ok {
		kept := slot.calls[:0]
		for _, call := range slot.calls {
			if call.Number != number {
				kept = append(kept, call)
			}
		}
		slot.calls = kept
	}
	m.mu.Unlock()
	m.autoFlush(ctx, slotID)
}

// FailReason возвращает последний запрошенный код причины завершения
func (m *Modem) FailReason(slotID int32) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if slot, ok := m.slots[slotID]; ok {
		return slot.failReason
	}
	return 0
}

// snapshotLocked собирает отчет по живым вызовам слота
func (m *Modem) snapshotLocked(slotID int32) (Reporter, cscall.CallInfoList, bool) {
	slot, ok := m.slots[slotID]
	if !ok {
		return nil, cscall.CallInfoList{}, false
	}
	list := cscall.CallInfoList{Calls: make([]cscall.ModemCall, len(slot.calls))}
	copy(list.Calls, slot.calls)
	return m.reporter, list, true
}

// autoFlush доставляет отчет, если включен автоматический режим.
// Снимок берется до доставки: приемник может снова обратиться к модему.
func (m *Modem) autoFlush(ctx context.Context, slotID int32) {
	m.mu.Lock()
	auto := m.config.AutoReport
	reporter, list, ok := m.snapshotLocked(slotID)
	m.mu.Unlock()
	if !auto || !ok || reporter == nil {
		return
	}
	if err := reporter.ReportCallsData(ctx, slotID, list); err != nil {
		m.log.Debug("отчет не принят приемником",
			slog.Int("slot", int(slotID)),
			slog.String("error", err.Error()))
	}
}

// session обработчик команд одного слота
type session struct {
	modem  *Modem
	slotID int32
}

// mutate выполняет fn над состоянием слота под мьютексом модема и
// доставляет отчет после мутации
func (s *session) mutate(ctx context.Context, fn func(slot *slotState)) error {
	s.modem.mu.Lock()
	slot, ok := s.modem.slots[s.slotID]
	if !ok {
		s.modem.mu.Unlock()
		return errors.New("слот не сконфигурирован")
	}
	fn(slot)
	s.modem.mu.Unlock()
	s.modem.autoFlush(ctx, s.slotID)
	return nil
}

func (s *session) Dial(ctx context.Context, req cscall.DialRequest) error {
	return s.mutate(ctx, func(slot *slotState) {
		slot.calls = append(slot.calls, cscall.ModemCall{
			Number: req.Number,
			Index:  slot.nextIndex,
			State:  cscall.CallStatusDialing,
		})
		slot.nextIndex++
	})
}

func (s *session) ThreeWayDial(ctx context.Context, req cscall.DialRequest) error {
	return s.mutate(ctx, func(slot *slotState) {
		for i := range slot.calls {
			if slot.calls[i].State == cscall.CallStatusActive {
				slot.calls[i].State = cscall.CallStatusHolding
			}
		}
		slot.calls = append(slot.calls, cscall.ModemCall{
			Number: req.Number,
			Index:  slot.nextIndex,
			State:  cscall.CallStatusDialing,
		})
		slot.nextIndex++
	})
}

func (s *session) Hangup(ctx context.Context, index int32) error {
	return s.mutate(ctx, func(slot *slotState) {
		kept := slot.calls[:0]
		for _, call := range slot.calls {
			if call.Index != index {
				kept = append(kept, call)
			}
		}
		slot.calls = kept
	})
}

func (s *session) Answer(ctx context.Context) error {
	return s.mutate(ctx, func(slot *slotState) {
		for i := range slot.calls {
			switch slot.calls[i].State {
			case cscall.CallStatusIncoming, cscall.CallStatusWaiting:
				slot.calls[i].State = cscall.CallStatusActive
				return
			}
		}
	})
}

// Reject на уровне радио эквивалентен "завершить все": команда
// сбрасывает и звонящие, и разговорные ветви
func (s *session) Reject(ctx context.Context) error {
	return s.mutate(ctx, func(slot *slotState) {
		slot.calls = nil
	})
}

func (s *session) HoldCall(ctx context.Context) error {
	return s.mutate(ctx, func(slot *slotState) {
		for i := range slot.calls {
			if slot.calls[i].State == cscall.CallStatusActive {
				slot.calls[i].State = cscall.CallStatusHolding
			}
		}
	})
}

func (s *session) UnHoldCall(ctx context.Context) error {
	return s.mutate(ctx, func(slot *slotState) {
		for i := range slot.calls {
			if slot.calls[i].State == cscall.CallStatusHolding {
				slot.calls[i].State = cscall.CallStatusActive
			}
		}
	})
}

func (s *session) SwitchCall(ctx context.Context) error {
	return s.mutate(ctx, func(slot *slotState) {
		for i := range slot.calls {
			switch slot.calls[i].State {
			case cscall.CallStatusActive:
				slot.calls[i].State = cscall.CallStatusHolding
			case cscall.CallStatusHolding:
				slot.calls[i].State = cscall.CallStatusActive
			}
		}
	})
}

func (s *session) CombineConference(ctx context.Context) error {
	return s.mutate(ctx, func(slot *slotState) {
		for i := range slot.calls {
			if slot.calls[i].State == cscall.CallStatusHolding {
				slot.calls[i].State = cscall.CallStatusActive
			}
		}
	})
}

func (s *session) SeparateConference(ctx context.Context, index int32) error {
	return s.mutate(ctx, func(slot *slotState) {
		for i := range slot.calls {
			if slot.calls[i].Index == index {
				slot.calls[i].State = cscall.CallStatusActive
			} else if slot.calls[i].State == cscall.CallStatusActive {
				slot.calls[i].State = cscall.CallStatusHolding
			}
		}
	})
}

func (s *session) CallSupplement(ctx context.Context, spType cscall.CallSupplementType) error {
	return s.mutate(ctx, func(slot *slotState) {
		kept := slot.calls[:0]
		for _, call := range slot.calls {
			drop := false
			switch spType {
			case cscall.TypeHangUpActive:
				drop = call.State == cscall.CallStatusActive
			case cscall.TypeHangUpHoldWait:
				drop = call.State == cscall.CallStatusHolding || call.State == cscall.CallStatusWaiting
			}
			if !drop {
				kept = append(kept, call)
			}
		}
		slot.calls = kept
	})
}

func (s *session) SendDTMF(ctx context.Context, digit byte, index int32) error {
	s.modem.log.Debug("DTMF",
		slog.Int("slot", int(s.slotID)),
		slog.String("digit", string([]byte{digit})),
		slog.Int("index", int(index)))
	return nil
}

func (s *session) StartDTMF(ctx context.Context, digit byte, index int32) error {
	return s.SendDTMF(ctx, digit, index)
}

func (s *session) StopDTMF(ctx context.Context, index int32) error {
	s.modem.log.Debug("DTMF stop",
		slog.Int("slot", int(s.slotID)),
		slog.Int("index", int(index)))
	return nil
}

func (s *session) GetCallList(ctx context.Context) error {
	return s.modem.Flush(ctx, s.slotID)
}

func (s *session) GetCallFailReason(ctx context.Context) error {
	s.modem.mu.Lock()
	defer s.modem.mu.Unlock()
	if slot, ok := s.modem.slots[s.slotID]; ok {
		// 16 — normal call clearing
		slot.failReason = 16
	}
	return nil
}
