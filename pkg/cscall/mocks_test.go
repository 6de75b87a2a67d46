package cscall

import (
	"context"
	"errors"
	"sync"
)

// radioCall одна принятая радио-слоем команда (для проверки порядка)
type radioCall struct {
	Op     string
	SlotID int32
	Req    DialRequest
	Index  int32
	SpType CallSupplementType
	Digit  byte
}

// mockRadio запоминает принятые команды; Unavailable имитирует
// недоступность обработчика слота
type mockRadio struct {
	mu          sync.Mutex
	calls       []radioCall
	Unavailable bool
	FailNext    error
}

type mockRadioSession struct {
	radio  *mockRadio
	slotID int32
}

func newMockRadio() *mockRadio {
	return &mockRadio{}
}

func (r *mockRadio) Session(slotID int32) (RadioSession, error) {
	if r.Unavailable {
		return nil, errors.New("обработчик слота недоступен")
	}
	return &mockRadioSession{radio: r, slotID: slotID}, nil
}

func (r *mockRadio) record(call radioCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailNext != nil {
		err := r.FailNext
		r.FailNext = nil
		return err
	}
	r.calls = append(r.calls, call)
	return nil
}

// Calls возвращает копию журнала команд
func (r *mockRadio) Calls() []radioCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]radioCall, len(r.calls))
	copy(out, r.calls)
	return out
}

// Ops возвращает имена команд в порядке приема
func (r *mockRadio) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		ops = append(ops, c.Op)
	}
	return ops
}

func (r *mockRadio) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (s *mockRadioSession) Dial(_ context.Context, req DialRequest) error {
	return s.radio.record(radioCall{Op: "Dial", SlotID: s.slotID, Req: req})
}

func (s *mockRadioSession) ThreeWayDial(_ context.Context, req DialRequest) error {
	return s.radio.record(radioCall{Op: "ThreeWayDial", SlotID: s.slotID, Req: req})
}

func (s *mockRadioSession) Hangup(_ context.Context, index int32) error {
	return s.radio.record(radioCall{Op: "Hangup", SlotID: s.slotID, Index: index})
}

func (s *mockRadioSession) Answer(_ context.Context) error {
	return s.radio.record(radioCall{Op: "Answer", SlotID: s.slotID})
}

func (s *mockRadioSession) Reject(_ context.Context) error {
	return s.radio.record(radioCall{Op: "Reject", SlotID: s.slotID})
}

func (s *mockRadioSession) HoldCall(_ context.Context) error {
	return s.radio.record(radioCall{Op: "HoldCall", SlotID: s.slotID})
}

func (s *mockRadioSession) UnHoldCall(_ context.Context) error {
	return s.radio.record(radioCall{Op: "UnHoldCall", SlotID: s.slotID})
}

func (s *mockRadioSession) SwitchCall(_ context.Context) error {
	return s.radio.record(radioCall{Op: "SwitchCall", SlotID: s.slotID})
}

func (s *mockRadioSession) CombineConference(_ context.Context) error {
	return s.radio.record(radioCall{Op: "CombineConference", SlotID: s.slotID})
}

func (s *mockRadioSession) SeparateConference(_ context.Context, index int32) error {
	return s.radio.record(radioCall{Op: "SeparateConference", SlotID: s.slotID, Index: index})
}

func (s *mockRadioSession) CallSupplement(_ context.Context, spType CallSupplementType) error {
	return s.radio.record(radioCall{Op: "CallSupplement", SlotID: s.slotID, SpType: spType})
}

func (s *mockRadioSession) SendDTMF(_ context.Context, digit byte, index int32) error {
	return s.radio.record(radioCall{Op: "SendDTMF", SlotID: s.slotID, Digit: digit, Index: index})
}

func (s *mockRadioSession) StartDTMF(_ context.Context, digit byte, index int32) error {
	return s.radio.record(radioCall{Op: "StartDTMF", SlotID: s.slotID, Digit: digit, Index: index})
}

func (s *mockRadioSession) StopDTMF(_ context.Context, index int32) error {
	return s.radio.record(radioCall{Op: "StopDTMF", SlotID: s.slotID, Index: index})
}

func (s *mockRadioSession) GetCallList(_ context.Context) error {
	return s.radio.record(radioCall{Op: "GetCallList", SlotID: s.slotID})
}

func (s *mockRadioSession) GetCallFailReason(_ context.Context) error {
	return s.radio.record(radioCall{Op: "GetCallFailReason", SlotID: s.slotID})
}

// mockObserver собирает переданные наверх отчеты
type mockObserver struct {
	mu      sync.Mutex
	batches []CallsReportInfo
	singles []CallReportInfo
	states  []TelCallState
}

func newMockObserver() *mockObserver {
	return &mockObserver{}
}

func (o *mockObserver) ReportCallsInfo(batch CallsReportInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches = append(o.batches, batch)
}

func (o *mockObserver) ReportSingleCallInfo(info CallReportInfo, state TelCallState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.singles = append(o.singles, info)
	o.states = append(o.states, state)
}

func (o *mockObserver) Batches() []CallsReportInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]CallsReportInfo, len(o.batches))
	copy(out, o.batches)
	return out
}

func (o *mockObserver) Singles() []CallReportInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]CallReportInfo, len(o.singles))
	copy(out, o.singles)
	return out
}

// mockNetwork фиксированный тип сети на все слоты
type mockNetwork struct {
	Type NetworkType
}

func (n *mockNetwork) NetworkType(_ int32) NetworkType {
	return n.Type
}

// mockMMI помечает номера из Handled как MMI-коды
type mockMMI struct {
	Handled map[string]bool
	CLIR    CLIRMode
}

func (m *mockMMI) Evaluate(_ int32, number string) (CLIRMode, bool) {
	return m.CLIR, m.Handled[number]
}

// mockFaults собирает диагностические события
type mockFaults struct {
	mu     sync.Mutex
	events []FaultEvent
}

func (f *mockFaults) ReportFault(event FaultEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *mockFaults) Events() []FaultEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FaultEvent, len(f.events))
	copy(out, f.events)
	return out
}

// newTestControl движок с GSM-сетью и журналирующим радио
func newTestControl(radio *mockRadio) *CSControl {
	return NewCSControl(Config{
		Radio:   radio,
		Network: &mockNetwork{Type: NetworkTypeGSM},
		MMI:     &mockMMI{},
	})
}

// seedConnection вставляет в карту ветвь с заданными номером, индексом
// и состоянием, минуя канал отчетов
func seedConnection(ctl *CSControl, number string, index int32, state TelCallState) *Connection {
	conn := ctl.newTrackedConnection()
	conn.SetNumber(number)
	conn.SetIndex(index)
	conn.SetStatus(state)
	conn.UpdateCallReportInfo(CallReportInfo{
		Index:  index,
		Number: number,
		State:  state,
	})
	ctl.mu.Lock()
	ctl.connectionMap.Put(number, conn)
	ctl.mu.Unlock()
	return conn
}
