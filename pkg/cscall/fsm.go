package cscall

import "github.com/looplab/fsm"

// Состояния конечного автомата одной ветви. Набор повторяет TelCallState
// плюс начальное idle: новая ветвь еще не имеет состояния, пока модем или
// локальная операция его не назначат.
const (
	fsmStateIdle          = "idle"
	fsmStateActive        = "active"
	fsmStateHolding       = "holding"
	fsmStateDialing       = "dialing"
	fsmStateAlerting      = "alerting"
	fsmStateIncoming      = "incoming"
	fsmStateWaiting       = "waiting"
	fsmStateDisconnecting = "disconnecting"
	fsmStateTerminated    = "disconnected"
)

var fsmStateByCallState = map[TelCallState]string{
	CallStatusActive:        fsmStateActive,
	CallStatusHolding:       fsmStateHolding,
	CallStatusDialing:       fsmStateDialing,
	CallStatusAlerting:      fsmStateAlerting,
	CallStatusIncoming:      fsmStateIncoming,
	CallStatusWaiting:       fsmStateWaiting,
	CallStatusDisconnecting: fsmStateDisconnecting,
	CallStatusDisconnected:  fsmStateTerminated,
}

// callFSM строит автомат переходов ветви. События кодируют переходы,
// допустимые по 3GPP-модели вызова; отчет модема авторитетен и при
// несогласованном переходе состояние форсируется через SetState
// (см. Connection.SetStatus).
//
// Живые состояния: active, holding, dialing, alerting, incoming, waiting.
func newCallFSM() *fsm.FSM {
	live := []string{fsmStateActive, fsmStateHolding, fsmStateDialing, fsmStateAlerting, fsmStateIncoming, fsmStateWaiting}
	return fsm.NewFSM(
		fsmStateIdle,
		fsm.Events{
			{Name: "to_dialing", Src: []string{fsmStateIdle}, Dst: fsmStateDialing},
			{Name: "to_alerting", Src: []string{fsmStateIdle, fsmStateDialing}, Dst: fsmStateAlerting},
			{Name: "to_incoming", Src: []string{fsmStateIdle}, Dst: fsmStateIncoming},
			{Name: "to_waiting", Src: []string{fsmStateIdle}, Dst: fsmStateWaiting},
			{Name: "to_active", Src: []string{fsmStateIdle, fsmStateDialing, fsmStateAlerting, fsmStateIncoming, fsmStateWaiting, fsmStateHolding}, Dst: fsmStateActive},
			{Name: "to_holding", Src: []string{fsmStateActive}, Dst: fsmStateHolding},
			{Name: "to_disconnecting", Src: live, Dst: fsmStateDisconnecting},
			{Name: "to_disconnected", Src: append(append([]string{}, live...), fsmStateIdle, fsmStateDisconnecting), Dst: fsmStateTerminated},
		}, nil,
	)
}

// fsmEventFor возвращает имя события перехода в заданное состояние.
func fsmEventFor(state TelCallState) string {
	if name, ok := fsmStateByCallState[state]; ok {
		return "to_" + name
	}
	return ""
}
