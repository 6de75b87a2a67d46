package cscall

import (
	"errors"
	"fmt"
)

// Code типизированный код результата операций управления вызовами.
// Позволяет классифицировать отказы и обрабатывать их по категориям.
type Code int32

const (
	// Радио-сервис или его обработчик слота недоступен. Не повторяется
	// на этом уровне, вызывающий может повторить позже.
	CodeResourceUnavailable Code = iota + 1000
	// Запрошенная ветвь не найдена ни по номеру, ни по индексу.
	CodeConnectionNotFound
	// Совокупное состояние ветвей запрещает операцию.
	CodeInvalidCallState
	// Набор возможен только в GSM или CDMA.
	CodeUnsupportedNetworkType
	// Контроль допуска отклонил новый набор.
	CodeCallCountExceeded
	// Вызывающий передал неизвестный тип операции.
	CodeInvalidArgument
	// Нечего сверять: пустой отчет при пустой карте.
	CodeEmptyReport
	// Набранная строка распознана как MMI-код: вызов не размещается,
	// исполнение кода — внешняя забота. Не отказ в строгом смысле.
	CodeMMIHandled
)

// String возвращает строковое представление кода
func (c Code) String() string {
	switch c {
	case CodeResourceUnavailable:
		return "ResourceUnavailable"
	case CodeConnectionNotFound:
		return "ConnectionNotFound"
	case CodeInvalidCallState:
		return "InvalidCallState"
	case CodeUnsupportedNetworkType:
		return "UnsupportedNetworkType"
	case CodeCallCountExceeded:
		return "CallCountExceeded"
	case CodeInvalidArgument:
		return "InvalidArgument"
	case CodeEmptyReport:
		return "EmptyReport"
	case CodeMMIHandled:
		return "MMIHandled"
	default:
		return fmt.Sprintf("Unknown(%d)", int32(c))
	}
}

// CallError структурированная ошибка движка управления вызовами.
// Несет типизированный код, операцию и слот для сопоставления с логами.
type CallError struct {
	Code    Code
	Op      string
	SlotID  int32
	Message string
	Cause   error
}

// Error реализует интерфейс error
func (e *CallError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[%s] %s slot=%d: %s", e.Code, e.Op, e.SlotID, e.Message)
	}
	return fmt.Sprintf("[%s] %s slot=%d", e.Code, e.Op, e.SlotID)
}

// Unwrap возвращает обернутую ошибку, поддерживая errors.Unwrap
func (e *CallError) Unwrap() error {
	return e.Cause
}

// Is поддерживает errors.Is, сравнивая ошибки по коду
func (e *CallError) Is(target error) bool {
	if t, ok := target.(*CallError); ok {
		return e.Code == t.Code
	}
	return false
}

func newCallError(code Code, op string, slotID int32, message string) *CallError {
	return &CallError{Code: code, Op: op, SlotID: slotID, Message: message}
}

func wrapCallError(code Code, op string, slotID int32, cause error) *CallError {
	return &CallError{Code: code, Op: op, SlotID: slotID, Cause: cause}
}

// AsCallError пытается привести ошибку к CallError
func AsCallError(err error, target **CallError) bool {
	if err == nil {
		return false
	}
	return errors.As(err, target)
}

// HasCode проверяет, содержит ли цепочка ошибок указанный код
func HasCode(err error, code Code) bool {
	var ce *CallError
	if AsCallError(err, &ce) {
		return ce.Code == code
	}
	return false
}
