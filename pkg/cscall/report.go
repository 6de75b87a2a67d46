package cscall

import (
	"context"
	"log/slog"
	"time"
)

// ReportCallsData точка входа сверки отчета модема с картой ветвей.
// Диспетчеризация по произведению (отчет пуст?, карта пуста?):
//
//	отчет пуст, карта нет  — все оставшиеся ветви завершились;
//	отчет есть, карта пуста — появились новые вызовы;
//	отчет есть, карта нет   — пошаговая сверка (mark-and-sweep);
//	оба пусты               — сверять нечего.
//
// Отчет наверх формируется только после завершения мутации карты:
// наблюдатель видит итоговое состояние сверки.
func (ctl *CSControl) ReportCallsData(ctx context.Context, slotID int32, list CallInfoList) (err error) {
	defer func() { observeOperation("ReportCallsData", err) }()
	start := time.Now()
	defer func() { metricReconcileDuration.Observe(time.Since(start).Seconds()) }()

	ctl.mu.Lock()
	mapEmpty := ctl.connectionMap.Empty()

	var batch CallsReportInfo
	forward := false
	switch {
	case len(list.Calls) == 0 && !mapEmpty:
		batch, forward = ctl.reportHungUpInfoLocked(slotID)
	case len(list.Calls) > 0 && mapEmpty:
		batch, forward = ctl.reportIncomingInfoLocked(slotID, list)
	case len(list.Calls) > 0 && !mapEmpty:
		batch, forward = ctl.reportUpdateInfoLocked(ctx, slotID, list)
	default:
		ctl.mu.Unlock()
		return newCallError(CodeEmptyReport, "ReportCallsData", slotID, "пустой отчет при пустой карте")
	}
	observer := ctl.observer
	updateConnectionsGauge(slotID, ctl.connectionMap.Len())
	ctl.mu.Unlock()

	if !forward {
		metricReportsSuppressed.Inc()
		return nil
	}
	if observer == nil {
		ctl.log.Debug("наблюдатель не зарегистрирован, пакет отчетов отброшен",
			slog.Int("slot", int(slotID)),
			slog.Int("calls", len(batch.Calls)))
		return nil
	}
	observer.ReportCallsInfo(batch)
	return nil
}

// reportHungUpInfoLocked отчет пуст, карта нет: каждая оставшаяся ветвь
// снимается как DISCONNECTED, карта опустошается. Пакет подавляется,
// если взведен одноразовый флаг парного hangup-подавления.
func (ctl *CSControl) reportHungUpInfoLocked(slotID int32) (CallsReportInfo, bool) {
	batch := CallsReportInfo{SlotID: slotID}
	ctl.connectionMap.Range(func(_ string, conn *Connection) bool {
		info := conn.CallReportInfo()
		info.State = CallStatusDisconnected
		batch.Calls = append(batch.Calls, info)
		return true
	})
	ctl.connectionMap.Clear()

	if ctl.ignoredHangupReport {
		ctl.ignoredHangupReport = false
		return batch, false
	}
	return batch, true
}

// reportIncomingInfoLocked отчет есть, карта пуста: на каждый вызов из
// отчета создается новая ветвь. Первый INCOMING до регистрации
// наблюдателя подавляется, парный hangup тоже (одноразово).
func (ctl *CSControl) reportIncomingInfoLocked(slotID int32, list CallInfoList) (CallsReportInfo, bool) {
	batch := CallsReportInfo{SlotID: slotID}
	for _, call := range list.Calls {
		conn := ctl.newTrackedConnection()
		conn.SetNumber(call.Number)
		conn.SetIndex(call.Index)
		conn.SetStatus(call.State)
		info := CallReportInfo{
			Index:      call.Index,
			Number:     call.Number,
			State:      call.State,
			CallType:   CallTypeCS,
			VideoState: VideoStateVoice,
		}
		conn.UpdateCallReportInfo(info)
		// Две записи с одним номером схлопываются: ветви одного номера
		// движок не различает
		ctl.connectionMap.Put(call.Number, conn)
		batch.Calls = append(batch.Calls, info)
	}

	if ctl.observer == nil && len(list.Calls) > 0 && list.Calls[0].State == CallStatusIncoming {
		ctl.ignoredIncomingCall = true
		ctl.ignoredHangupReport = true
		return batch, false
	}
	return batch, true
}

// reportUpdateInfoLocked отчет есть, карта нет: mark-and-sweep по ключу
// номера. Замеченные ветви обновляются на месте и метятся; незамеченные
// после прохода снимаются как DISCONNECTED, удаляются, и по каждой
// запрашивается причина завершения. Метки сбрасываются к false.
func (ctl *CSControl) reportUpdateInfoLocked(ctx context.Context, slotID int32, list CallInfoList) (CallsReportInfo, bool) {
	batch := CallsReportInfo{SlotID: slotID}
	for _, call := range list.Calls {
		conn, ok := ctl.connectionMap.Get(call.Number)
		if !ok {
			conn = ctl.newTrackedConnection()
			conn.SetNumber(call.Number)
			ctl.connectionMap.Put(call.Number, conn)
		}
		conn.SetFlag(true)
		conn.SetIndex(call.Index)
		conn.SetStatus(call.State)
		info := CallReportInfo{
			Index:      call.Index,
			Number:     call.Number,
			State:      call.State,
			CallType:   CallTypeCS,
			VideoState: VideoStateVoice,
		}
		conn.UpdateCallReportInfo(info)
		batch.Calls = append(batch.Calls, info)
	}

	// Sweep: модем больше не сообщает об этих ветвях
	var stale []string
	ctl.connectionMap.Range(func(number string, conn *Connection) bool {
		if !conn.Flag() {
			stale = append(stale, number)
		}
		return true
	})
	for _, number := range stale {
		conn, _ := ctl.connectionMap.Get(number)
		info := conn.CallReportInfo()
		info.State = CallStatusDisconnected
		batch.Calls = append(batch.Calls, info)
		ctl.connectionMap.Delete(number)
		if reasonErr := conn.GetCallFailReasonRequest(ctx, slotID); reasonErr != nil {
			ctl.log.Debug("запрос причины завершения не принят",
				slog.Int("slot", int(slotID)),
				slog.String("number", number),
				slog.String("error", reasonErr.Error()))
		}
	}

	ctl.connectionMap.Range(func(_ string, conn *Connection) bool {
		conn.SetFlag(false)
		return true
	})

	if ctl.ignoredIncomingCall {
		ctl.ignoredIncomingCall = false
		return batch, false
	}
	return batch, true
}
