// Демо-стенд движка cscall: виртуальный модем simradio связывается с
// CSControl в обе стороны, и по шагам проигрывается сценарий с двумя
// ветвями (исходящий вызов, входящий во время разговора, переключение,
// завершение). Отчеты движка печатаются на каждом шаге.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/arzzra/cs_call/pkg/cscall"
	"github.com/arzzra/cs_call/pkg/simradio"
	"github.com/jessevdk/go-flags"
)

type options struct {
	Number   string `short:"n" long:"number" default:"5550123" description:"номер исходящего вызова"`
	Incoming string `short:"i" long:"incoming" default:"5550199" description:"номер входящего вызова"`
	CDMA     bool   `long:"cdma" description:"симулировать сеть CDMA вместо GSM"`
	Verbose  bool   `short:"v" long:"verbose" description:"debug-лог"`
}

type network struct {
	cdma bool
}

func (n network) NetworkType(int32) cscall.NetworkType {
	if n.cdma {
		return cscall.NetworkTypeCDMA
	}
	return cscall.NetworkTypeGSM
}

// printObserver печатает отчеты движка на stdout
type printObserver struct{}

func (printObserver) ReportCallsInfo(batch cscall.CallsReportInfo) {
	fmt.Printf("-- отчет слота %d:\n", batch.SlotID)
	for _, call := range batch.Calls {
		fmt.Printf("   [%d] %-10s %s\n", call.Index, call.Number, call.State)
	}
}

func (printObserver) ReportSingleCallInfo(info cscall.CallReportInfo, state cscall.TelCallState) {
	fmt.Printf("-- одиночный отчет: [%d] %s %s\n", info.Index, info.Number, state)
}

// logFaults печатает диагностические события
type logFaults struct {
	log *slog.Logger
}

func (f logFaults) ReportFault(event cscall.FaultEvent) {
	f.log.Warn("диагностическое событие",
		slog.String("id", event.ID),
		slog.String("op", event.Op),
		slog.String("code", event.ErrorCode.String()),
		slog.String("reason", event.Reason))
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		os.Exit(1)
	}

	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	modem := simradio.NewModem(simradio.Config{
		AutoReport: true,
		Logger:     log,
	})
	ctl := cscall.NewCSControl(cscall.Config{
		Radio:   modem,
		Network: network{cdma: opts.CDMA},
		Faults:  logFaults{log: log},
		Logger:  log,
	})
	modem.Bind(ctl)
	ctl.RegisterCallsObserver(printObserver{})

	ctx := context.Background()
	step := func(name string, fn func() error) {
		fmt.Printf("\n== %s\n", name)
		if err := fn(); err != nil {
			log.Error("шаг не принят", slog.String("step", name), slog.String("error", err.Error()))
		}
	}

	step("набор "+opts.Number, func() error {
		return ctl.Dial(ctx, cscall.CallInfo{Number: opts.Number})
	})
	step("вызов отвечен удаленной стороной", func() error {
		modem.AdvanceOutgoing(ctx, 0)
		modem.AdvanceOutgoing(ctx, 0)
		return nil
	})
	step("входящий "+opts.Incoming+" во время разговора", func() error {
		modem.AddIncoming(ctx, 0, opts.Incoming)
		return nil
	})
	step("ответ на входящий", func() error {
		return ctl.Answer(ctx, cscall.CallInfo{Number: opts.Incoming})
	})
	step("переключение ветвей", func() error {
		return ctl.SwitchCall(ctx, 0)
	})
	step("DTMF на активной ветви", func() error {
		return ctl.SendDtmf(ctx, '5', cscall.CallInfo{Number: opts.Number})
	})
	step("завершение всех ветвей", func() error {
		return ctl.HangUpAllConnection(ctx, 0)
	})
}
