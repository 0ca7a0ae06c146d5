// Package cycle runs one wake cycle, from reset to deep sleep.
//
// Every phase error is handled at its boundary and rendered on the pixel;
// only a failed connect skips dispatch. The watchdog is fed between phases
// so a hang inside any one phase resets the board.
package cycle

import (
	"context"
	"log/slog"

	"lockbutton-go/bus"
	"lockbutton-go/errcode"
	"lockbutton-go/services/indicator"
	"lockbutton-go/services/power"
	"lockbutton-go/services/press"
	"lockbutton-go/services/switchbot"
	"lockbutton-go/services/timebase"
	"lockbutton-go/services/wifi"
	"lockbutton-go/types"
	"lockbutton-go/x/logx"
)

// Phases, in order. Published on TopicPhase as they start.
const (
	PhaseBoot     = "boot"
	PhaseActive   = "active"
	PhaseConnect  = "connect"
	PhaseTimeSync = "time_sync"
	PhaseDispatch = "dispatch"
	PhaseFeedback = "feedback"
	PhaseSleep    = "sleep"
)

var (
	TopicPhase  = bus.T("cycle/phase")
	TopicReport = bus.T("cycle/report")
)

// Sender is the dispatch step. *switchbot.Dispatcher implements it.
type Sender interface {
	Send(ctx context.Context, action types.Action) (switchbot.Outcome, int)
}

type Deps struct {
	Power     *power.Controller
	Sampler   *press.Sampler
	Indicator *indicator.Indicator
	WiFi      *wifi.Manager
	Time      *timebase.Base
	Sender    Sender
	Trace     *bus.Connection // optional
	Log       *slog.Logger
}

// Report summarises one cycle.
type Report struct {
	Boot       power.Boot
	Press      types.PressMeasurement
	Path       wifi.Path
	ConnectErr error
	Sync       timebase.SyncResult
	Outcome    switchbot.Outcome
	Attempts   int
	Rendered   []indicator.Pattern
}

// Final is the last pattern shown, PatternNone when nothing was rendered.
func (r Report) Final() indicator.Pattern {
	if len(r.Rendered) == 0 {
		return indicator.PatternNone
	}
	return r.Rendered[len(r.Rendered)-1]
}

type runner struct {
	Deps
	rep Report
}

// Run executes the cycle and ends in Power.Sleep. On hardware it does not
// return; on host boards it returns the report.
func Run(ctx context.Context, d Deps) Report {
	d.Log = logx.OrDiscard(d.Log)
	r := &runner{Deps: d}
	r.run(ctx)
	return r.rep
}

func (r *runner) run(ctx context.Context) {
	r.phase(PhaseBoot)
	r.rep.Boot = r.Power.Boot()
	if r.rep.Boot == power.BootCold {
		// Nothing was pressed; go straight back to sleep.
		r.Indicator.Off()
		r.sleep()
		return
	}

	r.phase(PhaseActive)
	if err := r.Power.Enter(); err != nil {
		r.Log.Error("cycle:enter-failed", slog.String("err", err.Error()))
	}
	r.rep.Press = r.Sampler.Measure(r.Indicator)

	r.phase(PhaseConnect)
	r.rep.Path, r.rep.ConnectErr = r.WiFi.Connect(ctx)
	r.Power.Feed(PhaseConnect)
	if r.rep.ConnectErr != nil {
		r.Log.Warn("cycle:connect-failed", slog.String("err", r.rep.ConnectErr.Error()))
		r.phase(PhaseFeedback)
		r.render(indicator.NetworkTimeout)
		r.sleep()
		return
	}

	r.phase(PhaseTimeSync)
	r.rep.Sync = r.Time.EnsureValid(ctx)
	r.Power.Feed(PhaseTimeSync)
	if p := PatternForSync(r.rep.Sync); p != indicator.PatternNone {
		r.render(p)
	}

	r.phase(PhaseDispatch)
	r.rep.Outcome, r.rep.Attempts = r.Sender.Send(ctx, r.rep.Press.Action)
	r.Power.Feed(PhaseDispatch)
	r.WiFi.Disconnect()

	r.phase(PhaseFeedback)
	r.render(PatternForOutcome(r.rep.Press.Action, r.rep.Outcome))
	r.sleep()
}

func (r *runner) render(p indicator.Pattern) {
	r.rep.Rendered = append(r.rep.Rendered, p)
	r.Indicator.Render(p)
}

func (r *runner) sleep() {
	r.phase(PhaseSleep)
	r.publish(TopicReport, r.rep)
	r.Log.Info("cycle:done",
		slog.String("boot", r.rep.Boot.String()),
		slog.String("action", r.rep.Press.Action.String()),
		slog.Int("press_ms", int(r.rep.Press.DurationMs)),
		slog.String("path", r.rep.Path.String()),
		slog.String("sync", r.rep.Sync.String()),
		slog.String("outcome", r.rep.Outcome.Kind.String()),
		slog.Int("attempts", r.rep.Attempts),
		slog.String("rendered", r.rep.Final().String()),
	)
	if err := r.Power.Sleep(); err != nil {
		r.Log.Error("cycle:sleep-failed", slog.String("err", err.Error()))
	}
}

func (r *runner) phase(p string) {
	r.Log.Debug("cycle:phase", slog.String("phase", p))
	r.publish(TopicPhase, p)
}

func (r *runner) publish(t bus.Topic, payload any) {
	if r.Trace == nil {
		return
	}
	r.Trace.Publish(r.Trace.NewMessage(t, payload, true))
}

// PatternForSync maps a sync result to its warning pattern. A valid or
// freshly synced clock renders nothing.
func PatternForSync(s timebase.SyncResult) indicator.Pattern {
	switch s {
	case timebase.SyncTimeout:
		return indicator.TimeSyncError
	case timebase.SyncFailed:
		return indicator.TimeSyncFailed
	default:
		return indicator.PatternNone
	}
}

// PatternForOutcome maps a dispatch outcome to the final pattern.
func PatternForOutcome(a types.Action, o switchbot.Outcome) indicator.Pattern {
	switch o.Code() {
	case errcode.OK:
		return indicator.SuccessFor(a)
	case errcode.AuthError:
		return indicator.AuthError
	case errcode.NetworkTimeout:
		return indicator.NetworkTimeout
	default:
		return indicator.APIError
	}
}
