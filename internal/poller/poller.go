// Package poller drives the periodic mailbox checks: a normal interval
// while things work, exponential backoff while they do not, and
// pause/resume and check-now controls on top.
package poller

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jfiedler/invoicewatch/internal/history"
	"github.com/jfiedler/invoicewatch/internal/mail"
)

// State represents the scheduler's current activity.
type State int

const (
	StateIdle State = iota
	StateChecking
	StatePaused
)

// CheckFunc performs one mailbox synchronization. Implemented by
// mail.Downloader.Sync; tests substitute stubs.
type CheckFunc func(ctx context.Context) (mail.SyncResult, error)

// CheckResultMsg is a tea.Msg sent after every completed check.
type CheckResultMsg struct {
	Result    mail.SyncResult
	Err       error
	NextDelay time.Duration
	At        time.Time
}

// PausedMsg is a tea.Msg sent when monitoring is paused or resumed.
type PausedMsg struct {
	Paused bool
}

// Status is a snapshot of the scheduler state for display.
type Status struct {
	State     State
	Paused    bool
	Failures  int
	LastCheck time.Time
	LastErr   error
}

// checkTimeout bounds a single mailbox session. There is no finer
// cancellation; a hung session blocks the scheduler until it expires.
const checkTimeout = 2 * time.Minute

// Poller runs mailbox checks on a single goroutine. The timer tick and
// the manual trigger are arms of one select loop, so two checks can
// never overlap.
type Poller struct {
	check    CheckFunc
	interval time.Duration
	backoff  *Backoff
	hist     *history.Store
	log      *zap.Logger

	resultCh  chan tea.Msg
	triggerCh chan struct{}
	pauseCh   chan bool
	stopCh    chan struct{}

	mu        gosync.Mutex
	running   bool
	paused    bool
	state     State
	lastCheck time.Time
	lastErr   error
}

// New creates a Poller. hist may be nil to skip activity recording.
func New(check CheckFunc, interval time.Duration, backoff *Backoff, hist *history.Store, log *zap.Logger) *Poller {
	return &Poller{
		check:     check,
		interval:  interval,
		backoff:   backoff,
		hist:      hist,
		log:       log,
		resultCh:  make(chan tea.Msg, 16),
		triggerCh: make(chan struct{}, 1),
		pauseCh:   make(chan bool, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a command that
// subscribes to its results. The first check runs immediately.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.run()

	return p.waitForResult()
}

// Stop halts the polling goroutine.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
}

// CheckNow requests an immediate check. The request is dropped if one
// is already queued; it is ignored while paused.
func (p *Poller) CheckNow() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
}

// SetPaused pauses or resumes monitoring. Pausing suppresses ticks
// without touching backoff state; resuming restores the normal interval
// immediately and does not replay missed ticks.
func (p *Poller) SetPaused(paused bool) {
	select {
	case p.pauseCh <- paused:
	default:
	}
}

// Results exposes the result channel for headless operation, where no
// Bubble Tea runtime is draining messages. Received values are
// CheckResultMsg or PausedMsg.
func (p *Poller) Results() <-chan tea.Msg {
	return p.resultCh
}

// Status returns a snapshot of the scheduler state.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Status{
		State:     p.state,
		Paused:    p.paused,
		Failures:  p.backoff.Failures(),
		LastCheck: p.lastCheck,
		LastErr:   p.lastErr,
	}
}

// run is the scheduler loop. A single timer is stopped and reset with a
// new delay after every check rather than left running, so a manual
// trigger can never race a timer tick.
func (p *Poller) run() {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-p.stopCh:
			return

		case paused := <-p.pauseCh:
			p.setPausedState(paused)
			stopTimer(timer)
			if !paused {
				timer.Reset(p.interval)
			}
			p.sendResultMsg(PausedMsg{Paused: paused})

		case <-timer.C:
			timer.Reset(p.tick())

		case <-p.triggerCh:
			if p.isPaused() {
				p.log.Info("monitoring is paused, skipping check")
				continue
			}
			stopTimer(timer)
			timer.Reset(p.tick())
		}
	}
}

// tick performs one check and returns the delay before the next one:
// the normal interval after a success, the backoff delay after a
// failure.
func (p *Poller) tick() time.Duration {
	p.setState(StateChecking)
	p.log.Info("checking for new messages")

	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	result, err := p.check(ctx)
	cancel()

	var next time.Duration
	if err != nil {
		next = p.backoff.Fail()
		p.log.Error("check failed",
			zap.Error(err),
			zap.Int("failures", p.backoff.Failures()),
			zap.Duration("backoff", next),
		)
	} else {
		p.backoff.Reset()
		next = p.interval
		p.log.Info("check complete",
			zap.Int("downloaded", len(result.Downloaded)),
			zap.Int("processed", result.Processed),
		)
	}

	p.recordRun(started, result, err)

	p.mu.Lock()
	p.state = StateIdle
	p.lastCheck = started
	p.lastErr = err
	p.mu.Unlock()

	p.sendResultMsg(CheckResultMsg{
		Result:    result,
		Err:       err,
		NextDelay: next,
		At:        started,
	})

	return next
}

// recordRun writes the run and its downloads to the activity store.
func (p *Poller) recordRun(started time.Time, result mail.SyncResult, err error) {
	if p.hist == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	run := history.Run{
		StartedAt:      started,
		FinishedAt:     time.Now(),
		NewAttachments: len(result.Downloaded),
	}
	if err != nil {
		run.Status = history.RunFailed
		run.Error = err.Error()
	} else {
		run.Status = history.RunOK
	}

	if recErr := p.hist.RecordRun(ctx, run); recErr != nil {
		p.log.Error("failed recording run", zap.Error(recErr))
	}

	for _, name := range result.Downloaded {
		ev := history.Event{
			Kind:    history.EventDownload,
			Message: name,
		}
		if recErr := p.hist.RecordEvent(ctx, ev); recErr != nil {
			p.log.Error("failed recording event", zap.Error(recErr))
		}
	}
}

func (p *Poller) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *Poller) setPausedState(paused bool) {
	p.mu.Lock()
	p.paused = paused
	if paused {
		p.state = StatePaused
	} else {
		p.state = StateIdle
	}
	p.mu.Unlock()

	if paused {
		p.log.Info("monitoring paused")
	} else {
		p.log.Info("monitoring resumed")
	}
}

func (p *Poller) isPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// sendResultMsg sends a message on the result channel without blocking.
func (p *Poller) sendResultMsg(msg tea.Msg) {
	select {
	case p.resultCh <- msg:
	default:
		// Drop if the channel is full to avoid blocking the scheduler.
	}
}

// stopTimer stops t and drains a pending fire so a later Reset cannot
// double-trigger.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// waitForResult returns a tea.Cmd that waits for the next message from
// the result channel.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-p.resultCh
		if !ok {
			return nil
		}
		return msg
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next result.
// Call after processing a message to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
