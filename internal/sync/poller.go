package sync

import (
	"context"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskapi/internal/model"
)

// State represents the current state of the poller.
type State int

const (
	Idle State = iota
	Running
	Failed
)

// Status describes the last poll.
type Status struct {
	State    State
	LastSync time.Time
	Error    error
}

// ResultMsg is a tea.Msg sent when a poll completes. Filter is the filter
// the list was fetched with.
type ResultMsg struct {
	Tasks    []model.Task
	Filter   string
	Error    error
	NewCount int
}

// FetchFunc lists tasks matching filter.
type FetchFunc func(ctx context.Context, filter string) ([]model.Task, error)

// DefaultInterval is used when New is given a non-positive interval.
const DefaultInterval = 30 * time.Second

// fetchTimeout is the maximum time allowed for a single fetch operation.
const fetchTimeout = 15 * time.Second

// Poller refreshes the task list in the background so changes made by
// other clients show up without a manual refresh.
type Poller struct {
	fetch     FetchFunc
	interval  time.Duration
	resultCh  chan ResultMsg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	filter  string
	seen    map[int64]bool
	status  Status
	running bool
}

// New creates a Poller that calls fetch every interval.
func New(fetch FetchFunc, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetch:     fetch,
		interval:  interval,
		resultCh:  make(chan ResultMsg, 4),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the polling goroutine and returns a command that waits
// for the first result. Starting twice is a no-op.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.mu.Unlock()

	go p.loop()

	return p.WaitForNextResult()
}

// Stop halts the polling goroutine. Commands already waiting for a result
// return nil. A stopped Poller cannot be restarted.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	close(p.stopCh)
	p.running = false
}

// SetFilter changes the filter used by subsequent polls.
func (p *Poller) SetFilter(filter string) {
	p.mu.Lock()
	p.filter = filter
	p.mu.Unlock()
}

// Refresh triggers an immediate poll.
func (p *Poller) Refresh() {
	select {
	case p.triggerCh <- struct{}{}:
	default:
		// A poll is already pending.
	}
}

// Status returns the outcome of the last poll.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.poll()
		case <-p.triggerCh:
			p.poll()
		}
	}
}

// poll performs a single fetch and sends a ResultMsg on the result channel.
func (p *Poller) poll() {
	p.mu.Lock()
	filter := p.filter
	p.status.State = Running
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	tasks, err := p.fetch(ctx, filter)

	p.mu.Lock()
	if err != nil {
		p.status.State = Failed
		p.status.Error = err
		p.mu.Unlock()
		p.sendResult(ResultMsg{Filter: filter, Error: err})
		return
	}

	// The first successful poll only records what exists.
	newCount := 0
	seen := make(map[int64]bool, len(tasks))
	for _, t := range tasks {
		seen[t.ID] = true
		if p.seen != nil && !p.seen[t.ID] {
			newCount++
		}
	}
	if filter == "" {
		p.seen = seen
	} else if p.seen != nil {
		for id := range seen {
			p.seen[id] = true
		}
	}
	p.status = Status{State: Idle, LastSync: time.Now()}
	p.mu.Unlock()

	p.sendResult(ResultMsg{Tasks: tasks, Filter: filter, NewCount: newCount})
}

// sendResult sends msg without blocking. When the channel is full the
// oldest result is dropped so the newest list always gets through.
func (p *Poller) sendResult(msg ResultMsg) {
	for {
		select {
		case p.resultCh <- msg:
			return
		default:
		}
		select {
		case <-p.resultCh:
		default:
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next poll result.
// Call it again after handling each ResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	resultCh, stopCh := p.resultCh, p.stopCh
	return func() tea.Msg {
		select {
		case result := <-resultCh:
			return result
		case <-stopCh:
			return nil
		}
	}
}
