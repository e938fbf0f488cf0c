package process

import (
	"context"
	"sync"

	"github.com/tauraamui/framegrab/pkg/log"
)

// Process is a long running task which ends either by itself, its run
// func returning, or when stopped.
type Process interface {
	Setup() Process
	Name() string
	Start()
	Stop()
	Wait()
	Done() <-chan struct{}
	Err() error
}

type Settings struct {
	Name               string
	WaitForShutdownMsg string
	Run                func(context.Context) error
}

func New(settings Settings) Process {
	return &process{
		name:               settings.Name,
		waitForShutdownMsg: settings.WaitForShutdownMsg,
		run:                settings.Run,
		done:               make(chan struct{}),
	}
}

type process struct {
	name               string
	waitForShutdownMsg string
	run                func(context.Context) error

	mu        sync.Mutex
	started   bool
	stopped   bool
	canceller context.CancelFunc
	done      chan struct{}
	err       error
}

func (p *process) logShutdown() {
	if len(p.waitForShutdownMsg) > 0 {
		log.Info(p.waitForShutdownMsg)
	}
}

func (p *process) Setup() Process { return p }

func (p *process) Name() string { return p.name }

// Start runs the process once, later calls and calls after Stop do nothing.
func (p *process) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	ctx, canceller := context.WithCancel(context.Background())
	p.canceller = canceller
	go func() {
		defer close(p.done)
		defer canceller()
		err := p.run(ctx)
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
	}()
}

func (p *process) Stop() {
	p.mu.Lock()
	p.stopped = true
	canceller := p.canceller
	p.mu.Unlock()

	p.logShutdown()
	if canceller != nil {
		canceller()
	}
}

// Wait blocks until a started process has returned.
func (p *process) Wait() {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if started {
		<-p.done
	}
}

// Done is closed once the process has returned, it stays open for a
// process never started.
func (p *process) Done() <-chan struct{} { return p.done }

// Err is what the process returned, nil while it is still running.
func (p *process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
