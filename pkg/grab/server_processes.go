package grab

import (
	"sync"

	"github.com/tauraamui/framegrab/pkg/grab/process"
	"github.com/tauraamui/framegrab/pkg/log"
)

func (s *Server) SetupProcesses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cam := range s.cameras {
		proc := process.NewAcquisitionProcess(cam, s.recorder)
		s.acquisitionProcesses = append(s.acquisitionProcesses, proc.Setup())
	}
}

// RunProcesses does nothing once shutdown has begun.
func (s *Server) RunProcesses() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return
	}
	for _, proc := range s.acquisitionProcesses {
		proc.Start()
	}
	procs := s.acquisitionProcesses
	s.watchOnce.Do(func() { go s.watchProcesses(procs) })
}

// ProcessesDone closes once every running acquisition process has
// returned, whether stopped or ended by a camera failing.
func (s *Server) ProcessesDone() <-chan struct{} {
	return s.processesDone
}

func (s *Server) watchProcesses(procs []process.Process) {
	for _, proc := range procs {
		<-proc.Done()
	}
	close(s.processesDone)
}

func (s *Server) shutdownProcesses() {
	s.mu.Lock()
	procs := s.acquisitionProcesses
	s.mu.Unlock()

	wg := sync.WaitGroup{}
	wg.Add(len(procs))
	for _, proc := range procs {
		go func(wg *sync.WaitGroup, proc process.Process) {
			proc.Stop()
			proc.Wait()
			if err := proc.Err(); err != nil {
				log.Warn("Acquisition from camera [%s] had ended early: %v", proc.Name(), err)
			}
			wg.Done()
		}(&wg, proc)
	}
	wg.Wait()
}
