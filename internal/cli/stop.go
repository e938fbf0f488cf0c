package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/term"
)

var isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// StopRequested closes once the user wants acquisition to end. An
// interactive stdin stops on <enter>, SIGINT and SIGTERM always stop.
func StopRequested(stdin io.Reader) <-chan struct{} {
	stop := make(chan struct{})
	once := sync.Once{}
	closeStop := func() { once.Do(func() { close(stop) }) }

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-interrupt:
			fmt.Print("\r")
			closeStop()
		case <-stop:
		}
		signal.Stop(interrupt)
	}()

	if isTerminal() {
		fmt.Println("Press <enter> to stop acquisition...")
		go func() {
			_, _ = bufio.NewReader(stdin).ReadString('\n')
			closeStop()
		}()
	}
	return stop
}
