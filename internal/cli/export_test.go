package cli

func OverloadIsTerminal(overload func() bool) func() {
	isTerminalRef := isTerminal
	isTerminal = overload
	return func() { isTerminal = isTerminalRef }
}
