package main

import "os"

// Exit codes: 0 success; 1 generic error (resolution, build, I/O);
// 2 usage error (unknown command, bad flags).
const (
	ExitSuccess   = 0
	ExitGeneral   = 1
	ExitUsage     = 2
	ExitCancelled = 130 // conventional SIGINT exit code, distinct from generic failure
)

func exitWithCode(code int) {
	os.Exit(code)
}

// exitCodeFor maps a returned error to an exit code. cobra itself
// already returns a usage error for unknown commands/flags before a
// command body ever runs; everything that reaches here from inside a
// command body is a resolution, build, or I/O failure, so it is always ExitGeneral.
func exitCodeFor(err error) int {
	return ExitGeneral
}
