// Command lockctl talks to the SwitchBot API with the same credentials and
// signing the firmware uses: list devices, read status, send lock/unlock
// and print signed headers for debugging.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(newEnv()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "lockctl:", err)
		os.Exit(1)
	}
}
