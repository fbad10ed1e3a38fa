// Command qcnsim runs queueing and communication network scenarios.
// CLI handling lives in the cobra commands under cmd/.
package main

import (
	"github.com/qcnsim/qcnsim/cmd"
)

func main() {
	cmd.Execute()
}
