package keys

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"

	knapsack "github.com/BackendStack21/knapsack-go"
)

// Debug logging helpers. DEBUG_KNAPSACK=1 traces key generation,
// DEBUG_KNAPSACK=dump additionally dumps every generated key pair.
var (
	debugMode = os.Getenv("DEBUG_KNAPSACK")
	debugKeys = debugMode != ""
	debugDump = debugMode == "dump"
)

func logf(format string, args ...interface{}) {
	if debugKeys {
		fmt.Fprintf(os.Stderr, "[keygen] "+format+"\n", args...)
	}
}

func dumpKeyPair(kp *knapsack.KeyPair) {
	if debugDump {
		logf("%s", spew.Sdump(kp))
	}
}
