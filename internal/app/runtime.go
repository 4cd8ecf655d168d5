package app

import "os"

// TestModeEnv, when set to 1, makes the binaries return before opening
// connections. The testing package sets it for every test binary.
const TestModeEnv = "ODYSSEY_TEST_MODE"

// InTestMode reports whether TestModeEnv is set.
func InTestMode() bool {
	return os.Getenv(TestModeEnv) == "1"
}
