package v4v_test

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain guards the package's tests against goroutine leaks, most
// relevantly the errgroup fan-out in Hub.Notify's event-channel signaling.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
