package conversation

import (
	"testing"

	"go.uber.org/goleak"
)

// Submit goroutines started by tests must all settle.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
