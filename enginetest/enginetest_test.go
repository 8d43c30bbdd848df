package enginetest_test

import (
	"testing"

	"github.com/timesteward/timesteward"
	"github.com/timesteward/timesteward/enginetest"
)

func TestConformance(t *testing.T) {
	enginetest.Run(t, timesteward.DefaultConfig())
}
