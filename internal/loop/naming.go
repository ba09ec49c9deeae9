package loop

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateLoopID creates a unique, sortable loop identifier of the form
// ralph-YYYYMMDD-HHMMSS-xxxx, where xxxx is a random hex suffix. The
// timestamp prefix keeps `ls .worktrees/` and `loops` output in creation
// order without needing to stat each entry.
func GenerateLoopID(now time.Time) string {
	suffix := uuid.NewString()[:4]
	return fmt.Sprintf("ralph-%s-%s", now.Format("20060102-150405"), suffix)
}
