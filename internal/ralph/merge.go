package ralph

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ralph-loop/ralph/internal/config"
	"github.com/ralph-loop/ralph/internal/logger"
	"github.com/ralph-loop/ralph/internal/mergequeue"
)

// mergeLoopConfig is the solo-mode configuration each spawned merge
// child runs under: a plain Claude loop whose only objective is the
// merge prompt it is handed.
const mergeLoopConfig = `cli:
  backend: claude
event_loop:
  max_iterations: 10
  completion_promise: MERGE_COMPLETE
`

// processPendingMerges drains the merge queue after a primary loop
// completes, spawning one detached "ralph run" child per queued entry.
// Each child works the merge conversationally (resolving conflicts if
// it can). Neither this function nor the child's run changes the
// queue: an entry stays Queued until `ralph loops merge` or
// `ralph loops discard` moves it, so a later drain spawns a child for
// it again. A failure to spawn likewise leaves the entry queued.
func processPendingMerges(repoRoot string) {
	queue := mergequeue.New(repoRoot)

	pending, err := queue.ListByState(mergequeue.StateQueued)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read merge queue")
		return
	}
	if len(pending) == 0 {
		return
	}
	logger.Info().Int("count", len(pending)).Msg("processing pending merges")

	configPath := filepath.Join(repoRoot, config.StateDirName, "merge-loop-config.yml")
	if err := config.WriteFileAtomic(configPath, []byte(mergeLoopConfig), 0o644); err != nil {
		logger.Warn().Err(err).Msg("failed to write merge-loop config, entries remain queued")
		return
	}

	exe, err := os.Executable()
	if err != nil {
		exe = "ralph"
	}

	for _, entry := range pending {
		prompt := fmt.Sprintf(
			"Merge branch ralph/%s into the main branch. Review the diff first; resolve conflicts conservatively. When merged cleanly, emit MERGE_COMPLETE.",
			entry.LoopID,
		)
		cmd := exec.Command(exe,
			"run",
			"--config", configPath,
			"--autonomous",
			"-p", prompt,
		)
		cmd.Dir = repoRoot
		cmd.Env = append(os.Environ(), "RALPH_MERGE_LOOP_ID="+entry.LoopID)
		if err := cmd.Start(); err != nil {
			logger.Warn().Str("loop_id", entry.LoopID).Err(err).Msg("failed to spawn merge loop, entry remains queued")
			continue
		}
		logger.Info().Str("loop_id", entry.LoopID).Int("pid", cmd.Process.Pid).Msg("merge loop spawned")
		// Detach: the child outlives this process.
		_ = cmd.Process.Release()
	}
}
