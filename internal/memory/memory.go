// Package memory reads the persistent memories markdown file that
// concurrent loops share (via symlink, in worktrees) and filters its
// entries for prompt injection.
package memory

import (
	"bufio"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ralph-loop/ralph/internal/config"
	"github.com/ralph-loop/ralph/internal/prompt"
)

// headerPattern matches one entry heading: "## [type] 2026-08-01" with
// optional trailing title text.
var headerPattern = regexp.MustCompile(`^## \[([a-z_]+)\] (\d{4}-\d{2}-\d{2})`)

// UsageSkill is the static document prepended to auto-injected
// memories, teaching the agent how to read and append them.
const UsageSkill = `## Using memories

Memories are durable notes that survive across iterations and loops.
Read them before planning; they record decisions, gotchas, and context
your predecessors paid for. Append a new memory when you learn
something a future iteration would otherwise rediscover the hard way.
Append entries with a "## [type] YYYY-MM-DD" heading and an optional
"tags:" line; never rewrite or delete existing entries.`

// Load parses the memories file at path into prompt.Memory entries,
// computing each entry's age relative to now. A missing file yields no
// entries and no error.
func Load(path string, now time.Time) ([]prompt.Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var memories []prompt.Memory
	var current *prompt.Memory
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(body, "\n"))
		if current.Content != "" {
			memories = append(memories, *current)
		}
		current = nil
		body = nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if m := headerPattern.FindStringSubmatch(line); m != nil {
			flush()
			entry := prompt.Memory{Type: m[1]}
			if written, err := time.Parse("2006-01-02", m[2]); err == nil {
				entry.AgeDays = int(now.Sub(written).Hours() / 24)
			}
			current = &entry
			continue
		}
		if current == nil {
			continue
		}
		if tags, ok := strings.CutPrefix(line, "tags:"); ok && len(body) == 0 {
			for _, tag := range strings.Split(tags, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					current.Tags = append(current.Tags, tag)
				}
			}
			continue
		}
		body = append(body, line)
	}
	flush()
	return memories, scanner.Err()
}

// Filter narrows memories to those matching the configured type and
// tag sets. Empty sets match everything; the recency window is applied
// later by the prompt composer, which already knows each entry's age.
func Filter(memories []prompt.Memory, f config.MemoriesFilter) []prompt.Memory {
	if len(f.Types) == 0 && len(f.Tags) == 0 {
		return memories
	}
	var out []prompt.Memory
	for _, m := range memories {
		if len(f.Types) > 0 && !containsString(f.Types, m.Type) {
			continue
		}
		if len(f.Tags) > 0 && !anyTagMatches(f.Tags, m.Tags) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func anyTagMatches(want, have []string) bool {
	for _, w := range want {
		if containsString(have, w) {
			return true
		}
	}
	return false
}
