package backend

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClaudeBackend(t *testing.T) {
	d := Claude()
	built, err := BuildCommand(d, "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, "claude", built.Command)
	require.Equal(t, []string{
		"--dangerously-skip-permissions", "--verbose", "--output-format", "stream-json",
		"-p", "test prompt",
	}, built.Args)
	require.False(t, built.UseStdin)
	require.Equal(t, StreamJSON, d.OutputFormat)
}

func TestClaudeInteractiveBackend(t *testing.T) {
	d := ClaudeInteractive()
	built, err := BuildCommand(d, "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, []string{"--dangerously-skip-permissions", "test prompt"}, built.Args)
	require.Empty(t, d.PromptFlag)
}

func TestClaudeLargePromptUsesTempFile(t *testing.T) {
	d := Claude()
	large := strings.Repeat("x", 7001)
	built, err := BuildCommand(d, large, false)
	require.NoError(t, err)
	require.NotEmpty(t, built.TempFile)
	defer os.Remove(built.TempFile)

	found := false
	for _, a := range built.Args {
		if strings.Contains(a, "Please read and execute") {
			found = true
		}
	}
	require.True(t, found)

	data, err := os.ReadFile(built.TempFile)
	require.NoError(t, err)
	require.Equal(t, large, string(data))
}

func TestNonClaudeLargePromptIsInline(t *testing.T) {
	d := Kiro()
	large := strings.Repeat("x", 7001)
	built, err := BuildCommand(d, large, false)
	require.NoError(t, err)
	require.Empty(t, built.TempFile)
	require.Equal(t, large, built.Args[len(built.Args)-1])
}

func TestKiroBackend(t *testing.T) {
	built, err := BuildCommand(Kiro(), "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, "kiro-cli", built.Command)
	require.Equal(t, []string{"chat", "--no-interactive", "--trust-all-tools", "test prompt"}, built.Args)
}

func TestGeminiBackend(t *testing.T) {
	built, err := BuildCommand(Gemini(), "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, []string{"--yolo", "-p", "test prompt"}, built.Args)
}

func TestCodexBackend(t *testing.T) {
	built, err := BuildCommand(Codex(), "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, []string{"exec", "--full-auto", "test prompt"}, built.Args)
}

func TestAmpBackend(t *testing.T) {
	built, err := BuildCommand(Amp(), "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, []string{"--dangerously-allow-all", "-x", "test prompt"}, built.Args)
}

func TestCopilotBackend(t *testing.T) {
	built, err := BuildCommand(Copilot(), "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, []string{"--allow-all-tools", "-p", "test prompt"}, built.Args)
}

func TestKiroInteractiveModeOmitsNoInteractive(t *testing.T) {
	built, err := BuildCommand(Kiro(), "test prompt", true)
	require.NoError(t, err)
	require.Equal(t, []string{"chat", "--trust-all-tools", "test prompt"}, built.Args)
	require.NotContains(t, built.Args, "--no-interactive")
}

func TestCodexInteractiveModeOmitsFullAuto(t *testing.T) {
	built, err := BuildCommand(Codex(), "test prompt", true)
	require.NoError(t, err)
	require.Equal(t, []string{"exec", "test prompt"}, built.Args)
}

func TestAmpInteractiveModeOmitsFlag(t *testing.T) {
	built, err := BuildCommand(Amp(), "test prompt", true)
	require.NoError(t, err)
	require.Equal(t, []string{"-x", "test prompt"}, built.Args)
}

func TestCopilotInteractiveModeOmitsFlag(t *testing.T) {
	built, err := BuildCommand(Copilot(), "test prompt", true)
	require.NoError(t, err)
	require.Equal(t, []string{"-p", "test prompt"}, built.Args)
}

func TestClaudeInteractiveModeUnchanged(t *testing.T) {
	d := Claude()
	auto, err := BuildCommand(d, "test prompt", false)
	require.NoError(t, err)
	interactive, err := BuildCommand(d, "test prompt", true)
	require.NoError(t, err)
	require.Equal(t, auto.Args, interactive.Args)
}

func TestCustomBackendRequiresCommand(t *testing.T) {
	_, err := Custom(CustomConfig{PromptMode: "arg"})
	require.Error(t, err)
	require.Equal(t, "custom backend requires a command to be specified", err.Error())
}

func TestCustomBackendWithPromptFlag(t *testing.T) {
	d, err := Custom(CustomConfig{Command: "my-agent", PromptMode: "arg", PromptFlag: "-p"})
	require.NoError(t, err)
	built, err := BuildCommand(d, "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, "my-agent", built.Command)
	require.Equal(t, []string{"-p", "test prompt"}, built.Args)
}

func TestCustomBackendPositional(t *testing.T) {
	d, err := Custom(CustomConfig{Command: "my-agent", PromptMode: "arg"})
	require.NoError(t, err)
	built, err := BuildCommand(d, "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, []string{"test prompt"}, built.Args)
}

func TestCustomBackendStdin(t *testing.T) {
	d, err := Custom(CustomConfig{Command: "my-agent", PromptMode: "stdin"})
	require.NoError(t, err)
	built, err := BuildCommand(d, "test prompt", false)
	require.NoError(t, err)
	require.True(t, built.UseStdin)
	require.Equal(t, "test prompt", built.Stdin)
}

func TestKiroWithAgentAndExtraArgs(t *testing.T) {
	d := KiroWithAgent("my-agent", []string{"--verbose", "--debug"})
	built, err := BuildCommand(d, "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, []string{
		"chat", "--no-interactive", "--trust-all-tools", "--agent", "my-agent",
		"--verbose", "--debug", "test prompt",
	}, built.Args)
}

func TestFromNameInvalid(t *testing.T) {
	_, err := FromName("invalid")
	require.Error(t, err)
}

func TestForInteractivePromptGeminiUsesIFlag(t *testing.T) {
	d, err := ForInteractivePrompt("gemini")
	require.NoError(t, err)
	require.Equal(t, "-i", d.PromptFlag)
	built, err := BuildCommand(d, "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, []string{"--yolo", "-i", "test prompt"}, built.Args)
}

func TestForInteractivePromptOpencodeDropsRunSubcommand(t *testing.T) {
	d, err := ForInteractivePrompt("opencode")
	require.NoError(t, err)
	built, err := BuildCommand(d, "test prompt", true)
	require.NoError(t, err)
	require.NotContains(t, built.Args, "run")
	require.Contains(t, built.Args, "--prompt")
}

func TestOpencodeHeadlessBackend(t *testing.T) {
	built, err := BuildCommand(Opencode(), "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, []string{"run", "test prompt"}, built.Args)
}

func TestCustomFromCommandLineAppendsPromptPositionally(t *testing.T) {
	d, err := CustomFromCommandLine("my-agent --flag value")
	require.NoError(t, err)
	require.Equal(t, "my-agent", d.Command)
	require.Equal(t, []string{"--flag", "value"}, d.Args)

	built, err := BuildCommand(d, "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, []string{"--flag", "value", "test prompt"}, built.Args)
}

func TestCustomArgsCanBeAppended(t *testing.T) {
	d := Opencode()
	d.Args = append(d.Args, "--model=gpt-4", "--temperature=0.7")

	built, err := BuildCommand(d, "test prompt", false)
	require.NoError(t, err)
	require.Equal(t, []string{"run", "--model=gpt-4", "--temperature=0.7", "test prompt"}, built.Args)
}
