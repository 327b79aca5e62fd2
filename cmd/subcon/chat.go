package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"subcon/internal/cortex"
	"subcon/internal/types"
)

var (
	useWeb       bool
	useRAG       bool
	tokenBudget  int
	useExternal  bool
	iterations   int
	waitDuration time.Duration
	plainOutput  bool
)

var chatCmd = &cobra.Command{
	Use:   "chat [prompt]",
	Short: "Answer one prompt and let the follow-up dialogues run",
	Long: `Answers the prompt, prints the reply, then waits up to --wait for the
self-play dialogues it scheduled before flushing everything to storage.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runChat,
}

func init() {
	for _, c := range []*cobra.Command{chatCmd, replCmd} {
		c.Flags().BoolVar(&useWeb, "web", false, "Augment with web research")
		c.Flags().BoolVar(&useRAG, "rag", false, "Augment with the local corpus")
		c.Flags().IntVar(&tokenBudget, "tokens", 0, "Token budget for the answer (0 uses config)")
		c.Flags().BoolVar(&useExternal, "external", false, "Answer with the external provider")
		c.Flags().IntVar(&iterations, "iters", 0, "Self-play iterations per follow-up (0 uses config, negative disables)")
		c.Flags().BoolVar(&plainOutput, "plain", false, "Print replies without markdown rendering")
	}
	chatCmd.Flags().DurationVar(&waitDuration, "wait", 2*time.Minute, "How long to wait for self-play dialogues")
}

func chatRequest(prompt string) cortex.ChatRequest {
	return cortex.ChatRequest{
		Prompt:              prompt,
		Augmentation:        types.Augmentation{Web: useWeb, Retrieval: useRAG},
		TokenBudget:         tokenBudget,
		UseExternalProvider: useExternal,
		SelfPlayIterations:  iterations,
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}

	prompt := strings.Join(args, " ")
	reply := rt.model.Chat(ctx, chatRequest(prompt))
	printReply(cmd, reply)

	if n := rt.model.ActiveTasks(); n > 0 && waitDuration > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render(fmt.Sprintf("waiting for %d self-play dialogue(s)...", n)))
		if !rt.model.WaitForAll(waitDuration) {
			logger.Warn("self-play dialogues still running at deadline", zap.Int("active", rt.model.ActiveTasks()))
		}
	}

	if err := rt.Close(); err != nil {
		return fmt.Errorf("flush on close: %w", err)
	}
	return nil
}

func printReply(cmd *cobra.Command, reply string) {
	out := cmd.OutOrStdout()
	if reply == cortex.DegradedResponse {
		fmt.Fprintln(out, errorStyle.Render(reply))
		return
	}
	if plainOutput {
		fmt.Fprintln(out, reply)
		return
	}
	fmt.Fprint(out, renderMarkdown(reply))
}
