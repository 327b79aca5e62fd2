package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Chat interactively; one prompt per line",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL(cmd)
	},
}

// runREPL reads prompts from stdin until EOF, /quit or an interrupt. Self-play
// dialogues keep running between prompts; whatever is unfinished at exit is
// cancelled and the rest is flushed.
func runREPL(cmd *cobra.Command) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render(cfg.Name)+dimStyle.Render("  /quit to exit, /status for background dialogues"))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

loop:
	for {
		fmt.Fprint(out, headerStyle.Render("> "))
		var line string
		select {
		case <-ctx.Done():
			break loop
		case l, ok := <-lines:
			if !ok {
				break loop
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			break loop
		case "/status":
			fmt.Fprintf(out, "%d active, %d tracked, %d buffered turns, %d buffered dialogues\n",
				rt.model.ActiveTasks(), len(rt.model.Tasks()), len(rt.model.Conscious()), len(rt.model.Subconscious()))
			continue
		}
		printReply(cmd, rt.model.Chat(ctx, chatRequest(line)))
	}
	fmt.Fprintln(out)

	if err := rt.Close(); err != nil {
		return fmt.Errorf("flush on close: %w", err)
	}
	return nil
}
