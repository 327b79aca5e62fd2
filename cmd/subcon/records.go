package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"subcon/internal/store"
)

var (
	recordKind  string
	recordLimit int
	recordJSON  bool
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect persisted conversations and dialogues",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := store.Kind(recordKind)
		if kind != "" && kind != store.KindConscious && kind != store.KindSubconscious {
			return fmt.Errorf("unknown record kind %q (use %s or %s)", recordKind, store.KindConscious, store.KindSubconscious)
		}

		st, err := store.Open(cmd.Context(), cfg.Storage)
		if err != nil {
			return err
		}
		defer st.Close()

		recs, err := st.List(cmd.Context(), kind, recordLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, dimStyle.Render("no records"))
			return nil
		}
		for _, rec := range recs {
			fmt.Fprintln(out, recordSummary(rec))
		}
		return nil
	},
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Storage)
		if err != nil {
			return err
		}
		defer st.Close()

		rec, err := st.Get(cmd.Context(), args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no record %q", args[0])
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if recordJSON {
			data, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		if plainOutput {
			fmt.Fprint(out, recordMarkdown(rec))
			return nil
		}
		fmt.Fprint(out, renderMarkdown(recordMarkdown(rec)))
		return nil
	},
}

func init() {
	recordsListCmd.Flags().StringVar(&recordKind, "kind", "", "Only list conscious or subconscious records")
	recordsListCmd.Flags().IntVar(&recordLimit, "limit", 20, "Maximum records to list (0 for all)")
	recordsShowCmd.Flags().BoolVar(&recordJSON, "json", false, "Print the stored JSON")
	recordsShowCmd.Flags().BoolVar(&plainOutput, "plain", false, "Print markdown without rendering")

	recordsCmd.AddCommand(recordsListCmd, recordsShowCmd)
}
