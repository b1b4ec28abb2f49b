package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"git.home.luguber.info/inful/margin/internal/eventstore"
	ferrors "git.home.luguber.info/inful/margin/internal/foundation/errors"
)

// HistoryCmd prints recent builds.
type HistoryCmd struct {
	Limit int  `short:"n" default:"20" help:"Number of builds to show"`
	JSON  bool `name:"json" help:"Print summaries as JSON"`
}

func (h *HistoryCmd) Run(g *Global, cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return ferrors.ConfigError("build history is not enabled").
			WithContext("hint", "set history.path in "+cli.Config).
			Build()
	}

	store, err := eventstore.Open(cfg.History.Path, g.logger())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	events, err := store.Recent(context.Background(), h.Limit)
	if err != nil {
		return err
	}
	summaries := eventstore.Summarize(events)
	if h.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}
	return printSummaries(g.out(), summaries)
}

func printSummaries(w io.Writer, summaries []eventstore.BuildSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No builds recorded.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTATUS\tSTARTED\tDURATION\tREVISION\tERROR")
	for _, s := range summaries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(s.BuildID), s.Status, humanize.Time(s.StartedAt), s.Duration.Round(time.Millisecond), dash(s.Revision), dash(s.Error))
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
