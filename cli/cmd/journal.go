package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/tfc/cli/render"
	"github.com/pithecene-io/tfc/journal"
)

// JournalCommand returns the journal command, which reads the records a
// server wrote for completed uploads and deletes.
func JournalCommand() *cli.Command {
	flags := append(JournalFlags(),
		&cli.StringFlag{
			Name:  "direction",
			Usage: "Only show records for this direction: upload or delete",
		},
		&cli.StringFlag{
			Name:  "id",
			Usage: "Show a single record",
		},
		&cli.BoolFlag{
			Name:  "summary",
			Usage: "Show totals instead of records",
		},
	)
	return &cli.Command{
		Name:   "journal",
		Usage:  "List completed transfers recorded by a server",
		Flags:  append(flags, OutputFlags()...),
		Action: journalAction,
	}
}

func journalAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), exitApplication)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return cli.Exit(err.Error(), exitApplication)
	}

	choice := journalSettings(c, cfg)
	if choice.backend == "" {
		return cli.Exit("no journal configured (set --journal-backend or journal.backend)", exitApplication)
	}
	j, err := openJournal(c.Context, choice)
	if err != nil {
		return cli.Exit(fmt.Sprintf("journal: %v", err), exitApplication)
	}
	defer func() { _ = j.Close() }()

	records, err := j.List(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("journal: %v", err), exitApplication)
	}
	records = journal.Filter(records, c.String("direction"))

	if id := c.String("id"); id != "" {
		rec, ok := findRecord(records, id)
		if !ok {
			return cli.Exit(fmt.Sprintf("journal record %q not found", id), exitApplication)
		}
		if c.Bool("tui") {
			return r.RenderTUI("inspect_record", rec)
		}
		return r.Render(rec)
	}

	if c.Bool("summary") || c.Bool("tui") {
		summary := journal.Summarize(records)
		if c.Bool("tui") {
			return r.RenderTUI("stats_journal", &summary)
		}
		return r.Render(&summary)
	}

	if records == nil {
		records = []journal.Record{}
	}
	return r.Render(records)
}

func findRecord(records []journal.Record, id string) (*journal.Record, bool) {
	for i := range records {
		if records[i].ID == id {
			return &records[i], true
		}
	}
	return nil, false
}
