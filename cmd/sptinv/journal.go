package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sigreer/sptinv/internal/config"
	"github.com/sigreer/sptinv/internal/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recorded runs and their commands",
	Long: `List the most recent runs recorded in the journal, or with --run the
commands one run executed, in order, with exit status and duration.

The journal is written only when a journal path is configured.`,
	Run: runJournal,
}

func init() {
	journalCmd.Flags().Int("runs", 10, "Number of runs to list")
	journalCmd.Flags().String("run", "", "Show the commands of this run ID")
	journalCmd.Flags().Bool("json", false, "Output as JSON")
}

func openJournal() (*journal.Journal, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	path := cfg.Journal
	if path == "" {
		path = journal.DefaultPath
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no journal at %s", path)
	}
	return journal.Open(path)
}

func runJournal(cmd *cobra.Command, args []string) {
	j, err := openJournal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening journal: %v\n", err)
		os.Exit(1)
	}
	defer j.Close()

	jsonOut, _ := cmd.Flags().GetBool("json")
	runID, _ := cmd.Flags().GetString("run")

	if runID != "" {
		entries, err := j.Invocations(runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error querying journal: %v\n", err)
			os.Exit(1)
		}
		if jsonOut {
			writeJSON(os.Stdout, entries)
			return
		}
		if len(entries) == 0 {
			fmt.Printf("No commands recorded for run %s.\n", runID)
			return
		}
		fmt.Println(invocationTable(entries))
		return
	}

	limit, _ := cmd.Flags().GetInt("runs")
	runs, err := j.Runs(limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error querying journal: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		writeJSON(os.Stdout, runs)
		return
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return
	}
	fmt.Println(runTable(runs))
}

func runTable(runs []*journal.Run) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Run ID", "Started", "Elapsed", "Exit", "Devices", "Command"})
	for _, r := range runs {
		elapsed, exit := "running", "-"
		if r.Finished != nil {
			elapsed = r.Finished.Sub(r.Started).Round(10 * time.Millisecond).String()
		}
		if r.ExitCode != nil {
			exit = fmt.Sprint(*r.ExitCode)
		}
		t.AppendRow(table.Row{r.RunID, humanize.Time(r.Started), elapsed, exit, r.Devices, r.Command})
	}
	styleTable(t, true)
	return t.Render()
}

func invocationTable(entries []*journal.Entry) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Via", "Exit", "Duration", "Command", "Message"})
	for i, e := range entries {
		exit := fmt.Sprint(e.ExitCode)
		if e.TimedOut {
			exit = "timeout"
		}
		t.AppendRow(table.Row{i + 1, e.Via, exit, e.Duration, e.Command, e.Message})
	}
	styleTable(t, true)
	return t.Render()
}
