package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sigreer/sptinv/internal/inventory"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Exercise every disk in parallel",
	Long: `Find disks through lsscsi and probe each on its own worker: wait for
the unit to become ready, then read inquiry data, serial number and capacity.
All workers share one timeout (--probe-timeout). The exit status is 0 only
when every worker succeeded.`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(int(runProbe(cmd)))
	},
}

func init() {
	addFilterFlags(probeCmd)
	probeCmd.Flags().Int("workers", 0, "Maximum concurrent workers (0 means one per disk)")
	probeCmd.Flags().Duration("probe-timeout", 0, "Overall probe timeout")
	probeCmd.Flags().Bool("json", false, "Output as JSON")
	probeCmd.Flags().Bool("noheader", false, "Omit table headers")
}

type probeRecord struct {
	Device   string `json:"device"`
	Serial   string `json:"serial_number,omitempty"`
	Product  string `json:"product_identification,omitempty"`
	Capacity uint64 `json:"drive_capacity,omitempty"`
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error,omitempty"`
}

func runProbe(cmd *cobra.Command) inventory.ExitCode {
	a, err := setup(cmd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return inventory.ExitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Workers run commands concurrently, which a session cannot.
	b, err := inventory.NewBuilder(a.env(a.runner))
	if err != nil {
		a.log.Error().Err(err).Msg("failed to create inventory builder")
		a.close(inventory.ExitError, 0)
		return inventory.ExitError
	}

	statuses, err := b.Probe(ctx)
	code := inventory.ExitCodeFor(err)
	if statuses == nil && err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		a.close(code, 0)
		return code
	}

	records := make([]probeRecord, 0, len(statuses))
	for _, s := range statuses {
		r := probeRecord{
			Device:   s.Device.Name(),
			Serial:   s.Device.SerialNumber,
			Product:  s.Device.Product,
			Capacity: s.Device.CapacityBlocks,
			ExitCode: int(s.ExitCode()),
		}
		if s.Err != nil {
			r.Error = s.Err.Error()
		}
		records = append(records, r)
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	noheader, _ := cmd.Flags().GetBool("noheader")
	if jsonOut {
		err = writeJSON(os.Stdout, records)
	} else {
		fmt.Println(probeTable(records, !noheader))
	}
	if err != nil {
		a.log.Error().Err(err).Msg("failed to write output")
	}

	a.close(code, len(statuses))
	return code
}

func probeTable(records []probeRecord, header bool) string {
	t := table.NewWriter()
	if header {
		t.AppendHeader(table.Row{"Device", "Serial Number", "Product", "Blocks", "Status", "Error"})
	}
	for _, r := range records {
		t.AppendRow(table.Row{r.Device, r.Serial, r.Product, r.Capacity, r.ExitCode, r.Error})
	}
	styleTable(t, header)
	return t.Render()
}
