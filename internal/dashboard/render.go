package dashboard

import (
	"fmt"
	"io"
	"text/tabwriter"
)

func newTable(writer io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)
}

// RenderSummary writes the system status overview
func RenderSummary(writer io.Writer, summary Summary) error {
	table := newTable(writer)
	fmt.Fprintf(table, "System status:\t%s\n", summary.Status)
	fmt.Fprintf(table, "Version:\t%s\n", summary.Version)
	fmt.Fprintf(table, "Connected workstations:\t%d\n", summary.ConnectedWorkstations)
	fmt.Fprintf(table, "Total emulators:\t%d\n", summary.TotalEmulators)
	fmt.Fprintf(table, "Active operations:\t%d\n", summary.ActiveOperations)
	fmt.Fprintf(table, "Uptime:\t%s\n", summary.Uptime)
	fmt.Fprintf(table, "Last update:\t%s\n", summary.LastUpdate)
	return table.Flush()
}

// RenderEmulators writes the emulator list
func RenderEmulators(writer io.Writer, rows []EmulatorRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(writer, "No emulators found")
		return err
	}
	table := newTable(writer)
	fmt.Fprintln(table, "ID\tNAME\tWORKSTATION\tSTATUS\tRESOLUTION\tACTION")
	for _, row := range rows {
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\t%s\n", row.ID, row.Name, row.Workstation, row.Status, row.Resolution, row.Action)
	}
	return table.Flush()
}

// RenderWorkstations writes the workstation list
func RenderWorkstations(writer io.Writer, rows []WorkstationRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(writer, "No workstations found")
		return err
	}
	table := newTable(writer)
	fmt.Fprintln(table, "ID\tNAME\tADDRESS\tUSER\tSTATUS\tEMULATORS\tDISK")
	for _, row := range rows {
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n", row.ID, row.Name, row.Address, row.Username, row.Status, row.Emulators, row.DiskUsage)
	}
	return table.Flush()
}

// RenderOperations writes the operation log
func RenderOperations(writer io.Writer, rows []OperationRow) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(writer, "No operations recorded yet")
		return err
	}
	table := newTable(writer)
	fmt.Fprintln(table, "ID\tOPERATION\tRESOURCE\tSTATUS\tPROGRESS\tTIME\tERROR")
	for _, row := range rows {
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%.0f%%\t%s\t%s\n", row.ID, row.Type, row.Target, row.Status, row.Progress, row.Time, row.Error)
	}
	return table.Flush()
}
