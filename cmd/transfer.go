package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var flagExportOut string

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Replace the stored record with a JSON export (\"-\" reads stdin)",
	Long: "Imports a tracker record in the web app's JSON format. Missing or malformed\n" +
		"fields fall back to their defaults one by one; numeric strings are accepted.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the stored record as JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&flagExportOut, "output", "o", "", "Write to file instead of stdout")
	rootCmd.AddCommand(importCmd, exportCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("reading import: %w", err)
	}

	ctx := cmd.Context()
	now, err := referenceNow()
	if err != nil {
		return err
	}
	tr, closeDB, err := openTracker(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	snap, err := tr.Import(ctx, now, data)
	if err != nil {
		return err
	}
	info("  Imported record from %s\n", args[0])
	if !flagQuiet {
		printDashboard(snap)
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	tr, closeDB, err := openTracker(ctx)
	if err != nil {
		return err
	}
	defer closeDB()

	data, err := tr.Export(ctx)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if flagExportOut == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(flagExportOut, data, 0o600); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	info("  Exported record to %s\n", flagExportOut)
	return nil
}
