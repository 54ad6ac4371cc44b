package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"asaankisaan/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the loaded dataset as an Arrow IPC stream",
	Long: `Write every parsed record as an Arrow IPC stream, to --out or stdout.

Example:
  pricectl export --out prices.arrow`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, snap, err := loadSnapshot(cmd.Context())
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOut, err)
		}
		defer f.Close()
		w = f
	}

	if err := export.WriteArrow(w, snap.Records()); err != nil {
		return err
	}
	a.Logger.Info().
		Str("snapshot", snap.ID).
		Int("records", snap.Len()).
		Str("out", exportOut).
		Msg("export written")
	return nil
}
