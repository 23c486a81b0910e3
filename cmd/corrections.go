package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/mathcheck/internal/model"
)

var correctionsOut string

var correctionsCmd = &cobra.Command{
	Use:   "corrections",
	Short: "Work with the correction feedback log",
}

var correctionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the correction log to an XLSX workbook for the training workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		corrections, err := env.Corrections.List(cmd.Context())
		if err != nil {
			return err
		}

		if err := writeCorrectionsXLSX(corrections, correctionsOut); err != nil {
			return err
		}

		zap.L().Info("exported corrections",
			zap.Int("count", len(corrections)),
			zap.String("file", correctionsOut))
		fmt.Printf("wrote %d corrections to %s\n", len(corrections), correctionsOut)
		return nil
	},
}

func writeCorrectionsXLSX(corrections []model.Correction, out string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Corrections")
	if err != nil {
		return eris.Wrap(err, "corrections export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Timestamp", "Equation ID", "Original", "Corrected"} {
		header.AddCell().Value = h
	}

	for _, c := range corrections {
		row := sheet.AddRow()
		row.AddCell().Value = c.Timestamp.UTC().Format(time.RFC3339)
		row.AddCell().Value = c.EquationID
		row.AddCell().Value = c.Original
		row.AddCell().Value = c.Corrected
	}

	if err := file.Save(out); err != nil {
		return eris.Wrap(err, "corrections export: save workbook")
	}
	return nil
}

func init() {
	correctionsExportCmd.Flags().StringVar(&correctionsOut, "out", "corrections.xlsx", "output file")
	correctionsCmd.AddCommand(correctionsExportCmd)
	rootCmd.AddCommand(correctionsCmd)
}
