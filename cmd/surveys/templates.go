package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"surveys/internal/app"

	"github.com/spf13/cobra"
)

var (
	exportOut      string
	exportIDs      []string
	importPath     string
	updateExisting bool
	blankSheetOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export survey templates to a spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			path, filename, err := a.SurveyTemplateController.ExportTemplates(cmd.Context(), exportIDs)
			if err != nil {
				return err
			}
			defer os.Remove(path)

			out := exportOut
			if out == "" {
				out = filename
			}
			if err := copyFile(path, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import survey templates from a spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := os.Open(importPath)
		if err != nil {
			return err
		}
		defer file.Close()

		return withApp(func(a *app.App) error {
			result, importErr := a.SurveyTemplateController.ImportTemplates(cmd.Context(), file, updateExisting)
			if result != nil {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				if err := encoder.Encode(result); err != nil {
					return err
				}
			}
			return importErr
		})
	},
}

var blankSheetCmd = &cobra.Command{
	Use:   "blank-sheet",
	Short: "Write an example import spreadsheet with instructions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			file, err := os.Create(blankSheetOut)
			if err != nil {
				return err
			}

			writeErr := a.SurveyTemplateController.WriteBlankTemplate(file)
			if err := errors.Join(writeErr, file.Close()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", blankSheetOut)
			return nil
		})
	},
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file; defaults to the suggested file name")
	exportCmd.Flags().StringSliceVar(&exportIDs, "id", nil, "template id to export; repeat for several, omit for all")

	importCmd.Flags().StringVarP(&importPath, "file", "f", "", "spreadsheet to import")
	importCmd.Flags().BoolVar(&updateExisting, "update-existing", false, "overwrite templates whose name already exists")
	_ = importCmd.MarkFlagRequired("file")

	blankSheetCmd.Flags().StringVarP(&blankSheetOut, "out", "o", "survey-template-import.xlsx", "output file")
}
