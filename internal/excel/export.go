package excel

import (
	"errors"
	"fmt"
	"io"
	"os"
	"surveys/internal/models"

	"github.com/xuri/excelize/v2"
)

var ErrNoTemplates = errors.New("no templates to export")

var columnWidths = map[string]float64{
	"A": 24,
	"B": 12,
	"C": 36,
	"D": 10,
	"E": 24,
	"F": 40,
	"G": 32,
}

// WriteTemplates streams a workbook with one sheet per template.
func WriteTemplates(w io.Writer, templates []models.SurveyTemplate) error {
	f, err := buildTemplateWorkbook(templates)
	if err != nil {
		return err
	}
	defer f.Close()

	return f.Write(w)
}

// ExportTemplates writes the workbook to a new temp file in dir and returns
// its path. The caller removes the file once it has been sent.
func ExportTemplates(templates []models.SurveyTemplate, dir string) (string, error) {
	f, err := buildTemplateWorkbook(templates)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "survey-templates-*"+FileExtension)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}

	if err := f.Write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close export file: %w", err)
	}

	return tmp.Name(), nil
}

func buildTemplateWorkbook(templates []models.SurveyTemplate) (*excelize.File, error) {
	if len(templates) == 0 {
		return nil, ErrNoTemplates
	}

	f := excelize.NewFile()
	styles, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	used := map[string]bool{}
	for i := range templates {
		sheet := SheetName(templates[i].Name, used)
		if err := addSheet(f, sheet, i == 0); err != nil {
			_ = f.Close()
			return nil, err
		}

		if err := writeTemplateSheet(f, sheet, &templates[i], styles); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("sheet %q: %w", sheet, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// addSheet renames the default sheet for the first template and appends the
// rest.
func addSheet(f *excelize.File, sheet string, first bool) error {
	if first {
		return f.SetSheetName(f.GetSheetName(0), sheet)
	}
	_, err := f.NewSheet(sheet)
	return err
}

type sheetStyles struct {
	header int
	marker int
	label  int
}

func newStyles(f *excelize.File) (sheetStyles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#1F4E78"}},
	})
	if err != nil {
		return sheetStyles{}, err
	}

	marker, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return sheetStyles{}, err
	}

	label, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return sheetStyles{}, err
	}

	return sheetStyles{header: header, marker: marker, label: label}, nil
}

// sheetWriter appends rows to one sheet.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

func (w *sheetWriter) next(values ...any) (int, error) {
	w.row++
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return w.row, nil
	}
	return w.row, w.f.SetSheetRow(w.sheet, cell, &values)
}

func (w *sheetWriter) style(row, styleID int, lastColumn int) error {
	first, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(lastColumn, row)
	if err != nil {
		return err
	}
	return w.f.SetCellStyle(w.sheet, first, last, styleID)
}

func writeTemplateSheet(f *excelize.File, sheet string, template *models.SurveyTemplate, styles sheetStyles) error {
	w := &sheetWriter{f: f, sheet: sheet}

	for _, meta := range [][]any{
		{LabelTemplateName, template.Name},
		{LabelDescription, template.Description},
	} {
		row, err := w.next(meta...)
		if err != nil {
			return err
		}
		if err := w.style(row, styles.label, 1); err != nil {
			return err
		}
	}

	if _, err := w.next(); err != nil {
		return err
	}

	headers := make([]any, len(Headers))
	for i, h := range Headers {
		headers[i] = h
	}
	row, err := w.next(headers...)
	if err != nil {
		return err
	}
	if err := w.style(row, styles.header, len(Headers)); err != nil {
		return err
	}

	sections := []struct {
		section Section
		tree    *models.FieldTree
	}{
		{SectionBase, template.Base()},
		{SectionSpecific, template.Specific()},
	}

	for _, s := range sections {
		row, err := w.next(s.section.marker())
		if err != nil {
			return err
		}
		if err := w.style(row, styles.marker, len(Headers)); err != nil {
			return err
		}

		for _, field := range FlattenTree(s.tree) {
			if _, err := w.next(field.values()...); err != nil {
				return err
			}
		}
	}

	for col, width := range columnWidths {
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      4,
		TopLeftCell: "A5",
		ActivePane:  "bottomLeft",
	})
}
