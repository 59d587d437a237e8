package aggregation

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/domain/event"
	"freestylecal/internal/errs"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

const sheetName = "Eventos"

// ExportHeader names the exported columns, in order.
var ExportHeader = []string{
	"name", "date", "time", "city", "country", "venue", "organizer", "official_link", "description",
}

type ExportTarget struct {
	Path   string
	Format Format
}

func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// FormatFromPath guesses the format from the file extension, defaulting
// to CSV.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return FormatXLSX
	case ".pdf":
		return FormatPDF
	default:
		return FormatCSV
	}
}

func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Write renders events in the given format.
func Write(w io.Writer, format Format, events []event.Event) error {
	switch format {
	case FormatCSV, "":
		return WriteCSV(w, events)
	case FormatXLSX:
		return WriteXLSX(w, events)
	case FormatPDF:
		return WritePDF(w, events)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ExportFile writes events to target.Path, creating parent directories.
// The file is replaced atomically.
func ExportFile(ctx context.Context, target ExportTarget, events []event.Event) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	format := target.Format
	if format == "" {
		format = FormatFromPath(target.Path)
	}

	var buf bytes.Buffer
	if err := Write(&buf, format, events); err != nil {
		return errs.Wrapf(err, "render %s export", format)
	}

	dir := filepath.Dir(target.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errs.Wrapf(err, "create export directory %q", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target.Path)+".*")
	if err != nil {
		return errs.Wrap(err, "create temp export")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return errs.Wrap(err, "write temp export")
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(err, "close temp export")
	}
	if err := os.Rename(tmpName, target.Path); err != nil {
		return errs.Wrapf(err, "replace %q", target.Path)
	}

	logging.Info(
		ctx,
		"events exported",
		slog.String("path", target.Path),
		slog.String("format", string(format)),
		slog.Int("events", len(events)),
	)
	return nil
}

func exportRow(e event.Event) []string {
	return []string{
		e.Name,
		e.Date,
		e.Time,
		e.City,
		e.Country,
		e.Venue,
		e.Organizer,
		e.OfficialLink,
		e.Description,
	}
}

func WriteCSV(w io.Writer, events []event.Event) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(ExportHeader); err != nil {
		return err
	}
	for _, e := range events {
		if err := writer.Write(exportRow(e)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteXLSX(w io.Writer, events []event.Event) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	for i, header := range ExportHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}

	for r, e := range events {
		for c, value := range exportRow(e) {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	return f.Write(w)
}

var pdfColumns = []struct {
	header string
	width  float64
	value  func(event.Event) string
}{
	{"Evento", 62, func(e event.Event) string { return e.Name }},
	{"Fecha", 22, func(e event.Event) string { return e.Date }},
	{"Hora", 14, func(e event.Event) string { return e.Time }},
	{"Ciudad", 30, func(e event.Event) string { return e.City }},
	{"País", 26, func(e event.Event) string { return e.Country }},
	{"Venue", 50, func(e event.Event) string { return e.Venue }},
	{"Organizador", 44, func(e event.Event) string { return e.Organizer }},
}

// WritePDF renders a landscape listing without links or descriptions.
func WritePDF(w io.Writer, events []event.Event) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr("Eventos de Freestyle"))
	pdf.Ln(14)

	pdf.SetFont("Arial", "B", 9)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, 7, tr(col.header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, e := range events {
		for _, col := range pdfColumns {
			text := fitWidth(pdf, tr(col.value(e)), col.width-2)
			pdf.CellFormat(col.width, 6, text, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

func fitWidth(pdf *gofpdf.Fpdf, text string, width float64) string {
	if pdf.GetStringWidth(text) <= width {
		return text
	}
	// text is already single-byte encoded here.
	cut := len(text)
	for cut > 0 && pdf.GetStringWidth(text[:cut]+"...") > width {
		cut--
	}
	return text[:cut] + "..."
}
