package report

import (
	"bytes"
	"io"

	"github.com/gocarina/gocsv"
	"github.com/nao1215/linkscan/internal/model"
)

// deadLinkRow is one CSV line: a dead link and the page containing it.
type deadLinkRow struct {
	Page     string `csv:"Page"`
	DeadLink string `csv:"Dead Link"`
	Status   string `csv:"Status"`
}

// CSVWriter outputs the dead links of a report as CSV, one row per
// (page, dead link) pair. A report without dead links yields only the header.
type CSVWriter struct {
	baseWriter
}

// NewCSVWriter creates a CSVWriter that outputs to the given writer.
func NewCSVWriter(output io.Writer) *CSVWriter {
	return &CSVWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the report's dead links in CSV format.
func (w *CSVWriter) Write(report *model.Report) (int, error) {
	flat := report.FlatDeadLinks()
	rows := make([]deadLinkRow, 0, len(flat))
	for _, dl := range flat {
		rows = append(rows, deadLinkRow{
			Page:     string(dl.Page),
			DeadLink: string(dl.URL),
			Status:   dl.NetError.String(),
		})
	}

	var buf bytes.Buffer
	if err := gocsv.Marshal(&rows, &buf); err != nil {
		return 0, err
	}
	return w.output.Write(buf.Bytes())
}
