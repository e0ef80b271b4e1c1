package pipeline

import (
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet that receives the export.
const SheetName = "Products"

// XLSXWriter streams records into a single worksheet. The workbook is only
// written to disk on Close.
type XLSXWriter struct {
	filename string
	file     *excelize.File
	stream   *excelize.StreamWriter
	row      int
	closed   bool
	mu       sync.Mutex
}

// NewXLSXWriter creates a workbook and writes the labelled header row.
func NewXLSXWriter(filename string) (*XLSXWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	stream, err := f.NewStreamWriter(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create stream writer: %w", err)
	}

	xw := &XLSXWriter{
		filename: filename,
		file:     f,
		stream:   stream,
	}

	labels := Labels()
	header := make([]interface{}, len(labels))
	for i, label := range labels {
		header[i] = label
	}
	if err := xw.writeRow(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("write xlsx header: %w", err)
	}
	return xw, nil
}

// Write appends one row per record.
func (xw *XLSXWriter) Write(records []*models.Record) error {
	xw.mu.Lock()
	defer xw.mu.Unlock()

	for _, record := range records {
		values := Values(record)
		for i, v := range values {
			if v == nil {
				values[i] = ""
			}
		}
		if err := xw.writeRow(values); err != nil {
			return fmt.Errorf("write xlsx record: %w", err)
		}
	}
	return nil
}

// Close flushes the stream and saves the workbook.
func (xw *XLSXWriter) Close() error {
	xw.mu.Lock()
	defer xw.mu.Unlock()

	if xw.closed {
		return nil
	}
	xw.closed = true
	defer xw.file.Close()

	if err := xw.stream.Flush(); err != nil {
		return fmt.Errorf("flush xlsx stream: %w", err)
	}
	if err := xw.file.SaveAs(xw.filename); err != nil {
		return fmt.Errorf("save xlsx file: %w", err)
	}
	return nil
}

// Validate ensures the saved workbook exists. Call it after Close.
func (xw *XLSXWriter) Validate() error {
	return validateFile(xw.filename, "xlsx")
}

func (xw *XLSXWriter) writeRow(values []interface{}) error {
	xw.row++
	cell, err := excelize.CoordinatesToCellName(1, xw.row)
	if err != nil {
		return err
	}
	return xw.stream.SetRow(cell, values)
}
