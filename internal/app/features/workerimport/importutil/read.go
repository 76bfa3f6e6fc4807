// internal/app/features/workerimport/importutil/read.go
package importutil

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ErrTooLarge       = fmt.Errorf("file is larger than %d MB", MaxUploadSize>>20)
	ErrTooManyRows    = fmt.Errorf("file has more than %d data rows", MaxRows)
	ErrEmpty          = errors.New("worksheet is empty")
	ErrNoSheet        = errors.New("no worksheet found")
	ErrMultipleSheets = errors.New("multiple worksheets found; please upload a file with a single sheet")
	ErrUnsupported    = errors.New("unsupported file type; use .xlsx, .xls or .csv")
	ErrUnreadable     = errors.New("the workbook is damaged and cannot be read")
)

// ReadRows reads every row of a spreadsheet, header included. The format
// is chosen by the file extension: .xlsx/.xlsm read the first sheet,
// .xls must hold a single sheet and .csv is read as UTF-8 with an
// optional BOM.
func ReadRows(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(data)
	case ".xls":
		rows, err = readXLS(data)
	case ".csv", ".txt":
		rows, err = readCSV(data)
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, err
	}

	n := trimCells(rows)
	if n == 0 {
		return nil, ErrEmpty
	}
	if n-1 > MaxRows {
		return nil, ErrTooManyRows
	}
	return rows, nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}
	return file.GetRows(sheet)
}

func readXLS(data []byte) ([][]string, error) {
	return recovered(func() ([][]string, error) {
		wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
		if err != nil {
			return nil, err
		}
		switch n := wb.NumSheets(); {
		case n == 0:
			return nil, ErrNoSheet
		case n > 1:
			return nil, ErrMultipleSheets
		}
		sheet := wb.GetSheet(0)
		if sheet == nil {
			return nil, ErrNoSheet
		}
		// Read the whole sheet; ReadRows applies the row limit.
		return wb.ReadAllCells(int(sheet.MaxRow) + 1), nil
	})
}

// recovered runs read, turning a panic of the workbook parser into
// ErrUnreadable.
func recovered(read func() ([][]string, error)) (rows [][]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, err = nil, fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()
	return read()
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if looksSemicolon(data) {
		reader.Comma = ';'
	}

	var rows [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
		if len(rows) > MaxRows+1 {
			return nil, ErrTooManyRows
		}
	}
	return rows, nil
}

// looksSemicolon reports whether the first line is separated by ';', as
// spreadsheets exported with a French locale are.
func looksSemicolon(data []byte) bool {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	return bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(","))
}

// trimCells trims every cell in place and returns the number of rows
// that are not entirely blank. Blank rows are kept so that line numbers
// match the spreadsheet.
func trimCells(rows [][]string) int {
	n := 0
	for _, row := range rows {
		blank := true
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
			if row[i] != "" {
				blank = false
			}
		}
		if !blank {
			n++
		}
	}
	return n
}
