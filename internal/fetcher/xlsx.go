package fetcher

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Workbook is an opened Excel workbook.
type Workbook struct {
	name string
	file *xlsx.File
}

// OpenXLSX opens a workbook on disk.
func OpenXLSX(path string) (*Workbook, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}
	return &Workbook{name: path, file: f}, nil
}

// ParseXLSX opens a workbook held in memory, such as an S3 object.
func ParseXLSX(data []byte, name string) (*Workbook, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", name)
	}
	return &Workbook{name: name, file: f}, nil
}

// SheetNames lists sheets in workbook order.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.file.Sheets))
	for i, s := range w.file.Sheets {
		names[i] = s.Name
	}
	return names
}

// Sheet returns the trimmed cell text of the first sheet whose name contains
// hint, ignoring case, or of the first sheet when none does. Blank rows at
// the end of the sheet are dropped.
func (w *Workbook) Sheet(hint string) (string, [][]string, error) {
	if len(w.file.Sheets) == 0 {
		return "", nil, eris.Errorf("xlsx: %s has no sheets", w.name)
	}
	sheet := w.file.Sheets[0]
	if hint != "" {
		needle := strings.ToLower(hint)
		for _, s := range w.file.Sheets {
			if strings.Contains(strings.ToLower(s.Name), needle) {
				sheet = s
				break
			}
		}
	}

	rows := make([][]string, 0, len(sheet.Rows))
	last := -1
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		blank := true
		for j, c := range row.Cells {
			cells[j] = strings.TrimSpace(c.String())
			if cells[j] != "" {
				blank = false
			}
		}
		rows = append(rows, cells)
		if !blank {
			last = len(rows) - 1
		}
	}
	return sheet.Name, rows[:last+1], nil
}
