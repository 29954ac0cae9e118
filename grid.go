package sheetpipe

import "strconv"

// FromGrid turns the cell text of a sheet into a table. The first row is
// the header, fully empty rows are skipped and short rows padded. Blank
// headers over data become "Unnamed: N" and repeated headers get a ".N"
// suffix.
func FromGrid(name string, rows [][]string) (*Table, error) {
	return fromGrid(name, rows, InferStrings)
}

// FromCells is FromGrid for cells that already carry Go values, as read from
// typed workbook cells. Nil and empty strings are blank cells.
func FromCells(name string, rows [][]interface{}) (*Table, error) {
	cells := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells[i] = make([]interface{}, len(row))
		for j, v := range row {
			if v != "" {
				cells[i][j] = v
			}
		}
	}
	return fromGrid(name, cells, InferValues)
}

// fromGrid works over any cell type whose zero value is a blank cell.
func fromGrid[T comparable](name string, rows [][]T, infer func([]T) (Kind, []interface{})) (*Table, error) {
	if len(rows) == 0 {
		return NewTable(name)
	}

	data := make([][]T, 0, len(rows)-1)
	width := len(rows[0])
	for _, row := range rows[1:] {
		if allEmpty(row) {
			continue // Skip empty rows
		}
		data = append(data, row)
		if len(row) > width {
			width = len(row)
		}
	}

	header := rows[0]
	seen := make(map[string]int)
	columns := make([]*Column, 0, width)
	for j := 0; j < width; j++ {
		raw := make([]T, len(data))
		for i, row := range data {
			if j < len(row) {
				raw[i] = row[j]
			}
		}

		colName := ""
		if j < len(header) {
			colName = headerText(header[j])
		}
		if colName == "" {
			if allEmpty(raw) {
				continue
			}
			colName = "Unnamed: " + strconv.Itoa(j)
		}
		if n, dup := seen[colName]; dup {
			base := colName
			for dup {
				n++
				colName = base + "." + strconv.Itoa(n)
				_, dup = seen[colName]
			}
			seen[base] = n
		}
		seen[colName] = 0

		kind, values := infer(raw)
		columns = append(columns, &Column{Name: colName, Kind: kind, Values: values})
	}

	return NewTable(name, columns...)
}

func allEmpty[T comparable](cells []T) bool {
	var blank T
	for _, c := range cells {
		if c != blank {
			return false
		}
	}
	return true
}

func headerText[T comparable](v T) string {
	if s, ok := any(v).(string); ok {
		return s
	}
	return FormatValue(v)
}
