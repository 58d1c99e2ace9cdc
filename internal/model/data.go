package model

import "fmt"

// ColumnType is the inferred type of a tabular column
type ColumnType int

const (
	TypeInteger ColumnType = iota
	TypeFloat
	TypeString
)

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

// Column describes one column of a Table
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Row holds one value per column: int64, float64, string or nil
type Row []any

// Table is an ordered set of rows sharing a column schema.
// Both the generated dataset and every query result are Tables.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column or -1
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Record represents a single employee record of the dataset
type Record struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Age    int64  `json:"age"`
	City   string `json:"city"`
	Salary int64  `json:"salary"`
}

// RecordColumns is the dataset schema: id,name,age,city,salary
var RecordColumns = []Column{
	{Name: "id", Type: TypeInteger},
	{Name: "name", Type: TypeString},
	{Name: "age", Type: TypeInteger},
	{Name: "city", Type: TypeString},
	{Name: "salary", Type: TypeInteger},
}

// RecordsTable converts records into a Table with the RecordColumns schema
func RecordsTable(records []Record) *Table {
	cols := make([]Column, len(RecordColumns))
	copy(cols, RecordColumns)

	t := &Table{Columns: cols, Rows: make([]Row, 0, len(records))}
	for _, r := range records {
		t.Rows = append(t.Rows, Row{r.ID, r.Name, r.Age, r.City, r.Salary})
	}
	return t
}
