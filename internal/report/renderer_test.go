package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-lake-pipeline/internal/model"
)

func summaryTable() *model.Table {
	return &model.Table{
		Columns: []model.Column{
			{Name: "city", Type: model.TypeString},
			{Name: "total_people", Type: model.TypeInteger},
			{Name: "avg_salary", Type: model.TypeFloat},
		},
		Rows: []model.Row{
			{"HCMC", int64(2), 59000.0},
			{"Danang", int64(1), 70000.0},
		},
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, WithoutColor())

	require.NoError(t, r.Render("STATISTICS BY CITY", summaryTable()))

	banner := strings.Repeat("=", 70)
	want := banner + "\n" +
		"STATISTICS BY CITY\n" +
		banner + "\n" +
		"  city  total_people  avg_salary\n" +
		"  HCMC             2     59000.0\n" +
		"Danang             1     70000.0\n" +
		"\n"
	assert.Equal(t, want, buf.String())
}

func TestTable_RightAligned(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, WithoutColor())

	require.NoError(t, r.Table(summaryTable()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	for _, line := range lines {
		assert.Len(t, line, len(lines[0]))
	}
}

func TestTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, WithoutColor())

	tbl := &model.Table{Columns: []model.Column{{Name: "id"}, {Name: "name"}}}
	require.NoError(t, r.Table(tbl))
	assert.Equal(t, "id  name\n", buf.String())
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{int64(-42), "-42"},
		{30.0, "30.0"},
		{26.5, "26.5"},
		{"Ha Noi", "Ha Noi"},
		{"a\tb\nc", "a b c"},
		{true, "true"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestStatusLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, WithoutColor())

	r.Status("Bucket '%s' created", "datalake")
	r.Progress("Downloading data from object store...")
	r.Failure("Object store error", errors.New("connection refused"))

	assert.Equal(t,
		"✓ Bucket 'datalake' created\n"+
			"📥 Downloading data from object store...\n"+
			"❌ Object store error: connection refused\n",
		buf.String())
}

func TestDone(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, WithoutColor())

	require.NoError(t, r.Done())

	banner := strings.Repeat("=", BannerWidth)
	assert.Equal(t, banner+"\n✓ All queries completed!\n"+banner+"\n", buf.String())
}
