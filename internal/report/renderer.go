// Package report renders query results as aligned plain-text tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"go-lake-pipeline/internal/model"
	"go-lake-pipeline/pkg/utils"
)

// BannerWidth is the width of the rule printed around report titles.
const BannerWidth = 70

var cellReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

// Renderer writes reports and status lines to an output stream.
type Renderer struct {
	out     io.Writer
	success *color.Color
	failure *color.Color
	title   *color.Color
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithoutColor disables ANSI colors regardless of the terminal.
func WithoutColor() Option {
	return func(r *Renderer) {
		r.success.DisableColor()
		r.failure.DisableColor()
		r.title.DisableColor()
	}
}

// NewRenderer creates a Renderer writing to out.
func NewRenderer(out io.Writer, opts ...Option) *Renderer {
	r := &Renderer{
		out:     out,
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed, color.Bold),
		title:   color.New(color.Bold),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render writes a titled report: banner, title, banner, the table and a blank line.
func (r *Renderer) Render(title string, t *model.Table) error {
	banner := strings.Repeat("=", BannerWidth)
	if _, err := fmt.Fprintln(r.out, banner); err != nil {
		return err
	}
	if _, err := r.title.Fprintln(r.out, title); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(r.out, banner); err != nil {
		return err
	}
	if err := r.Table(t); err != nil {
		return err
	}
	_, err := fmt.Fprintln(r.out)
	return err
}

// Done writes the closing banner printed once every report has rendered.
func (r *Renderer) Done() error {
	banner := strings.Repeat("=", BannerWidth)
	if _, err := fmt.Fprintln(r.out, banner); err != nil {
		return err
	}
	if _, err := r.success.Fprintln(r.out, "✓ All queries completed!"); err != nil {
		return err
	}
	_, err := fmt.Fprintln(r.out, banner)
	return err
}

// Table writes the header and rows with every column right-aligned to its widest cell.
func (r *Renderer) Table(t *model.Table) error {
	tw := tabwriter.NewWriter(r.out, 0, 0, 0, ' ', tabwriter.AlignRight)

	// Separators are part of the cell so the first column gets no left padding.
	writeLine := func(cells []string) {
		for i, c := range cells {
			if i > 0 {
				c = "  " + c
			}
			fmt.Fprint(tw, c, "\t")
		}
		fmt.Fprintln(tw)
	}

	writeLine(t.ColumnNames())
	cells := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = FormatValue(row[i])
			}
		}
		writeLine(cells)
	}
	return tw.Flush()
}

// Status prints a success line prefixed with a check mark.
func (r *Renderer) Status(format string, args ...any) {
	r.success.Fprintf(r.out, "✓ "+format+"\n", args...)
}

// Progress prints an in-flight step.
func (r *Renderer) Progress(format string, args ...any) {
	fmt.Fprintf(r.out, "📥 "+format+"\n", args...)
}

// Failure prints an error line: "❌ <label>: <err>".
func (r *Renderer) Failure(label string, err error) {
	r.failure.Fprintf(r.out, "❌ %s: %v\n", label, err)
}

// FormatValue renders a single cell.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return utils.FormatFloat(val)
	case string:
		return cellReplacer.Replace(val)
	default:
		return cellReplacer.Replace(fmt.Sprint(val))
	}
}
