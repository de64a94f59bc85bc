package common

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// Report writes the boxed text layout used by the command line tools
type Report struct {
	w     io.Writer
	width int
}

func NewReport(w io.Writer, width int) *Report {
	return &Report{w: w, width: width}
}

func (r *Report) Header(title string) {
	fmt.Fprintln(r.w, "\n"+strings.Repeat("=", r.width))
	fmt.Fprintln(r.w, title)
	fmt.Fprintln(r.w, strings.Repeat("=", r.width))
}

func (r *Report) Footer(message string) {
	fmt.Fprintln(r.w, "\n"+strings.Repeat("=", r.width))
	fmt.Fprintln(r.w, message)
	fmt.Fprintln(r.w, strings.Repeat("=", r.width)+"\n")
}

// Section starts a sub-section with a box-drawing rule
func (r *Report) Section(title string) {
	fmt.Fprintln(r.w, "├"+strings.Repeat("─", r.width-1))
	fmt.Fprintln(r.w, "│ "+title)
}

// Item prints a list line; the last item of a section closes the box
func (r *Report) Item(isLast bool, format string, args ...any) {
	prefix := "│  "
	if isLast {
		prefix = "└  "
	}
	fmt.Fprintf(r.w, prefix+format+"\n", args...)
}

// Detail prints an indented line under an item
func (r *Report) Detail(isLast bool, format string, args ...any) {
	prefix := "│     "
	if isLast {
		prefix = "      "
	}
	fmt.Fprintf(r.w, prefix+format+"\n", args...)
}

// FormatAmount renders d at the currency's precision with a thousands separator
func FormatAmount(d decimal.Decimal, precision int32) string {
	s := d.Abs().StringFixed(precision)
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
