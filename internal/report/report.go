package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"example.com/sorgate/internal/sor"
)

// MarshalTrace renders the trace as indented JSON. Raw block content is
// only included when withContent is set.
func MarshalTrace(trace sor.Trace, withContent bool) ([]byte, error) {
	if !withContent {
		trace = WithoutContent(trace)
	}
	return json.MarshalIndent(trace, "", "  ")
}

func SaveTraceJSON(trace sor.Trace, out string, withContent bool) error {
	b, err := MarshalTrace(trace, withContent)
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

// WithoutContent returns a copy of trace with the raw block bytes dropped.
func WithoutContent(trace sor.Trace) sor.Trace {
	blocks := make([]sor.Block, len(trace.Blocks))
	for i, b := range trace.Blocks {
		b.Content = nil
		blocks[i] = b
	}
	trace.Blocks = blocks
	return trace
}

// WriteText prints a labelled dump of every block in on-disk order.
func WriteText(w io.Writer, trace sor.Trace, tr Translator) error {
	bw := bufio.NewWriter(w)
	for _, s := range Sections(trace) {
		writeSection(bw, s, tr)
	}
	return bw.Flush()
}

func writeSection(w *bufio.Writer, s Section, tr Translator) {
	b := s.Block
	title := tr.T("kind." + string(b.Kind()))
	if b.Kind() == sor.KindUnknown {
		title = b.ID
	}
	fmt.Fprintf(w, "== %s ==\n", tr.Format("report.blockHeader", title, b.Version, b.Length))

	width := 0
	for el := s.Fields.Front(); el != nil; el = el.Next() {
		if n := len([]rune(tr.T(el.Key))); n > width {
			width = n
		}
	}
	for el := s.Fields.Front(); el != nil; el = el.Next() {
		label := tr.T(el.Key)
		pad := strings.Repeat(" ", width-len([]rune(label)))
		fmt.Fprintf(w, "  %s:%s %s\n", label, pad, el.Value)
	}
	for _, t := range s.Tables {
		writeTable(w, t, tr)
	}
	if b.Kind() == sor.KindUnknown {
		fmt.Fprintf(w, "  %s\n", tr.Format("report.unknown", len(b.Content)))
	}
	if b.Err != nil {
		fmt.Fprintf(w, "  %s: %v\n", tr.T("report.error"), b.Err)
	}
	w.WriteString("\n")
}

func writeTable(w *bufio.Writer, t Table, tr Translator) {
	fmt.Fprintf(w, "  %s:\n", tr.T(t.Title))
	if len(t.Rows) == 0 {
		fmt.Fprintf(w, "    %s\n", tr.T("report.none"))
		return
	}
	headers := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		headers[i] = tr.T(c)
	}
	fmt.Fprintf(w, "    %s\n", strings.Join(headers, " | "))
	for _, row := range t.Rows {
		fmt.Fprintf(w, "    %s\n", strings.Join(row, " | "))
	}
}
