// Package report renders an analyze-mode quality report as text tables,
// markdown or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"txnetl/internal/quality"
	"txnetl/internal/storage"
)

// Output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Write renders rep to w in format.
func Write(w io.Writer, format string, rep quality.Report) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case FormatText, "":
		return render(w, sections(rep), false)
	case FormatMarkdown, "md":
		return render(w, sections(rep), true)
	}
	return fmt.Errorf("report: unknown format %q", format)
}

// WriteRejectReasons renders the per-code reject counts of a clean run as a
// text table, with each code's share of processed rows.
func WriteRejectReasons(w io.Writer, rows int64, codes []storage.CodeCount) error {
	s := section{
		title:  "Top rejection reasons",
		header: table.Row{"Code", "Rows", "% of processed"},
		right:  []int{2, 3},
	}
	for _, c := range codes {
		s.rows = append(s.rows, table.Row{c.Code, count(c.Count), pct(share(c.Count, rows))})
	}
	return render(w, []section{s}, false)
}

// section is one titled table of the report.
type section struct {
	title  string
	note   string
	header table.Row
	rows   []table.Row
	right  []int // 1-based column numbers aligned right
}

func render(w io.Writer, secs []section, markdown bool) error {
	var b strings.Builder
	for i, s := range secs {
		if i > 0 {
			b.WriteString("\n")
		}
		if markdown {
			fmt.Fprintf(&b, "## %s\n\n", s.title)
		} else {
			fmt.Fprintf(&b, "%s\n%s\n", s.title, strings.Repeat("=", len(s.title)))
		}
		if s.note != "" {
			fmt.Fprintf(&b, "%s\n", s.note)
			if markdown {
				b.WriteString("\n")
			}
		}
		if len(s.rows) == 0 {
			b.WriteString("(none)\n")
			continue
		}

		t := table.NewWriter()
		t.AppendHeader(s.header)
		t.AppendRows(s.rows)
		if len(s.right) > 0 {
			cfgs := make([]table.ColumnConfig, len(s.right))
			for j, n := range s.right {
				cfgs[j] = table.ColumnConfig{Number: n, Align: text.AlignRight}
			}
			t.SetColumnConfigs(cfgs)
		}
		if markdown {
			b.WriteString(t.RenderMarkdown())
		} else {
			t.SetStyle(table.StyleLight)
			b.WriteString(t.Render())
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func sections(rep quality.Report) []section {
	secs := []section{summary(rep), codes(rep)}
	secs = append(secs,
		columnCounts("Missing values", rep.Missing),
		columnCounts("Leading or trailing whitespace", rep.Whitespace),
		columnCounts("Embedded newlines", rep.Newline),
		patterns(rep),
		patternExamples(rep),
		numeric(rep),
		consistency(rep),
		dates(rep),
	)
	secs = append(secs, collisions(rep)...)
	secs = append(secs, topValues(rep)...)
	return secs
}

func summary(rep quality.Report) section {
	return section{
		title:  "Summary",
		header: table.Row{"Measure", "Rows", "%"},
		right:  []int{2, 3},
		rows: []table.Row{
			{"rows analyzed", count(rep.Rows), ""},
			{"clean", count(rep.Clean), pct(share(rep.Clean, rep.Rows))},
			{"rejected", count(rep.Rejected), pct(share(rep.Rejected, rep.Rows))},
			{"malformed lines (kept)", count(rep.UnparseableLines), ""},
		},
	}
}

func codes(rep quality.Report) section {
	s := section{title: "Reject codes", header: table.Row{"Code", "Rows", "%"}, right: []int{2, 3}}
	for _, c := range rep.Codes {
		s.rows = append(s.rows, table.Row{c.Value, count(c.Count), pct(share(c.Count, rep.Rows))})
	}
	return s
}

func columnCounts(title string, cc []quality.ColumnCount) section {
	s := section{title: title, header: table.Row{"Column", "Rows", "%"}, right: []int{2, 3}}
	for _, c := range cc {
		s.rows = append(s.rows, table.Row{c.Column, count(c.Count), pct(c.Percent)})
	}
	return s
}

func patterns(rep quality.Report) section {
	s := section{
		title:  "Pattern checks",
		header: table.Row{"Column", "Rule", "Invalid", "Encoding", "Structural"},
		right:  []int{3, 4, 5},
	}
	for _, p := range rep.Patterns {
		enc, str := "", ""
		if p.Encoding+p.Structural > 0 {
			enc, str = count(p.Encoding), count(p.Structural)
		}
		s.rows = append(s.rows, table.Row{p.Column, p.Rule, count(p.Invalid), enc, str})
	}
	return s
}

func patternExamples(rep quality.Report) section {
	s := section{title: "Example invalid values", header: table.Row{"Column", "Value"}}
	for _, p := range rep.Patterns {
		for _, ex := range p.Examples {
			s.rows = append(s.rows, table.Row{p.Column, display(ex)})
		}
	}
	return s
}

func numeric(rep quality.Report) section {
	s := section{
		title:  "Numeric checks",
		header: table.Row{"Column", "Missing", "Parse fail", "Negative", "Out of range", "Examples"},
		right:  []int{2, 3, 4, 5},
	}
	for _, n := range rep.Numeric {
		s.rows = append(s.rows, table.Row{
			n.Column, count(n.Missing), count(n.ParseFail), count(n.Negative), count(n.OutOfRange),
			examples(n.Examples),
		})
	}
	return s
}

func consistency(rep quality.Report) section {
	c := rep.Consistency
	return section{
		title:  "Total amount consistency",
		note:   fmt.Sprintf("tolerance %.2f", c.Tolerance),
		header: table.Row{"Checked", "Mismatched", "%"},
		right:  []int{1, 2, 3},
		rows:   []table.Row{{count(c.Checked), count(c.Mismatched), pct(c.Percent)}},
	}
}

func dates(rep quality.Report) section {
	d := rep.Dates
	if d.Column == "" {
		return section{title: "Dates"}
	}
	return section{
		title:  "Dates",
		header: table.Row{"Column", "Invalid", "Min", "Max", "Examples"},
		right:  []int{2},
		rows:   []table.Row{{d.Column, count(d.Invalid), d.Min, d.Max, examples(d.Examples)}},
	}
}

func collisions(rep quality.Report) []section {
	out := make([]section, 0, len(rep.Collisions))
	for _, cc := range rep.Collisions {
		s := section{
			title:  "Collisions: " + cc.Column,
			header: table.Row{"Key", "Spellings", "Distinct"},
			right:  []int{3},
		}
		if cc.Total > len(cc.Collisions) {
			s.note = fmt.Sprintf("%d colliding keys, showing %d", cc.Total, len(cc.Collisions))
		}
		for _, c := range cc.Collisions {
			sp := make([]string, len(c.Spellings))
			for i, v := range c.Spellings {
				sp[i] = fmt.Sprintf("%q", display(v))
			}
			list := strings.Join(sp, ", ")
			if c.Truncated {
				list += ", ..."
			}
			s.rows = append(s.rows, table.Row{display(c.Key), list, c.Distinct})
		}
		out = append(out, s)
	}
	return out
}

func topValues(rep quality.Report) []section {
	out := make([]section, 0, len(rep.TopValues))
	for _, cv := range rep.TopValues {
		s := section{
			title:  "Top values: " + cv.Column,
			header: table.Row{"Value", "Rows"},
			right:  []int{2},
		}
		for _, v := range cv.Values {
			s.rows = append(s.rows, table.Row{display(v.Value), count(v.Count)})
		}
		out = append(out, s)
	}
	return out
}

func count(n int64) string { return humanize.Comma(n) }

func pct(p float64) string { return fmt.Sprintf("%.2f", p) }

func share(n, of int64) float64 {
	if of == 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

// display makes a raw value printable on one table line.
func display(s string) string {
	s = strings.NewReplacer("\r", `\r`, "\n", `\n`, "\t", `\t`).Replace(s)
	return quality.Truncate(s, quality.DefaultDisplayMaxRunes)
}

func examples(vals []string) string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = fmt.Sprintf("%q", display(v))
	}
	return strings.Join(out, " ")
}
