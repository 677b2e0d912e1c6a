package document

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ══════════════════════════════════════════════════════════════════════════════
// PAGE LAYOUT
// ══════════════════════════════════════════════════════════════════════════════

// Tolerances are fractions of the glyph's font size.
const (
	runGapRatio  = 0.1
	lineTolRatio = 0.4
	minTolerance = 0.5
)

// textRun is a stretch of glyphs drawn back to back on one baseline.
type textRun struct {
	x, y, end, size float64
	text            strings.Builder
}

// layoutText rebuilds reading order from positioned glyphs. Glyphs sharing a
// baseline form a line, lines run top to bottom, and runs separated by a
// horizontal gap (table cells, positioned words) are joined by a space.
func layoutText(glyphs []pdf.Text) string {
	runs := splitRuns(glyphs)
	if len(runs) == 0 {
		return ""
	}

	sort.SliceStable(runs, func(i, j int) bool { return runs[i].y > runs[j].y })

	var lines [][]*textRun
	for _, r := range runs {
		if n := len(lines); n > 0 {
			head := lines[n-1][0]
			if math.Abs(head.y-r.y) <= tolerance(lineTolRatio, head.size) {
				lines[n-1] = append(lines[n-1], r)
				continue
			}
		}
		lines = append(lines, []*textRun{r})
	}

	var sb strings.Builder
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].x < line[j].x })

		parts := make([]string, 0, len(line))
		for _, r := range line {
			if s := strings.TrimSpace(r.text.String()); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			continue
		}
		sb.WriteString(strings.Join(parts, " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// splitRuns walks glyphs in drawing order. A glyph continues the current run
// when it sits on the same baseline and starts where the previous one ended.
func splitRuns(glyphs []pdf.Text) []*textRun {
	var (
		runs []*textRun
		cur  *textRun
	)
	for _, g := range glyphs {
		if g.S == "" || g.S == "\n" || g.S == "\r" {
			cur = nil
			continue
		}

		if cur != nil {
			tol := tolerance(runGapRatio, cur.size)
			gap := g.X - cur.end
			if math.Abs(g.Y-cur.y) <= tol && gap >= -tol && gap <= tol {
				cur.text.WriteString(g.S)
				cur.end = math.Max(cur.end, g.X+g.W)
				continue
			}
		}

		cur = &textRun{x: g.X, y: g.Y, end: g.X + g.W, size: g.FontSize}
		cur.text.WriteString(g.S)
		runs = append(runs, cur)
	}
	return runs
}

func tolerance(ratio, size float64) float64 {
	return math.Max(minTolerance, ratio*size)
}
