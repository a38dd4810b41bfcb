package dftest

import (
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// renderDiff is a character level diff of the two renderings. Text only on
// the actual side comes out red with a - prefix, text only on the expected
// side green with a +, shared text plain.
func renderDiff(actual string, expected string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(actual, expected, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	buf := strings.Builder{}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			buf.WriteString(color.RedString("-%s", d.Text))
		case diffmatchpatch.DiffInsert:
			buf.WriteString(color.GreenString("+%s", d.Text))
		case diffmatchpatch.DiffEqual:
			buf.WriteString(d.Text)
		}
	}
	return buf.String()
}
