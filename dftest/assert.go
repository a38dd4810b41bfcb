// Package dftest has the dataframe equality assertions used by table
// function test suites. Comparison is tolerant for floating point values and
// row order insensitive unless asked otherwise.
package dftest

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/tabsql/tabsql/engine"
	"github.com/tabsql/tabsql/schema"
)

// TestingT is the sliver of *testing.T the assertions need.
type TestingT interface {
	Errorf(format string, args ...interface{})
}

type config struct {
	rtol           float64
	atol           float64
	checkRowOrder  bool
	ignoreNullable bool
}

func defaultConfig() config {
	return config{
		rtol:           1e-5,
		atol:           1e-8,
		ignoreNullable: true,
	}
}

type Option func(*config)

// WithRTol sets the relative tolerance of float comparison.
func WithRTol(v float64) Option { return func(c *config) { c.rtol = v } }

// WithATol sets the absolute tolerance of float comparison.
func WithATol(v float64) Option { return func(c *config) { c.atol = v } }

// WithCheckRowOrder makes row order significant. By default both sides are
// canonically sorted before the pairwise comparison.
func WithCheckRowOrder(b bool) Option { return func(c *config) { c.checkRowOrder = b } }

// WithIgnoreNullable toggles whether schema nullability differences matter.
// They are ignored by default.
func WithIgnoreNullable(b bool) Option { return func(c *config) { c.ignoreNullable = b } }

func buildConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// floatEq is tolerance based, |a-b| <= atol + rtol*|b|, and NaN equals NaN.
func (self *config) floatEq(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}
	return math.Abs(a-b) <= self.atol+self.rtol*math.Abs(b)
}

func (self *config) cmpOptions() []cmp.Option {
	return []cmp.Option{
		cmp.Comparer(func(a, b float64) bool { return self.floatEq(a, b) }),
	}
}

func (self *config) rowsMatch(a, b schema.Row) bool {
	if len(a) != len(b) {
		return false
	}
	return cmp.Equal(a, b, self.cmpOptions()...)
}

// AssertSchemaEqual fails the test when the two schemas differ.
func AssertSchemaEqual(
	t TestingT,
	actual *schema.Schema,
	expected *schema.Schema,
	opts ...Option,
) bool {
	cfg := buildConfig(opts)
	if actual.Equal(expected, cfg.ignoreNullable) {
		return true
	}
	t.Errorf(
		"Schemas do not match.\n--- actual\n+++ expected\n%s",
		renderDiff(actual.String(), expected.String()),
	)
	return false
}

// AssertRowsEqual fails the test when the two row sets differ. The failure
// message lists every row pair, marking the mismatched ones, the way the
// percent match header reads,
//
//	Results do not match: ( 66.66667 % )
func AssertRowsEqual(
	t TestingT,
	actual []schema.Row,
	expected []schema.Row,
	opts ...Option,
) bool {
	cfg := buildConfig(opts)

	if len(actual) != len(expected) {
		t.Errorf(
			"Number of rows does not match: actual has %d, expected has %d\n%s",
			len(actual),
			len(expected),
			sideBySide(nil, actual, expected),
		)
		return false
	}

	a := actual
	e := expected
	if !cfg.checkRowOrder {
		a = sortedRows(actual)
		e = sortedRows(expected)
	}

	mismatch := []int{}
	for idx := range a {
		if !cfg.rowsMatch(a[idx], e[idx]) {
			mismatch = append(mismatch, idx)
		}
	}
	if len(mismatch) == 0 {
		return true
	}

	total := len(a)
	pct := float64(total-len(mismatch)) / float64(total) * 100
	t.Errorf(
		"Results do not match: ( %.5f %% )\n%s",
		pct,
		sideBySide(mismatch, a, e),
	)
	return false
}

// AssertDataFrameEqual checks schema then rows.
func AssertDataFrameEqual(
	t TestingT,
	actual *engine.DataFrame,
	expected *engine.DataFrame,
	opts ...Option,
) bool {
	if !AssertSchemaEqual(t, actual.Schema(), expected.Schema(), opts...) {
		return false
	}
	return AssertRowsEqual(t, actual.Collect(), expected.Collect(), opts...)
}

func sortedRows(rows []schema.Row) []schema.Row {
	out := make([]schema.Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return schema.SortKey(out[i]) < schema.SortKey(out[j])
	})
	return out
}

// sideBySide renders the two row lists pairwise, mismatched pairs get a !
// marker and a character diff of their renderings.
func sideBySide(
	mismatch []int,
	actual []schema.Row,
	expected []schema.Row,
) string {
	bad := make(map[int]bool)
	for _, idx := range mismatch {
		bad[idx] = true
	}

	n := len(actual)
	if len(expected) > n {
		n = len(expected)
	}

	buf := strings.Builder{}
	buf.WriteString("*** actual ***\n")
	for idx, row := range actual {
		buf.WriteString(marker(bad[idx]))
		buf.WriteString(renderRow(row))
		buf.WriteString("\n")
	}
	buf.WriteString("*** expected ***\n")
	for idx, row := range expected {
		buf.WriteString(marker(bad[idx]))
		buf.WriteString(renderRow(row))
		buf.WriteString("\n")
	}

	for idx := 0; idx < n; idx++ {
		if !bad[idx] || idx >= len(actual) || idx >= len(expected) {
			continue
		}
		buf.WriteString(fmt.Sprintf("*** diff #%d ***\n", idx))
		buf.WriteString(renderDiff(renderRow(actual[idx]), renderRow(expected[idx])))
		buf.WriteString("\n")
	}
	return buf.String()
}

func marker(bad bool) string {
	if bad {
		return "! "
	}
	return "  "
}

func renderRow(row schema.Row) string {
	parts := make([]string, 0, len(row))
	for _, v := range row {
		parts = append(parts, schema.FormatValue(v))
	}
	return "Row(" + strings.Join(parts, ", ") + ")"
}
