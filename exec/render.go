package exec

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/tabsql/tabsql/plan"
	"github.com/tabsql/tabsql/schema"
)

// Terminal rendering of a result, driven by the plan's format phase. The
// format system is structurized with 3 layers, based on the customization
// priority, descendingly,
//
// 1) column[index], if applicable takes highest priority
// 2) type, if applicable kicks in
// 3) base, 1 and 2 option missed, then the base format kicks in

func mapcolor(
	c int,
) color.Attribute {
	switch c {
	default:
		return color.Reset
	case plan.ColorBlack:
		return color.FgBlack
	case plan.ColorRed:
		return color.FgRed
	case plan.ColorGreen:
		return color.FgGreen
	case plan.ColorYellow:
		return color.FgYellow
	case plan.ColorBlue:
		return color.FgBlue
	case plan.ColorMagenta:
		return color.FgMagenta
	case plan.ColorCyan:
		return color.FgCyan
	case plan.ColorWhite:
		return color.FgWhite
	}
}

func stylish(
	fins *plan.FormatInstruction,
	text string,
) string {
	cobj := color.New(mapcolor(fins.Color))
	if fins.Bold {
		cobj.Add(color.Bold)
	}
	if fins.Underline {
		cobj.Add(color.Underline)
	}
	if fins.Italic {
		cobj.Add(color.Italic)
	}
	return cobj.Sprintf("%s", text)
}

type Renderer struct {
	format *plan.Format
	out    io.Writer
}

func NewRenderer(format *plan.Format, out io.Writer) *Renderer {
	return &Renderer{
		format: format,
		out:    out,
	}
}

func (self *Renderer) paddingSize() int {
	return self.format.Padding.IntOption
}

func (self *Renderer) pad(text string) string {
	return fmt.Sprintf(fmt.Sprintf("%%-%ds", self.paddingSize()), text)
}

// the cell rendering, strings stay unquoted here unlike the row dump used
// by failure messages
func cellText(v schema.Value) string {
	if s, ok := v.(string); ok {
		return s
	}
	return schema.FormatValue(v)
}

func (self *Renderer) cellStyle(
	idx int,
	v schema.Value,
) *plan.FormatInstruction {
	if ff := self.format.GetColumn(idx); ff != nil {
		return ff
	}
	switch v.(type) {
	case int64, float64:
		if self.format.Number != nil {
			return self.format.Number
		}
	case string:
		if self.format.String != nil {
			return self.format.String
		}
	}
	return self.format.Rest
}

func (self *Renderer) titleBar(sch *schema.Schema) string {
	sep := self.format.GetBorderString()
	buf := strings.Builder{}
	for _, f := range sch.Fields {
		buf.WriteString(sep)
		buf.WriteString(self.pad(f.Name))
	}
	return buf.String()
}

func (self *Renderer) Render(res *Result) error {
	sep := self.format.GetBorderString()
	title := self.format.GetTitle()

	showTitle := !title.Ignore
	var del string

	if showTitle {
		bar := self.titleBar(res.Schema)
		del = strings.Repeat("-", len(bar)+1)

		if _, err := fmt.Fprintln(self.out, del); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(self.out, "%s%s\n", stylish(title, bar), sep); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(self.out, del); err != nil {
			return err
		}
	}

	for _, row := range res.Rows {
		buf := strings.Builder{}
		for idx, v := range row {
			style := self.cellStyle(idx, v)
			if style != nil && style.Ignore {
				continue
			}
			cell := self.pad(cellText(v))
			if style != nil {
				cell = stylish(style, cell)
			}
			buf.WriteString(sep)
			buf.WriteString(cell)
		}
		buf.WriteString(sep)
		if _, err := fmt.Fprintln(self.out, buf.String()); err != nil {
			return err
		}
	}

	if showTitle {
		if _, err := fmt.Fprintln(self.out, del); err != nil {
			return err
		}
	}
	return nil
}
