package render

import "strings"

// Text draws g with Unicode half blocks, two module rows per line, for
// printing to a terminal. Dark modules are drawn as filled cells unless
// inverse is set, which suits terminals with light-on-dark themes.
func Text(g Grid, inverse bool) string {
	if g == nil || g.Rows() <= 0 || g.Cols() <= 0 {
		return ""
	}

	rows, cols := g.Rows(), g.Cols()
	filled := func(row, col int) bool {
		if row >= rows {
			return inverse
		}
		return g.Dark(row, col) != inverse
	}

	var b strings.Builder
	for row := 0; row < rows; row += 2 {
		for col := 0; col < cols; col++ {
			top := filled(row, col)
			bottom := filled(row+1, col)
			switch {
			case top && bottom:
				b.WriteRune('█')
			case top:
				b.WriteRune('▀')
			case bottom:
				b.WriteRune('▄')
			default:
				b.WriteRune(' ')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
