package encoder

import "errors"

// Matrix is an immutable grid of QR modules, quiet zone included.
// A true module is dark.
type Matrix struct {
	modules [][]bool
	version int
	level   Level
	content string
}

func newMatrix(bitmap [][]bool, version int, level Level, content string) *Matrix {
	modules := make([][]bool, len(bitmap))
	for i, row := range bitmap {
		modules[i] = append([]bool(nil), row...)
	}
	return &Matrix{modules: modules, version: version, level: level, content: content}
}

// FromBitmap builds a Matrix from an arbitrary rectangular grid. The input is
// copied. Version and level are left unset.
func FromBitmap(bitmap [][]bool) (*Matrix, error) {
	if len(bitmap) == 0 || len(bitmap[0]) == 0 {
		return nil, errors.New("bitmap is empty")
	}
	width := len(bitmap[0])
	for _, row := range bitmap {
		if len(row) != width {
			return nil, errors.New("bitmap rows differ in length")
		}
	}
	return newMatrix(bitmap, 0, 0, ""), nil
}

// Rows returns the number of module rows.
func (m *Matrix) Rows() int { return len(m.modules) }

// Cols returns the number of module columns.
func (m *Matrix) Cols() int {
	if len(m.modules) == 0 {
		return 0
	}
	return len(m.modules[0])
}

// Dark reports whether the module at (row, col) is dark. Coordinates outside
// the grid are light.
func (m *Matrix) Dark(row, col int) bool {
	if row < 0 || row >= len(m.modules) || col < 0 || col >= len(m.modules[row]) {
		return false
	}
	return m.modules[row][col]
}

// Version is the QR version (1-40), or 0 for matrices built with FromBitmap.
func (m *Matrix) Version() int { return m.version }

// Level is the error-correction level the matrix was encoded at.
func (m *Matrix) Level() Level { return m.level }

// Content is the text the matrix encodes.
func (m *Matrix) Content() string { return m.content }

// Bitmap returns a copy of the module grid.
func (m *Matrix) Bitmap() [][]bool {
	out := make([][]bool, len(m.modules))
	for i, row := range m.modules {
		out[i] = append([]bool(nil), row...)
	}
	return out
}
