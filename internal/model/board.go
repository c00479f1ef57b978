package model

// Symbol is the content of a single board cell
type Symbol string

const (
	SymbolEmpty Symbol = ""
	SymbolX     Symbol = "X"
	SymbolO     Symbol = "O"
)

// BoardCells is the number of cells on a 3x3 board
const BoardCells = 9

// Lines lists every winning line in the order it is checked:
// rows top to bottom, columns left to right, then the main and anti diagonal.
var Lines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// Board is a row-major 3x3 grid
type Board [BoardCells]Symbol

// IsValidCell returns true if the index addresses a cell on the board
func IsValidCell(cell int) bool {
	return cell >= 0 && cell < BoardCells
}

// IsEmpty returns true if the cell holds no symbol
func (b *Board) IsEmpty(cell int) bool {
	return IsValidCell(cell) && b[cell] == SymbolEmpty
}

// IsFull returns true if all cells are filled
func (b *Board) IsFull() bool {
	for _, s := range b {
		if s == SymbolEmpty {
			return false
		}
	}
	return true
}

// Winner returns the symbol and cells of the first complete line, if any
func (b *Board) Winner() (Symbol, []int) {
	for _, line := range Lines {
		first := b[line[0]]
		if first == SymbolEmpty {
			continue
		}
		if b[line[1]] == first && b[line[2]] == first {
			return first, []int{line[0], line[1], line[2]}
		}
	}
	return SymbolEmpty, nil
}

// Strings returns the board as a 9 element slice, empty cells as ""
func (b *Board) Strings() []string {
	out := make([]string, BoardCells)
	for i, s := range b {
		out[i] = string(s)
	}
	return out
}
