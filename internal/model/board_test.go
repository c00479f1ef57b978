package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoardWinnerReportsFirstLineInOrder(t *testing.T) {
	var b Board
	// X fills row 0 and column 0 at once
	for _, cell := range []int{0, 1, 2, 3, 6} {
		b[cell] = SymbolX
	}
	sym, line := b.Winner()
	assert.Equal(t, SymbolX, sym)
	assert.Equal(t, []int{0, 1, 2}, line)
}

func TestBoardWinnerEmpty(t *testing.T) {
	var b Board
	sym, line := b.Winner()
	assert.Equal(t, SymbolEmpty, sym)
	assert.Nil(t, line)
	assert.False(t, b.IsFull())
}

func TestBoardStrings(t *testing.T) {
	var b Board
	b[4] = SymbolO
	assert.Equal(t, []string{"", "", "", "", "O", "", "", "", ""}, b.Strings())
}

func TestIsValidCell(t *testing.T) {
	assert.True(t, IsValidCell(0))
	assert.True(t, IsValidCell(8))
	assert.False(t, IsValidCell(9))
	assert.False(t, IsValidCell(-1))
}
