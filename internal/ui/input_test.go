package ui

import (
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestInputModel_Submit(t *testing.T) {
	var m tea.Model = newInputModel("> ")

	m, _ = m.Update(runes("hello"))
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	got := m.(inputModel)
	assert.Equal(t, "hello", got.value)
	assert.NoError(t, got.err)
	assert.NotNil(t, cmd)
	assert.Empty(t, got.View())
}

func TestInputModel_CtrlC(t *testing.T) {
	var m tea.Model = newInputModel("> ")

	m, _ = m.Update(runes("partial"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.ErrorIs(t, m.(inputModel).err, ErrInterrupted)
}

func TestInputModel_CtrlD(t *testing.T) {
	var m tea.Model = newInputModel("> ")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.ErrorIs(t, m.(inputModel).err, io.EOF)

	// ctrl+d on a non-empty line is not end of input
	m = newInputModel("> ")
	m, _ = m.Update(runes("x"))
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.NoError(t, m.(inputModel).err)
	assert.False(t, m.(inputModel).done)
}
