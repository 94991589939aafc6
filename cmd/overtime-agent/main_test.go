package main

import (
	"bytes"
	"strings"
	"testing"

	"Mansoor88-6/overtime-agent/internal/models"
	"Mansoor88-6/overtime-agent/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", "--shift", "06:00-15:00", "--in", "06:00", "--out", "17:30")
	require.NoError(t, err)
	assert.Equal(t, "valid: 11.50 h worked, 2.50 h overtime\n", out)

	out, err = run(t, "validate", "--shift", "13:00-20:00", "--in", "13:00", "--out", "19:00")
	assert.EqualError(t, err, "incomplete workday")
	assert.Equal(t, "invalid: incomplete workday\n", out)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "overtime-agent v"+appVersion+"\n", out)
}

func TestConfirmRequiresSelection(t *testing.T) {
	_, err := run(t, "confirm", "0801-1990-12345")
	assert.EqualError(t, err, "--rows or --all is required")
}

func TestAskYesNo(t *testing.T) {
	for input, want := range map[string]bool{"y\n": true, "Sí\n": true, "yes": true, "n\n": false, "\n": false, "": false} {
		var out bytes.Buffer
		assert.Equal(t, want, askYesNo(strings.NewReader(input), &out, "? "), "%q", input)
		assert.Equal(t, "? ", out.String())
	}
}

func TestPrintSnapshot(t *testing.T) {
	var out bytes.Buffer
	printSnapshot(&out, workflow.Snapshot{
		EmployeeID: "0801-1990-12345",
		Employee:   &models.Employee{ID: "0801-1990-12345", FullName: "Ana Lopez"},
		Message:    "2 record(s) pending confirmation",
		Records: []models.PendingRecord{
			{RowRef: 12, Date: "2026-09-28", TotalHours: 2.5},
			{RowRef: 13, Date: "2026-09-29", TotalHours: 8, Confirmed: true},
		},
	})

	text := out.String()
	assert.Contains(t, text, "0801-1990-12345  Ana Lopez\n")
	assert.Contains(t, text, "2 record(s) pending confirmation\n")
	assert.Contains(t, text, "10.50")
	assert.Contains(t, text, "Confirmed")
}

func TestRequireSelectable(t *testing.T) {
	assert.NoError(t, requireSelectable(workflow.Snapshot{State: workflow.StatePendingReady}))
	assert.ErrorIs(t, requireSelectable(workflow.Snapshot{State: workflow.StateViewOnlyReady}), workflow.ErrOutsideWindow)
	assert.ErrorIs(t, requireSelectable(workflow.Snapshot{State: workflow.StateEmpty}), workflow.ErrNotReady)
}

func TestHistoryHasClearCommand(t *testing.T) {
	cmd, _, err := newRootCommand().Find([]string{"history", "clear"})
	require.NoError(t, err)
	assert.Equal(t, "clear", cmd.Name())

	cmd, _, err = newRootCommand().Find([]string{"lookup"})
	require.NoError(t, err)
	assert.NotNil(t, cmd.Flags().Lookup("refresh"))
}
