package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/phaseplan/internal/constants"
)

func TestWorkflow_BeginAndDone(t *testing.T) {
	w := NewWorkflow()
	assert.Equal(t, "idle", w.String())

	require.NoError(t, w.Begin(constants.StateSplitting))
	assert.Equal(t, constants.StateSplitting, w.State())

	err := w.Begin(constants.StateConfiguringRecurrence)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	w.Done()
	assert.Equal(t, constants.StateIdle, w.State())
}

func TestWorkflow_ConfirmationParksAndResumes(t *testing.T) {
	w := NewWorkflow()
	require.NoError(t, w.Begin(constants.StateConfiguringRecurrence))
	require.NoError(t, w.AwaitConfirmation())
	assert.Equal(t, "confirmingOverwrite", w.String())

	w.Done()
	assert.Equal(t, constants.StateConfirmingOverwrite, w.State(), "Done keeps a parked confirmation")

	assert.ErrorIs(t, w.Begin(constants.StateSplitting), ErrInvalidTransition)

	require.NoError(t, w.Begin(constants.StateConfiguringRecurrence))
	assert.Equal(t, constants.StateConfiguringRecurrence, w.State())
}

func TestWorkflow_Cancel(t *testing.T) {
	w := NewWorkflow()
	require.NoError(t, w.Begin(constants.StateSplitting))
	require.NoError(t, w.AwaitConfirmation())
	w.Cancel()
	assert.Equal(t, constants.StateIdle, w.State())
	require.NoError(t, w.Begin(constants.StateConfiguringRecurrence))
}

func TestWorkflow_EditingLoad(t *testing.T) {
	w := NewWorkflow()
	require.NoError(t, w.BeginEditLoad(LoadForwardAndBack))
	assert.Equal(t, "editingLoad{both}", w.String())
	assert.Equal(t, LoadForwardAndBack, w.LoadMode())

	assert.ErrorIs(t, w.AwaitConfirmation(), ErrInvalidTransition)
	w.Done()
	assert.Equal(t, LoadForward, w.LoadMode())
}

func TestWorkflow_RejectsNonWorkState(t *testing.T) {
	w := NewWorkflow()
	assert.ErrorIs(t, w.Begin(constants.StateConfirmingOverwrite), ErrInvalidTransition)
	assert.ErrorIs(t, w.Begin(constants.StateIdle), ErrInvalidTransition)
}

func TestParseLoadMode(t *testing.T) {
	m, err := ParseLoadMode("both")
	require.NoError(t, err)
	assert.Equal(t, LoadForwardAndBack, m)

	m, err = ParseLoadMode("forward")
	require.NoError(t, err)
	assert.Equal(t, LoadForward, m)

	_, err = ParseLoadMode("sideways")
	assert.Error(t, err)
}
