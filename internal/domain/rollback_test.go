package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepsReversed(t *testing.T) {
	plan := &RollbackPlan{
		ActionID: "act-1",
		Steps: []RollbackStep{
			{Module: "drive", Operation: "delete_folder", Order: 1},
			{Module: "drive", Operation: "move_file", Order: 2},
			{Module: "chat", Operation: "archive_channel", Order: 3},
		},
	}

	got := plan.StepsReversed()
	assert.Equal(t, "archive_channel", got[0].Operation)
	assert.Equal(t, "move_file", got[1].Operation)
	assert.Equal(t, "delete_folder", got[2].Operation)

	// Исходный порядок не трогаем
	assert.Equal(t, "delete_folder", plan.Steps[0].Operation)
}

func TestEnrich_PullsPreStateFromResult(t *testing.T) {
	plan := &RollbackPlan{
		ActionID: "act-1",
		Steps: []RollbackStep{{
			Module:     "drive",
			Operation:  "move_file",
			Parameters: map[string]interface{}{"file_id": "f-1"},
			FromResult: map[string]string{"parent_id": "previous_parent_id"},
			Order:      1,
		}},
	}

	plan.Enrich(map[string]interface{}{"previous_parent_id": "root", "noise": 42})

	assert.Equal(t, "root", plan.Steps[0].Parameters["parent_id"])
	assert.Equal(t, "f-1", plan.Steps[0].Parameters["file_id"])
}

func TestEnrich_MissingResultKeyLeavesStepUntouched(t *testing.T) {
	plan := &RollbackPlan{
		Steps: []RollbackStep{{
			Operation:  "delete_folder",
			FromResult: map[string]string{"folder_id": "folder_id"},
		}},
	}

	plan.Enrich(map[string]interface{}{"unrelated": "x"})
	assert.NotContains(t, plan.Steps[0].Parameters, "folder_id")
}

func TestWithParameters_DoesNotMutateOriginal(t *testing.T) {
	orig := Action{ID: "a", Parameters: map[string]interface{}{"name": "old", "keep": true}}
	merged := orig.WithParameters(map[string]interface{}{"name": "new"})

	assert.Equal(t, "new", merged.Parameters["name"])
	assert.Equal(t, true, merged.Parameters["keep"])
	assert.Equal(t, "old", orig.Parameters["name"])
}
