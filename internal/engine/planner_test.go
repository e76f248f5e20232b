package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

func TestPlanner_CreateFolderInverse(t *testing.T) {
	p := NewPlanner(time.Hour, zap.NewNop())

	plan := p.Plan(domain.Action{
		ID: "a1", Module: "drive", Operation: "create_folder",
		Parameters: map[string]interface{}{"name": "Q1 Reports"},
	}, domain.UserContext{UserID: "u1"})

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "delete_folder", plan.Steps[0].Operation)
	assert.Equal(t, "folder_id", plan.Steps[0].FromResult["folder_id"])
	assert.Contains(t, plan.Conditions, "drive: folder must still be empty")
	assert.Equal(t, time.Hour, plan.Timeout)
}

func TestPlanner_MoveFilePullsPreviousParentFromResult(t *testing.T) {
	p := NewPlanner(time.Hour, zap.NewNop())

	plan := p.Plan(domain.Action{
		ID: "a1", Module: "drive", Operation: "move_file",
		Parameters: map[string]interface{}{"file_id": "f-1", "parent_id": "dst"},
	}, domain.UserContext{})

	require.Len(t, plan.Steps, 1)
	step := plan.Steps[0]
	assert.Equal(t, "move_file", step.Operation)
	assert.Equal(t, "f-1", step.Parameters["file_id"])
	// Прежний parent_id знает только модуль: до Enrich его в параметрах нет
	assert.NotContains(t, step.Parameters, "parent_id")
	assert.Equal(t, "previous_parent_id", step.FromResult["parent_id"])
}

func TestPlanner_RescheduleEventSwapsStarts(t *testing.T) {
	p := NewPlanner(time.Hour, zap.NewNop())

	plan := p.Plan(domain.Action{
		ID: "a1", Module: "calendar", Operation: "reschedule_event",
		Parameters: map[string]interface{}{"event_id": "e-1", "start": "2026-09-01T10:00:00Z"},
	}, domain.UserContext{})

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "reschedule_event", plan.Steps[0].Operation)
	assert.Equal(t, "previous_start", plan.Steps[0].FromResult["start"])
	assert.Equal(t, "start", plan.Steps[0].FromResult["current_start"])
}

func TestPlanner_NoKnownInverseMeansEmptyPlan(t *testing.T) {
	p := NewPlanner(time.Hour, zap.NewNop())

	plan := p.Plan(domain.Action{
		ID: "a1", Module: "chat", Operation: "send_message",
		Parameters: map[string]interface{}{"channel": "general", "text": "hi"},
	}, domain.UserContext{})

	assert.Equal(t, "a1", plan.ActionID)
	assert.Empty(t, plan.Steps, "send_message is irreversible: empty plan, not an error")
}
