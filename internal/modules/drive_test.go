package modules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/teamspace-action-engine/internal/connectors"
	"github.com/xela07ax/teamspace-action-engine/internal/domain"
	"go.uber.org/zap"
)

// recordingEndpoint запоминает, что именно ушло в модуль
type recordingEndpoint struct {
	op     string
	params map[string]interface{}
	userID string
}

func (r *recordingEndpoint) Invoke(_ context.Context, op string, params map[string]interface{}, userID string) (map[string]interface{}, error) {
	r.op = op
	r.params = params
	r.userID = userID
	return map[string]interface{}{"ok": true}, nil
}

func TestDriveExecutor_PassesThroughToEndpoint(t *testing.T) {
	ep := &recordingEndpoint{}
	exec := NewDriveExecutor(ep, zap.NewNop())

	got, err := exec.Execute(context.Background(), domain.Action{
		Module: "drive", Operation: "create_folder",
		Parameters: map[string]interface{}{"name": "Q1 Reports"},
	}, domain.UserContext{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, true, got["ok"])
	assert.Equal(t, "create_folder", ep.op)
	assert.Equal(t, "u1", ep.userID, "acting user identity reaches the module")
}

func TestDriveExecutor_MissingParam(t *testing.T) {
	exec := NewDriveExecutor(&recordingEndpoint{}, zap.NewNop())

	cases := []struct {
		op     string
		params map[string]interface{}
		want   string
	}{
		{"create_folder", nil, "name"},
		{"create_folder", map[string]interface{}{"name": ""}, "name"},
		{"move_file", map[string]interface{}{"file_id": "f-1"}, "parent_id"},
		{"rename_file", map[string]interface{}{"name": "x"}, "file_id"},
	}
	for _, tc := range cases {
		_, err := exec.Execute(context.Background(), domain.Action{Module: "drive", Operation: tc.op, Parameters: tc.params}, domain.UserContext{})
		require.Error(t, err, tc.op)
		assert.ErrorIs(t, err, domain.ErrMissingParam)
		assert.Contains(t, err.Error(), tc.want)
	}
}

func TestDriveExecutor_UnknownOperation(t *testing.T) {
	exec := NewDriveExecutor(&recordingEndpoint{}, zap.NewNop())

	_, err := exec.Execute(context.Background(), domain.Action{Module: "drive", Operation: "format_disk"}, domain.UserContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown operation "format_disk"`)
}

func TestHRExecutor_ClockInAgainstLocalWorkspace(t *testing.T) {
	ws := connectors.NewLocalWorkspace()
	exec := NewHRExecutor(ws.HR(), zap.NewNop())

	got, err := exec.Execute(context.Background(), domain.Action{
		Module: "hr", Operation: "clock_in",
		Parameters: map[string]interface{}{"employee_id": "emp-7"},
	}, domain.UserContext{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "emp-7", got["employee_id"])
}
