package conversation

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiosk404/screenpilot/pkg/utils/json"
)

func TestRoleHistoryEviction(t *testing.T) {
	store := NewStore(2)

	for i := 0; i < 5; i++ {
		store.AddUserMessage("act", fmt.Sprintf("step %d", i))
	}

	msgs := store.Materialize("act", false)
	require.Len(t, msgs, 4)
	assert.Equal(t, "step 1", msgs[0].Content)
	assert.Equal(t, "step 4", msgs[3].Content)
}

func TestMaterializeTrimsUnresolvedToolCall(t *testing.T) {
	store := NewStore(5)

	store.AddUserMessage("act", "what next")
	callID := store.AddToolCall("act", "clicking", &ToolCall{Group: "gui", Name: "click"})
	require.NotEmpty(t, callID)

	msgs := store.Materialize("act", false)
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleUser, msgs[0].Role)

	store.AddToolResult("act", callID, "gui.click", "done")
	msgs = store.Materialize("act", false)
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleTool, msgs[2].Role)
	assert.Equal(t, callID, msgs[2].ToolCallID)
}

func TestMaterializeDropsOrphanedLeadingToolResult(t *testing.T) {
	store := NewStore(2)

	for i := 0; i < 2; i++ {
		store.AddUserMessage("act", fmt.Sprintf("step %d", i))
		callID := store.AddToolCall("act", "clicking", &ToolCall{Group: "gui", Name: "click"})
		store.AddToolResult("act", callID, "gui.click", "done")
	}

	// Eviction left the first triple's result without its call.
	msgs := store.Materialize("act", false)
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, "step 1", msgs[0].Content)
}

func TestGlobalHistoryInterleavesRoles(t *testing.T) {
	store := NewStore(5)

	store.AddUserMessage("observe", "look around")
	store.AddUserMessage("act", "do something")

	global := store.Materialize("act", true)
	require.Len(t, global, 2)
	assert.Equal(t, "observe", global[0].AgentRole)
	assert.Equal(t, "act", global[1].AgentRole)
}

func TestToolResultTruncation(t *testing.T) {
	store := NewStore(5)

	store.AddUserMessage("act", "go")
	callID := store.AddToolCall("act", "", &ToolCall{Group: "gui", Name: "read"})
	store.AddToolResult("act", callID, "gui.read", strings.Repeat("x", 2000))

	msgs := store.Materialize("act", false)
	last := msgs[len(msgs)-1]
	assert.True(t, strings.HasSuffix(last.Content, "...(truncated)"))
	assert.Less(t, len(last.Content), 600)
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewStore(5)
	store.AddUserMessage("act", "hello")
	store.AddToolCall("act", "thinking", nil)
	store.SetVar("forge_hint", "browser tools missing")
	store.BumpTurn()
	store.BumpTurn()

	data, err := json.Marshal(store)
	require.NoError(t, err)

	restored := NewStore(5)
	require.NoError(t, json.Unmarshal(data, restored))

	assert.Equal(t, 2, restored.Turns())
	assert.Equal(t, "browser tools missing", restored.GetVar("forge_hint"))

	msgs := restored.Materialize("act", false)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "thinking", msgs[1].Content)
}

func TestRestoreLegacyFlatHistory(t *testing.T) {
	raw := `{"messages":[{"role":"user","content":"old goal"},{"role":"assistant","content":"old reply"},{"role":"system","content":"noise"}]}`

	store := NewStore(5)
	require.NoError(t, json.Unmarshal([]byte(raw), store))

	msgs := store.Materialize("act", false)
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAssistant, msgs[1].Role)
	assert.Equal(t, RoleUser, msgs[2].Role)
}
