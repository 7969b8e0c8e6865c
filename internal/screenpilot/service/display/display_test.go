package display

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/gg/gptr"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardPartialUpdate(t *testing.T) {
	b := NewBoard()

	b.Push(Update{Thought: gptr.Of("clicking the menu"), Turn: gptr.Of(3)})
	s := b.Snapshot()
	assert.Equal(t, "clicking the menu", s.Thought)
	assert.Equal(t, 3, s.Turn)
	assert.Equal(t, "Waiting for instructions...", s.Mission)

	b.Push(Update{Error: gptr.Of("provider unreachable")})
	assert.Equal(t, "provider unreachable", b.Snapshot().Error)

	b.Push(Update{Error: gptr.Of("")})
	assert.Empty(t, b.Snapshot().Error)
}

func TestBoardInputRoundTrip(t *testing.T) {
	b := NewBoard()

	_, ok := b.TakeInput()
	assert.False(t, ok)

	b.RequestInput("What is the goal?")
	assert.True(t, b.Snapshot().WaitingForInput)

	b.SubmitInput("open the settings page")
	text, ok := b.TakeInput()
	require.True(t, ok)
	assert.Equal(t, "open the settings page", text)
	assert.False(t, b.Snapshot().WaitingForInput)

	_, ok = b.TakeInput()
	assert.False(t, ok)
}

func TestStateEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := NewBoard()
	b.Push(Update{Mission: gptr.Of("inspect the desktop")})
	s := NewServer(b, "127.0.0.1:0")

	g := gin.New()
	g.GET("/api/state", s.getState)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	g.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "inspect the desktop")
}

func TestInputEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	b := NewBoard()
	s := NewServer(b, "127.0.0.1:0")

	g := gin.New()
	g.POST("/api/input", s.postInput)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/input", strings.NewReader(`{"text":"continue"}`))
	req.Header.Set("Content-Type", "application/json")
	g.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	text, ok := b.TakeInput()
	require.True(t, ok)
	assert.Equal(t, "continue", text)
}
