package display

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	hoststat "github.com/likexian/host-stat-go"

	"github.com/kiosk404/screenpilot/pkg/logger"
)

// Server exposes the dashboard over HTTP.
type Server struct {
	board *Board
	addr  string
	srv   *http.Server
}

func NewServer(board *Board, addr string) *Server {
	return &Server{board: board, addr: addr}
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	g := gin.New()
	g.Use(gin.Recovery())
	g.Use(cors())

	g.GET("/", s.index)
	g.GET("/healthz", s.healthz)
	g.GET("/api/state", s.getState)
	g.GET("/api/system", s.getSystem)
	g.POST("/api/input", s.postInput)

	s.srv = &http.Server{Addr: s.addr, Handler: g}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()
	logger.InfoX("Display", "dashboard listening on http://%s", s.addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.board.Snapshot())
}

// getSystem reports host vitals alongside the agent state, for the
// operator panel.
func (s *Server) getSystem(c *gin.Context) {
	out := gin.H{}
	if hostInfo, err := hoststat.GetHostInfo(); err == nil {
		out["hostname"] = hostInfo.HostName
		out["os"] = hostInfo.OSType
		out["release"] = hostInfo.Release
	}
	if memStat, err := hoststat.GetMemStat(); err == nil {
		out["mem_total_mb"] = memStat.MemTotal
		out["mem_free_mb"] = memStat.MemFree
	}
	if cpuInfo, err := hoststat.GetCPUInfo(); err == nil {
		out["cpu_cores"] = cpuInfo.CoreCount
	}
	c.JSON(http.StatusOK, out)
}

type inputRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) postInput(c *gin.Context) {
	var req inputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.board.SubmitInput(req.Text)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

var indexHTML = []byte(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>ScreenPilot</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 0; display: flex; }
#left { flex: 1; padding: 12px; }
#right { width: 420px; padding: 12px; border-left: 1px solid #333; }
img { max-width: 100%; border: 1px solid #333; }
h3 { color: #7cb; margin: 12px 0 4px; }
pre { white-space: pre-wrap; background: #1a1a1a; padding: 8px; }
#error { color: #f66; }
</style>
</head>
<body>
<div id="left">
  <h3>Screen</h3>
  <img id="shot" alt="(no screenshot yet)">
</div>
<div id="right">
  <h3>Mission</h3><pre id="mission"></pre>
  <h3>Phase</h3><pre id="phase"></pre>
  <h3>Thought</h3><pre id="thought"></pre>
  <h3>Tool Log</h3><pre id="toollog"></pre>
  <h3>Memories</h3><pre id="memories"></pre>
  <h3>Servers</h3><pre id="servers"></pre>
  <pre id="error"></pre>
  <div id="inputbox" style="display:none">
    <pre id="prompt"></pre>
    <input id="userinput" type="text">
    <button onclick="submitInput()">Send</button>
  </div>
</div>
<script>
async function refresh() {
  const r = await fetch('/api/state');
  const s = await r.json();
  if (s.screenshot) document.getElementById('shot').src = 'data:image/png;base64,' + s.screenshot;
  document.getElementById('mission').textContent = s.mission;
  document.getElementById('phase').textContent = 'turn ' + s.turn + ' / ' + (s.phase || '-');
  document.getElementById('thought').textContent = s.thought;
  document.getElementById('toollog').textContent = s.tool_log;
  document.getElementById('memories').textContent = Object.entries(s.memories || {}).map(([k, v]) => '- ' + k + ': ' + v).join('\n');
  document.getElementById('servers').textContent = (s.active_servers || []).join(', ');
  document.getElementById('error').textContent = s.error || '';
  document.getElementById('inputbox').style.display = s.waiting_for_input ? 'block' : 'none';
  document.getElementById('prompt').textContent = s.input_prompt || '';
}
async function submitInput() {
  const text = document.getElementById('userinput').value;
  await fetch('/api/input', {method: 'POST', headers: {'Content-Type': 'application/json'}, body: JSON.stringify({text})});
  document.getElementById('userinput').value = '';
}
setInterval(refresh, 1000);
refresh();
</script>
</body>
</html>`)
