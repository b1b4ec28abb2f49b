package livereload

import (
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu     sync.Mutex
	msgs   []string
	err    error
	closed bool
}

func (f *fakeConn) WriteMessage(mt int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if mt != websocket.TextMessage {
		return errors.New("unexpected message type")
	}
	f.msgs = append(f.msgs, string(data))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

func TestHub_BroadcastReachesEveryConnection(t *testing.T) {
	h := NewHub(nil, nil)
	a, b := &fakeConn{}, &fakeConn{}
	h.Register(a)
	h.Register(b)

	h.Broadcast()
	h.Broadcast()

	assert.Equal(t, []string{"rebuild", "rebuild"}, a.received())
	assert.Equal(t, []string{"rebuild", "rebuild"}, b.received())
}

func TestHub_BrokenConnectionsAreKept(t *testing.T) {
	h := NewHub(nil, nil)
	broken := &fakeConn{err: errors.New("broken pipe")}
	ok := &fakeConn{}
	h.Register(broken)
	h.Register(ok)

	h.Broadcast()

	assert.Equal(t, 2, h.Len(), "dead connections are not pruned")
	assert.Equal(t, []string{"rebuild"}, ok.received())
}

func TestHub_CloseRejectsNewConnections(t *testing.T) {
	h := NewHub(nil, nil)
	a := &fakeConn{}
	h.Register(a)
	h.Close()
	assert.True(t, a.closed)

	late := &fakeConn{}
	h.Register(late)
	assert.True(t, late.closed)
	assert.Equal(t, 1, h.Len())
}

func TestHandler_WebSocketRoundTrip(t *testing.T) {
	h := NewHub(nil, nil)
	srv := httptest.NewServer(Handler(h, 3001))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	require.Eventually(t, func() bool { return h.Len() == 1 }, time.Second, 5*time.Millisecond)
	h.Broadcast()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	mt, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.Equal(t, "rebuild", string(data))
}

func TestHandler_ServesScript(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler(NewHub(nil, nil), 4321).ServeHTTP(rec, httptest.NewRequest("GET", ScriptPath, nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `":4321"`)
	assert.Contains(t, rec.Body.String(), `"rebuild"`)
	assert.True(t, strings.HasPrefix(Snippet(4321), "<script>"))
}
