package livereload

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ScriptPath serves the client script on the live reload listener.
const ScriptPath = "/livereload.js"

// Handler routes the live reload listener: websocket upgrades on "/" and the
// client script on ScriptPath.
func Handler(hub *Hub, wsPort int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", hub.ServeHTTP)
	r.Get(ScriptPath, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte(clientJS(wsPort)))
	})
	return r
}

// Snippet is the inline <script> emitted into pages while serving.
func Snippet(wsPort int) string {
	return "<script>" + clientJS(wsPort) + "</script>"
}

func clientJS(wsPort int) string {
	return fmt.Sprintf(`(function(){
var delay=1000;
function connect(){
var ws=new WebSocket("ws://"+location.hostname+":%d");
ws.onopen=function(){delay=1000;};
ws.onmessage=function(e){if(e.data===%q){location.reload();}};
ws.onclose=function(){setTimeout(function(){delay=Math.min(delay*2,30000);connect();},delay);};
}
connect();
})();`, wsPort, Message)
}
