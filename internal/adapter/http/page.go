package http

import (
	"html/template"
	"net/http"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="ro">
<head>
   <meta charset="UTF-8"/>
   <title>Avertizari ANM</title>
   <style>
      body { font-family: Arial, sans-serif; max-width: 900px; margin: 0 auto; padding: 20px; }
      .holder { width: 100%; height: auto; }
      .holder svg { width: 100%; height: auto; }
      .cod0 { fill: #8bc34a; }
      .cod1 { fill: #ffeb3b; }
      .cod2 { fill: #ff9800; }
      .cod3 { fill: #f44336; }
      .nav { display: flex; align-items: center; margin-top: 6px; gap: 6px; }
      .nav button { padding: 2px 6px; border: 1px solid #888; border-radius: 4px; background: #f5f5f5; cursor: pointer; }
      .nav button:disabled { opacity: 0.5; cursor: default; }
      .meta { margin-top: 8px; font-size: 14px; line-height: 1.4; }
      .waiting { color: #888; }
   </style>
</head>
<body>
   <div id="card">
   {{- if .}}{{.}}{{else}}<p class="waiting">Harta nu a fost inca generata.</p>{{end -}}
   </div>
   <script>
      (function () {
         var card = document.getElementById("card");
         var proto = location.protocol === "https:" ? "wss://" : "ws://";
         var ws = new WebSocket(proto + location.host + "/map/live");
         ws.onmessage = function (ev) {
            var msg = JSON.parse(ev.data);
            if (msg.type === "frame") {
               card.innerHTML = msg.data.html;
            }
         };
         card.addEventListener("click", function (ev) {
            var nav = ev.target.getAttribute("data-nav");
            if (nav && !ev.target.disabled && ws.readyState === WebSocket.OPEN) {
               ws.send(JSON.stringify({ type: nav }));
            }
         });
      })();
   </script>
</body>
</html>
`))

// handlePage serves a standalone page showing the current frame and
// following live updates.
func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	var body template.HTML
	if f := s.card.Frame(); f != nil {
		body = template.HTML(f.HTML)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := pageTemplate.Execute(w, body); err != nil {
		s.logger.Error("page render failed", "error", err)
	}
}
