// Package shell builds the bootstrap document loaded into a preview sandbox.
//
// The document is constant: it carries an empty placeholder style element, an
// empty placeholder markup container, and one inline bootstrap script. It is
// handed to the sandbox exactly once per boot and never patched in place;
// all later changes arrive as update messages over the sync channel.
package shell

// Element IDs the bootstrap document exposes to update handling.
const (
	StyleID = "preview-style"
	RootID  = "preview-root"
)

// The bootstrap script keeps a script-scoped lastScript variable so it
// survives across update messages but resets on a full reload. It announces
// readiness immediately, then applies updates: markup and stylesheet are
// replaced unconditionally (idempotent), the script layer only executes when
// it differs from the last executed one, wrapped in a fresh function scope so
// top-level const/let/class declarations never collide with a prior run.
// Script faults land in the sandbox's own console and never reach the host.
const bootstrapScript = `(function () {
  var lastScript = "";
  var style = document.getElementById("` + StyleID + `");
  var root = document.getElementById("` + RootID + `");

  var wsURL =
    (location.protocol === "https:" ? "wss://" : "ws://") +
    location.host +
    location.pathname.replace(/\/frame$/, "/channel");
  var socket = new WebSocket(wsURL);

  socket.addEventListener("open", function () {
    socket.send(JSON.stringify({ type: "ready" }));
  });

  socket.addEventListener("message", function (event) {
    var msg;
    try {
      msg = JSON.parse(event.data);
    } catch (e) {
      return;
    }
    if (!msg || msg.type !== "update") {
      return;
    }

    style.textContent = msg.css || "";
    root.innerHTML = msg.html || "";

    var js = msg.js || "";
    if (js !== lastScript) {
      lastScript = js;
      if (js) {
        try {
          new Function(";(function(){" + js + "})();")();
        } catch (err) {
          console.error(err);
        }
      }
    }
  });
})();`

const document = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8" />
    <style id="` + StyleID + `"></style>
  </head>
  <body>
    <div id="` + RootID + `"></div>
    <script>` + bootstrapScript + `</script>
  </body>
</html>
`

// Document returns the bootstrap document. Pure and zero-input: every call
// yields the identical document.
func Document() string {
	return document
}
