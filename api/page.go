package api

import "net/http"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>QR Code Generator</title>
<style>
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: "Segoe UI", -apple-system, BlinkMacSystemFont, Roboto, sans-serif;
    background: linear-gradient(#5a5a5a, #282828);
    color: #fff;
    display: flex;
    justify-content: center;
    align-items: center;
    min-height: 100vh;
  }
  .card {
    border: 1px solid rgba(255, 255, 255, 0.3);
    border-radius: 16px;
    padding: 32px;
    max-width: 420px;
    width: 100%;
    display: flex;
    flex-direction: column;
    gap: 12px;
  }
  input[type=text] {
    border: 1px solid #fff;
    border-radius: 10px;
    padding: 10px;
    color: #fff;
    background: rgba(255, 255, 255, 0.1);
    font-size: 12pt;
  }
  button, .save {
    background: transparent;
    border: 1px solid #fff;
    border-radius: 10px;
    padding: 10px;
    min-height: 40px;
    color: #fff;
    font-size: 12pt;
    cursor: pointer;
    text-align: center;
    text-decoration: none;
  }
  button:hover, .save:hover { background: rgba(255, 255, 255, 0.2); }
  .save.disabled { opacity: 0.4; pointer-events: none; }
  label.check {
    background: rgba(255, 255, 255, 0.1);
    border: 1px solid #fff;
    border-radius: 10px;
    padding: 5px 10px;
  }
  #qr {
    min-height: 120px;
    display: flex;
    justify-content: center;
    align-items: center;
  }
  #error { color: #f87171; font-size: 13px; min-height: 16px; }
</style>
</head>
<body>
<div class="card">
  <input type="text" id="text" placeholder="Enter text for QR code">
  <button id="generate">Generate QR</button>
  <div id="qr"></div>
  <div id="error"></div>
  <label class="check"><input type="checkbox" id="transparent" disabled> Transparent</label>
  <a class="save disabled" id="save" download="qrcode.png" href="#">Save QR Code</a>
  <button id="clear">Clear</button>
</div>
<script>
(function() {
  var input = document.getElementById('text');
  var qr = document.getElementById('qr');
  var errorEl = document.getElementById('error');
  var transparent = document.getElementById('transparent');
  var save = document.getElementById('save');

  function clearChildren(el) {
    while (el.firstChild) el.removeChild(el.firstChild);
  }

  function query() {
    return 'text=' + encodeURIComponent(input.value) +
      '&transparent=' + (transparent.checked ? 'true' : 'false');
  }

  function generate() {
    if (!input.value) return;
    fetch('/qr/data?' + query())
      .then(function(r) {
        if (r.status === 204) return null;
        return r.json().then(function(body) {
          if (!r.ok) throw new Error(body.error || r.statusText);
          return body;
        });
      })
      .then(function(data) {
        if (!data) return;
        var img = document.createElement('img');
        img.setAttribute('alt', 'QR Code');
        img.setAttribute('src', 'data:image/png;base64,' + data.png);
        clearChildren(qr);
        qr.appendChild(img);
        errorEl.textContent = '';
        transparent.disabled = false;
        save.setAttribute('href', '/qr/download?' + query());
        save.classList.remove('disabled');
      })
      .catch(function(err) {
        errorEl.textContent = err.message;
      });
  }

  document.getElementById('generate').addEventListener('click', generate);
  transparent.addEventListener('change', generate);
  document.getElementById('clear').addEventListener('click', function() {
    input.value = '';
    clearChildren(qr);
    errorEl.textContent = '';
    save.setAttribute('href', '#');
    save.classList.add('disabled');
  });
})();
</script>
</body>
</html>`
