package dashboard

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>IDX Screener</title>
<style>
  body { background: #0d1117; color: #c9d1d9; font-family: "SF Mono", Menlo, monospace; margin: 0; padding: 24px; }
  h1 { font-size: 18px; font-weight: 600; color: #58a6ff; }
  .row { display: flex; gap: 24px; flex-wrap: wrap; }
  .card { background: #161b22; border: 1px solid #30363d; border-radius: 8px; padding: 16px; flex: 1; min-width: 420px; }
  .card h2 { font-size: 13px; text-transform: uppercase; letter-spacing: 1px; color: #8b949e; margin-top: 0; }
  #price { font-size: 32px; font-weight: 700; }
  canvas { width: 100%; height: 220px; }
  table { width: 100%; border-collapse: collapse; font-size: 13px; }
  th, td { text-align: left; padding: 6px 8px; border-bottom: 1px solid #21262d; }
  .buy { color: #3fb950; }
  .sell { color: #f85149; }
</style>
</head>
<body>
<h1>IDX Screener</h1>
<div class="row">
  <div class="card">
    <h2>Last price</h2>
    <div id="price">-</div>
    <canvas id="chart" width="800" height="220"></canvas>
  </div>
  <div class="card">
    <h2>Signals</h2>
    <table>
      <thead><tr><th>Time</th><th>Action</th><th>Price</th><th>Size</th><th>Reason</th></tr></thead>
      <tbody id="signals"></tbody>
    </table>
  </div>
</div>
<script>
  const prices = [];
  const maxPoints = 400;
  const canvas = document.getElementById("chart");
  const ctx = canvas.getContext("2d");

  function draw() {
    ctx.clearRect(0, 0, canvas.width, canvas.height);
    if (prices.length < 2) return;
    const min = Math.min(...prices), max = Math.max(...prices);
    const span = (max - min) || 1;
    ctx.strokeStyle = "#58a6ff";
    ctx.lineWidth = 1.5;
    ctx.beginPath();
    prices.forEach((p, i) => {
      const x = i / (prices.length - 1) * canvas.width;
      const y = canvas.height - ((p - min) / span) * (canvas.height - 10) - 5;
      i === 0 ? ctx.moveTo(x, y) : ctx.lineTo(x, y);
    });
    ctx.stroke();
  }

  const tickSource = new EventSource("/ticks/stream");
  tickSource.addEventListener("tick", (e) => {
    const tick = JSON.parse(e.data);
    document.getElementById("price").textContent = tick.price.toFixed(2);
    prices.push(tick.price);
    if (prices.length > maxPoints) prices.shift();
    draw();
  });

  const signalSource = new EventSource("/signals/stream");
  signalSource.addEventListener("signal", (e) => {
    const sig = JSON.parse(e.data);
    const row = document.createElement("tr");
    const when = new Date(sig.ts).toLocaleTimeString();
    const cls = sig.action === "BUY" ? "buy" : "sell";
    const size = sig.size_fraction ? (sig.size_fraction * 100).toFixed(1) + "%" : "-";
    row.innerHTML = "<td>" + when + "</td><td class=\"" + cls + "\">" + sig.action +
      "</td><td>" + sig.price.toFixed(2) + "</td><td>" + size + "</td><td>" + sig.reason + "</td>";
    const body = document.getElementById("signals");
    body.insertBefore(row, body.firstChild);
    while (body.children.length > 50) body.removeChild(body.lastChild);
  });
</script>
</body>
</html>`
