package web

// Equity dashboard: one chart plus counters fed by the SSE stream.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Ladder</title>
  <script src="https://cdn.jsdelivr.net/npm/chart.js"></script>
  <link href="https://fonts.googleapis.com/css2?family=Space+Mono:wght@400;700&display=swap" rel="stylesheet">
  <style>
    :root {
      --bg:#ffffff;
      --ink:#111111;
      --ink-mid:#4d4d4d;
      --panel:#f6f6f6;
    }
    * { box-sizing:border-box; }
    body {
      margin:0;
      min-height:100vh;
      display:flex;
      align-items:center;
      justify-content:center;
      padding:2rem;
      background:var(--bg);
      color:var(--ink);
      font-family:'Space Mono',monospace;
    }
    #app {
      width:min(1100px, 96vw);
      background:var(--panel);
      border:3px solid var(--ink);
      padding:2rem;
      box-shadow:12px 12px 0 rgba(0,0,0,.15);
      display:flex;
      flex-direction:column;
      gap:1.5rem;
    }
    header { display:flex; justify-content:space-between; align-items:center; }
    h1 { font-size:1rem; letter-spacing:.2em; text-transform:uppercase; margin:0; }
    .status {
      font-size:.65rem;
      text-transform:uppercase;
      letter-spacing:.1em;
      border:2px solid var(--ink);
      padding:.4rem .9rem;
      background:#fff;
    }
    .stats {
      display:grid;
      grid-template-columns:repeat(auto-fit, minmax(180px, 1fr));
      gap:1rem;
    }
    .stat {
      border:3px solid var(--ink);
      background:#fff;
      padding:1rem;
      box-shadow:6px 6px 0 rgba(0,0,0,.12);
    }
    .stat .label {
      font-size:.6rem;
      text-transform:uppercase;
      letter-spacing:.18em;
      color:var(--ink-mid);
    }
    .stat .value {
      margin-top:.6rem;
      font-size:1.4rem;
      font-weight:700;
    }
    canvas { border:2px solid var(--ink); background:#fff; }
  </style>
</head>
<body>
  <div id="app">
    <header>
      <h1>ladder</h1>
      <div id="sse-status" class="status">Connecting…</div>
    </header>
    <section class="stats">
      <div class="stat"><div class="label">Equity</div><div id="equity" class="value">—</div></div>
      <div class="stat"><div class="label">Net profit</div><div id="netProfit" class="value">—</div></div>
      <div class="stat"><div class="label">Open lots</div><div id="openLots" class="value">—</div></div>
      <div class="stat"><div class="label">Pending orders</div><div id="pendingOrders" class="value">—</div></div>
    </section>
    <canvas id="equityChart" height="300"></canvas>
  </div>
<script>
const statusEl = document.getElementById('sse-status');
const equityEl = document.getElementById('equity');
const netProfitEl = document.getElementById('netProfit');
const openLotsEl = document.getElementById('openLots');
const pendingOrdersEl = document.getElementById('pendingOrders');

Chart.defaults.font.family = "'Space Mono', monospace";
Chart.defaults.font.size = 11;
Chart.defaults.color = '#111111';

const chart = new Chart(document.getElementById('equityChart').getContext('2d'), {
  type: 'line',
  data: { labels: [], datasets: [{
    label: 'equity',
    data: [],
    borderColor: '#111111',
    backgroundColor: 'rgba(17,17,17,0.10)',
    borderWidth: 2,
    pointRadius: 0,
    tension: 0.15,
    fill: true
  }]},
  options: {
    animation: false,
    responsive: true,
    interaction: { intersect: false, mode: 'index' },
    plugins: { legend: { display: false } }
  }
});

const MAX_POINTS = 5000;

function formatTs(ts){
  const date = new Date(ts);
  if(Number.isNaN(date.getTime())){ return ''; }
  return date.toLocaleTimeString([], { hour12:false });
}

function handleSnapshot(snap){
  equityEl.textContent = snap.equity;
  netProfitEl.textContent = snap.net_profit;
  openLotsEl.textContent = snap.open_lots;
  pendingOrdersEl.textContent = snap.pending_orders;

  chart.data.labels.push(formatTs(snap.ts));
  chart.data.datasets[0].data.push(parseFloat(snap.equity));
  if(chart.data.labels.length > MAX_POINTS){
    chart.data.labels.shift();
    chart.data.datasets[0].data.shift();
  }
  chart.update('none');
}

function connectSSE(){
  const source = new EventSource('/snapshots/stream');
  statusEl.textContent = 'Live';
  source.addEventListener('equity', (event) => {
    try{
      handleSnapshot(JSON.parse(event.data));
    }catch(err){
      console.error('snapshot parse', err);
    }
  });
  source.addEventListener('error', () => {
    statusEl.textContent = 'Reconnecting…';
    source.close();
    setTimeout(connectSSE, 2000);
  });
}

connectSSE();
</script>
</body>
</html>`
