package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/cabin-monitor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02T15:04:05Z")
	},
	"rate": func(r float64) string {
		return fmt.Sprintf("%+.2f/s", r)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Cabin Monitor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.high { color: red; font-weight: bold; }
.ready { color: green; }
.cooldown { color: orange; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Cabin Monitor{{if .Config.WSBroker}}<span id="live-dot" class="live-dot pending" title="connecting"></span>{{end}}</h1>

<h2>Environment</h2>
<table>
<tr><th></th><th>Raw</th><th>Smoothed</th><th>Rate</th></tr>
<tr><th>CO2 (ppm)</th><td id="co2-raw">{{printf "%.0f" .Loop.Raw.CO2}}</td><td class="{{if gt .Loop.Smoothed.CO2.Value .Config.CO2Max}}high{{end}}">{{printf "%.0f" .Loop.Smoothed.CO2.Value}}</td><td>{{rate .Loop.Smoothed.CO2.Rate}}</td></tr>
<tr><th>Temperature (°C)</th><td id="temp-raw">{{printf "%.1f" .Loop.Raw.Temperature}}</td><td class="{{if gt .Loop.Smoothed.Temperature.Value .Config.TempMax}}high{{end}}">{{printf "%.1f" .Loop.Smoothed.Temperature.Value}}</td><td>{{rate .Loop.Smoothed.Temperature.Rate}}</td></tr>
<tr><th>Humidity (%RH)</th><td id="hum-raw">{{printf "%.1f" .Loop.Raw.Humidity}}</td><td>{{printf "%.1f" .Loop.Smoothed.Humidity.Value}}</td><td>{{rate .Loop.Smoothed.Humidity.Rate}}</td></tr>
<tr><th>Measured</th><td colspan="3">{{when .Loop.Raw.Time}}</td></tr>
</table>

<h2>Occupants</h2>
<table>
<tr><th>People</th><td id="people">{{.Loop.Count.People}}</td></tr>
<tr><th>Animals</th><td id="animals">{{.Loop.Count.Animals}}</td></tr>
</table>

<h2>Alerts</h2>
<table>
<tr><th>Policy</th><td class="{{if eq (printf "%s" .Loop.Policy) "COOLDOWN"}}cooldown{{else}}ready{{end}}">{{if .Loop.Policy}}{{.Loop.Policy}}{{else}}READY{{end}}</td></tr>
<tr><th>Last alert</th><td>{{when .Loop.LastAlert}}</td></tr>
<tr><th>Alerts sent</th><td>{{.Loop.AlertsSent}}</td></tr>
<tr><th>Thresholds</th><td>CO2 &gt; {{printf "%.0f" .Config.CO2Max}} ppm, temperature &gt; {{printf "%.1f" .Config.TempMax}} °C</td></tr>
<tr><th>Min interval</th><td>{{.Config.MinIntervalMs}}ms</td></tr>
<tr><th>Notifier</th><td>{{.Config.Notifier}}</td></tr>
</table>

<h2>Errors</h2>
<table>
<tr><th>Sensor</th><td>{{.Loop.Errors.Sensor}}</td></tr>
<tr><th>Detector</th><td>{{.Loop.Errors.Detector}}</td></tr>
<tr><th>Publish</th><td>{{.Loop.Errors.Publish}}</td></tr>
<tr><th>Notify</th><td>{{.Loop.Errors.Notify}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Sinks</th><td>{{range $i, $s := .Config.Sinks}}{{if $i}}, {{end}}{{$s}}{{else}}none{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Ready</th><td>{{if .Ready}}yes{{else}}no{{end}}</td></tr>
<tr><th>Steps</th><td>{{.Loop.Steps}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Interval</th><td>{{.Config.IntervalMs}}ms</td></tr>
<tr><th>Window</th><td>{{.Config.WindowSize}} samples</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
{{if .Config.WSBroker}}
<script src="https://unpkg.com/mqtt/dist/mqtt.min.js"></script>
<script>
(function() {
  var broker = "{{.Config.WSBroker}}";
  var topic = "vehicle/cabin/telemetry";
  var dot = document.getElementById("live-dot");
  var fields = {
    co2: document.getElementById("co2-raw"),
    temperature: document.getElementById("temp-raw"),
    relative_humidity: document.getElementById("hum-raw")
  };

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  var client = mqtt.connect(broker, { reconnectPeriod: 5000 });

  client.on("connect", function() {
    setDot("ok", "live");
    client.subscribe(topic);
  });

  client.on("reconnect", function() {
    setDot("pending", "reconnecting");
  });

  client.on("offline", function() {
    setDot("err", "offline");
  });

  client.on("error", function() {
    setDot("err", "error");
  });

  client.on("message", function(t, payload) {
    try {
      var msg = JSON.parse(payload.toString());
      (msg.telemetry || []).forEach(function(p) {
        var el = fields[p.measurement];
        if (el) {
          el.textContent = p.measurement === "co2" ? p.value.toFixed(0) : p.value.toFixed(1);
        }
        document.getElementById("people").textContent = p.people_count;
        document.getElementById("animals").textContent = p.animal_count;
      });
    } catch (e) {}
  });
})();
</script>
{{end}}
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
