// Command simulator runs a host-only demo system: a temperature
// sensor, a thermostat controller, and a device controller wired
// together through the actor core, with Prometheus metrics and a
// structured log stream.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nanoagents/actorcore/pkg/agent"
	"github.com/nanoagents/actorcore/pkg/corelog"
	"github.com/nanoagents/actorcore/pkg/environment"
	"github.com/nanoagents/actorcore/pkg/services"
	"github.com/nanoagents/actorcore/pkg/simconfig"
)

func main() {
	configPath := flag.String("config", "", "path to a simulator config YAML file (optional)")
	ticks := flag.Int("ticks", 2000, "number of simulator ticks to run")
	flag.Parse()

	cfg := simconfig.Default()
	if *configPath != "" {
		loaded, err := simconfig.Load(*configPath)
		if err != nil {
			fmt.Printf("failed to load config, using defaults: %v\n", err)
		} else {
			cfg = loaded
		}
	}

	log := corelog.New(corelog.Config{Level: "info"})

	env := environment.Instance()
	env.SetLogger(log)

	const (
		sensorID     = environment.FirstUserAgentID
		thermostatID = environment.FirstUserAgentID + 1
		controllerID = environment.FirstUserAgentID + 2
	)

	sensor := newTemperatureSensor(sensorID, env, 220) // 22.0C baseline
	thermostat := newThermostat(thermostatID, env, controllerID, 220)
	controller := newDeviceController(controllerID, env)

	for _, a := range []*agent.Agent{sensor.Agent, thermostat, controller.Agent} {
		if !env.RegisterAgent(a) {
			log.Errorf("failed to register agent %d", a.ID())
			return
		}
	}
	env.Start()

	env.Watchdog.RegisterForMonitoring(sensorID, cfg.Watchdog.SensorTimeoutTicks)
	env.Watchdog.RegisterForMonitoring(thermostatID, cfg.Watchdog.ControllerTimeoutTicks)
	env.Watchdog.RegisterForMonitoring(controllerID, cfg.Watchdog.ControllerTimeoutTicks)

	exporter := services.NewPrometheusExporter(prometheus.DefaultRegisterer, env.Metrics)

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		server := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("metrics server stopped: %v", err)
			}
		}()
		log.Infof("metrics listening on %s", cfg.MetricsAddr)
	}

	tickInterval := time.Duration(cfg.TickIntervalMs) * time.Millisecond

	for tick := 0; tick < *ticks; tick++ {
		sensor.Sample(tick)
		env.Watchdog.Heartbeat(sensorID)
		env.Watchdog.Heartbeat(thermostatID)
		env.Watchdog.Heartbeat(controllerID)

		env.ProcessAllMessages(64)

		if expired := env.Watchdog.Tick(); len(expired) > 0 {
			log.Warnf("watchdog expired for agents %v", expired)
		}

		if tick%cfg.ReportIntervalTicks == 0 {
			exporter.Refresh()
			env.Metrics.Broadcast()
			snap := env.Metrics.Snapshot()
			log.WithFields(map[string]interface{}{
				"sent":      snap.MessagesSent,
				"processed": snap.MessagesProcessed,
				"health":    env.ErrorReporter.Health().String(),
			}).Info("tick report")
		}

		time.Sleep(tickInterval)
	}
}
