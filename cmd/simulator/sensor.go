package main

import (
	"math"

	"github.com/nanoagents/actorcore/pkg/agent"
	"github.com/nanoagents/actorcore/pkg/types"
)

// temperatureSensor periodically samples a drifting synthetic signal
// and publishes a TemperatureReading. There is no hardware ADC to
// read on the host, so Sample derives a value from tick alone,
// staying deterministic across runs.
type temperatureSensor struct {
	*agent.Agent
	baseTenths int16
}

func newTemperatureSensor(id types.AgentId, env agent.EnvironmentHandle, baseTenths int16) *temperatureSensor {
	return &temperatureSensor{
		Agent:      agent.New(id, env),
		baseTenths: baseTenths,
	}
}

// Sample publishes a reading derived from tick and broadcasts it so
// both the thermostat and any observer agent can react.
func (s *temperatureSensor) Sample(tick int) {
	drift := int16(20 * math.Sin(float64(tick)/40.0))
	reading := TemperatureReading{CelsiusTenths: s.baseTenths + drift, SensorID: s.ID()}
	agent.BroadcastMessage(s.Agent, reading)
}
