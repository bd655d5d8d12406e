package main

import (
	"github.com/nanoagents/actorcore/pkg/agent"
	"github.com/nanoagents/actorcore/pkg/message"
	"github.com/nanoagents/actorcore/pkg/types"
)

const (
	stateIdle types.StateId = iota
	stateHeating
	stateCooling
)

// newThermostat wires a state-machine agent that compares every
// incoming TemperatureReading against targetTenths and drives
// controllerID's heater/fan.
func newThermostat(id types.AgentId, env agent.EnvironmentHandle, controllerID types.AgentId, targetTenths int16) *agent.Agent {
	a := agent.New(id, env)

	a.DefineState(stateIdle, nil, nil)
	a.DefineState(stateHeating, func(a *agent.Agent) {
		agent.SendMessage(a, controllerID, HeaterCommand{On: true})
	}, func(a *agent.Agent) {
		agent.SendMessage(a, controllerID, HeaterCommand{On: false})
	})
	a.DefineState(stateCooling, func(a *agent.Agent) {
		agent.SendMessage(a, controllerID, FanCommand{On: true})
	}, func(a *agent.Agent) {
		agent.SendMessage(a, controllerID, FanCommand{On: false})
	})

	target := targetTenths
	const hysteresisTenths = 5

	agent.OnType[TemperatureReading](a, func(a *agent.Agent, frame []byte) {
		reading, ok := message.Decode[TemperatureReading](frame)
		if !ok {
			return
		}
		switch {
		case reading.CelsiusTenths < target-hysteresisTenths:
			a.TransitionTo(stateHeating)
		case reading.CelsiusTenths > target+hysteresisTenths:
			a.TransitionTo(stateCooling)
		default:
			a.TransitionTo(stateIdle)
		}
	})

	agent.OnType[SetTargetTemperature](a, func(a *agent.Agent, frame []byte) {
		if set, ok := message.Decode[SetTargetTemperature](frame); ok {
			target = set.CelsiusTenths
		}
	})

	return a
}
