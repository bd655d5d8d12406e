package main

import "github.com/nanoagents/actorcore/pkg/types"

// TemperatureReading is published by the sensor agent on every sample.
type TemperatureReading struct {
	CelsiusTenths int16
	SensorID      types.AgentId
}

// SetTargetTemperature lets an operator (or a future config reload)
// move the thermostat's setpoint.
type SetTargetTemperature struct {
	CelsiusTenths int16
}

// HeaterCommand tells the device controller to turn the heater on or
// off.
type HeaterCommand struct {
	On bool
}

// FanCommand tells the device controller to turn the fan on or off.
type FanCommand struct {
	On bool
}
