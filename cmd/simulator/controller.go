package main

import (
	"fmt"

	"github.com/nanoagents/actorcore/pkg/agent"
	"github.com/nanoagents/actorcore/pkg/message"
	"github.com/nanoagents/actorcore/pkg/types"
)

// deviceController tracks the heater/fan relay state the thermostat
// drives.
type deviceController struct {
	*agent.Agent
	heaterOn bool
	fanOn    bool
}

func newDeviceController(id types.AgentId, env agent.EnvironmentHandle) *deviceController {
	c := &deviceController{Agent: agent.New(id, env)}

	agent.OnType[HeaterCommand](c.Agent, func(a *agent.Agent, frame []byte) {
		if cmd, ok := message.Decode[HeaterCommand](frame); ok {
			c.heaterOn = cmd.On
			fmt.Printf("[controller] heater=%v fan=%v\n", c.heaterOn, c.fanOn)
		}
	})
	agent.OnType[FanCommand](c.Agent, func(a *agent.Agent, frame []byte) {
		if cmd, ok := message.Decode[FanCommand](frame); ok {
			c.fanOn = cmd.On
			fmt.Printf("[controller] heater=%v fan=%v\n", c.heaterOn, c.fanOn)
		}
	})

	return c
}
