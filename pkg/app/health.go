package app

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// HandleHealth returns data about the health of myself and the gpio driver in use.
// output example:
//  {"NumGoroutines":11,"HeapAllocatedMB":3,"Driver":"gpiod","Phase":"WaitButton","Runs":4,
//   "MQTT":true,"Version":"1.0.10+20241001","ProgLang":"go1.21.5"}
func (app *App) HandleHealth() fiber.Handler {
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}

	host, _ := os.Hostname()

	return func(ctx *fiber.Ctx) error {
		debug.DebugLog.Print("web request health")

		s := app.controller.Status()

		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		hab := m.Alloc
		smb := m.Sys

		healthData := struct {
			NumGoroutines      int
			NumCPU             int
			HeapAllocatedBytes uint64
			HeapAllocatedMB    uint64
			SysMemoryBytes     uint64
			SysMemoryMB        uint64
			Version            string
			ProgLang           string
			HostName           string
			Time               string
			Driver             string
			Phase              string
			Runs               int
			MQTT               bool
		}{
			NumGoroutines:      runtime.NumGoroutine(),
			NumCPU:             runtime.NumCPU(),
			HeapAllocatedBytes: hab,
			HeapAllocatedMB:    bToMb(hab),
			SysMemoryBytes:     smb,
			SysMemoryMB:        bToMb(smb),
			ProgLang:           runtime.Version(),
			Version:            VERSION,
			HostName:           host,
			Time:               time.Now().Format(time.RFC3339),
			Driver:             app.config.GPIO.Driver,
			Phase:              s.Phase.String(),
			Runs:               s.Runs,
			MQTT:               app.mqtt.Connected(),
		}
		ctx.Status(http.StatusOK)
		return ctx.JSON(healthData)
	}
}
