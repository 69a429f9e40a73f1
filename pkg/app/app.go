package app

import (
	"context"
	"io"
	"net/url"
	"os"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
	"pintest/pkg/app/config"
	"pintest/pkg/command"
	"pintest/pkg/harness"
	"pintest/pkg/metrics"
	"pintest/pkg/mqtt"
	"pintest/pkg/raspberry"
	"pintest/pkg/status"
)

// events is the number of status events kept for the /status web service.
const events = 64

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// gpio is the gpio driver, nil if the target is emulated
	gpio raspberry.Driver
	// lines are the requested gpio lines, closed in reverse order
	lines []io.Closer

	// controller is the test state machine
	controller *harness.Controller
	// metrics exports the controller progress
	metrics *metrics.Observer
	// events holds the most recent status events
	events *status.Recorder

	// commands is the source of operator commands, nil if none is configured
	commands io.ReadCloser

	ctx    context.Context
	cancel context.CancelFunc

	// shutdown is closed when the controller or the web server stopped on an error
	shutdown chan struct{}
	stopOnce sync.Once
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		config:    config,
		urlParsed: u,

		web:     fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt:    mqtt.New(),
		metrics: metrics.New(),
		events:  status.NewRecorder(events),

		ctx:      ctx,
		cancel:   cancel,
		shutdown: make(chan struct{}),
	}, err
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()
	go app.runController()
	if app.commands != nil {
		go app.listen()
	}

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if err = app.mqtt.Connect(app.config.MQTT.Connection); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	hw, err := app.openHardware()
	if err != nil {
		debug.ErrorLog.Printf("can't open gpio: %v", err)
		return err
	}

	app.controller, err = harness.New(app.config.Lines, app.config.MasterTiming, hw,
		harness.WithReporter(app.reporter()),
		harness.WithObserver(app.metrics))
	if err != nil {
		debug.ErrorLog.Printf("can't create test controller: %v", err)
		return err
	}

	if err = app.mqtt.Subscribe(app.config.MQTT.CommandTopic, func(payload []byte) {
		command.Dispatch(app.controller, string(payload))
	}); err != nil {
		debug.ErrorLog.Printf("can't subscribe to %q: %v", app.config.MQTT.CommandTopic, err)
		return err
	}

	if app.commands, err = openCommands(app.config.Commands.Source); err != nil {
		debug.ErrorLog.Printf("can't open command source %q: %v", app.config.Commands.Source, err)
		return err
	}

	// initDefaultRoutes should be always called last because it accesses the controller
	app.initDefaultRoutes()

	return nil
}

// reporter builds the status channel: console, event history, the debug log if it is
// written to a file and mqtt if a broker is configured.
func (app *App) reporter() status.Reporter {
	r := status.Multi{status.NewConsole(os.Stdout), app.events}

	switch app.config.Debug.FileString {
	case "", "stdout", "stderr":
	default:
		r = append(r, status.Log{})
	}

	if app.mqtt.Connected() {
		r = append(r, mqtt.NewReporter(app.mqtt, app.config.MQTT.Topic))
	}
	return r
}

func (app *App) runController() {
	if err := app.controller.Run(app.ctx); app.ctx.Err() == nil {
		debug.ErrorLog.Printf("test controller stopped: %v", err)
		app.stop()
	}
}

// stop signals the application shutdown.
func (app *App) stop() {
	app.stopOnce.Do(func() { close(app.shutdown) })
}

// listen reads operator commands until the source is exhausted.
func (app *App) listen() {
	if err := command.Listen(app.ctx, app.commands, app.controller); err != nil && app.ctx.Err() == nil {
		debug.ErrorLog.Printf("reading commands: %v", err)
	}
	debug.DebugLog.Printf("command source %q closed", app.config.Commands.Source)
}

// openCommands opens the command source: stdin, a file or tty, or nothing.
func openCommands(source string) (io.ReadCloser, error) {
	switch source {
	case "":
		return nil, nil
	case "stdin", "-":
		return io.NopCloser(os.Stdin), nil
	default:
		return os.Open(source)
	}
}

// Shutdown returns the read only shutdown channel.
// Shutdown is used to be able to react on application shutdown. (see cmd/pinmaster)
func (app *App) Shutdown() <-chan struct{} {
	return app.shutdown
}

func (app *App) Close() error {
	if app.cancel != nil {
		app.cancel()
	}
	if app.web != nil {
		_ = app.web.Shutdown()
	}
	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}
	if app.commands != nil {
		_ = app.commands.Close()
	}

	for i := len(app.lines) - 1; i >= 0; i-- {
		_ = app.lines[i].Close()
	}
	if app.gpio != nil {
		_ = app.gpio.Close()
	}
	return nil
}
