package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"chamberctl/internal/controller"
	"chamberctl/internal/handlers"
	"chamberctl/internal/hardware"
	"chamberctl/internal/logger"
	"chamberctl/internal/repository"
	"chamberctl/internal/repository/db"
	"chamberctl/internal/server"
	"chamberctl/internal/service"
)

func main() {
	// load config.yml first so the log level can come from it
	if err := loadConfig(); err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(viper.GetString("log.level"))

	// open DB
	conn, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	repos := repository.NewRepository(conn)

	settings, err := repos.Settings.Load(context.Background())
	if err != nil {
		log.Fatalw("failed to load settings", "err", err)
	}

	// hardware: real GPIO + 1-Wire probes, or the simulator for bench runs
	actuators, fire, sensorBus, err := buildHardware(log)
	if err != nil {
		log.Fatalw("failed to init hardware", "err", err)
	}

	tempLog, err := controller.NewTempLog(logDir())
	if err != nil {
		log.Fatalw("failed to init session log dir", "err", err)
	}

	chamber := controller.New(log, repos, actuators, fire, hardware.NewAggregator(sensorBus), tempLog, settings)
	printerSvc := service.NewPrinterService(log, chamber)

	services := service.NewService(log, repos, chamber, printerSvc, service.AuthConfig{
		SigningKey: viper.GetString("auth.signing_key"),
		TokenTTL:   viper.GetDuration("auth.token_ttl"),
	})
	apiHandler := handlers.NewHandler(services, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go chamber.Run(ctx)
	go chamber.RunSafetyMonitor(ctx)
	go printerSvc.Run(ctx)

	// connect to the printer if one is configured
	printerSvc.Reconfigure(settings)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	viper.SetDefault("port", "8080")
	viper.SetDefault("log.level", logger.InfoLevel)
	viper.SetDefault("auth.token_ttl", 12*time.Hour)
	return viper.ReadInConfig()
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "chamber.db")
		dbPath = "chamber.db"
	}
	return db.InitDB(dbPath)
}

func logDir() string {
	if dir := viper.GetString("log.session_dir"); dir != "" {
		return dir
	}
	return "logs"
}

// buildHardware picks the GPIO/1-Wire stack or the in-memory simulator
// depending on hardware.simulated.
func buildHardware(log *logger.Logger) (hardware.ActuatorBus, hardware.FireSensor, hardware.SensorBus, error) {
	if viper.GetBool("hardware.simulated") {
		log.Infow("hardware simulation enabled; no GPIO will be touched")
		bus := hardware.NewSimBus()
		return bus, bus, hardware.NewSimSensors(hardware.ProbeReading{ID: "28-sim", TempC: 22.0}), nil
	}

	pins := hardware.DefaultPins()
	if err := viper.UnmarshalKey("hardware.pins", &pins); err != nil {
		return nil, nil, nil, err
	}
	gpioBus, err := hardware.NewGPIOBus(pins)
	if err != nil {
		return nil, nil, nil, err
	}
	probes, err := hardware.NewDS18B20Bus(viper.GetString("hardware.w1_root"))
	if err != nil {
		return nil, nil, nil, err
	}
	return gpioBus, gpioBus, probes, nil
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines; the control loop parks its actuators on exit
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
