package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/tacusci/logging/v2"
	"github.com/takama/daemon"
	"github.com/tauraamui/framegrab/pkg/config"
	"github.com/tauraamui/framegrab/pkg/configdef"
	db "github.com/tauraamui/framegrab/pkg/database"
	"github.com/tauraamui/framegrab/pkg/database/repos"
	"github.com/tauraamui/framegrab/pkg/device"
	"github.com/tauraamui/framegrab/pkg/grab"
	"github.com/tauraamui/framegrab/pkg/log"
)

const (
	name        = "framegrab_daemon"
	description = "Framegrab service daemon which streams and measures frames from configured cameras"
)

type Service struct {
	daemon.Daemon
}

// Setup creates the default config file and the measurement database
func (service *Service) Setup() (string, error) {
	log.Info("Setting up framegrab service...")

	err := config.DefaultCreator().Create()
	if err != nil {
		if !errors.Is(err, configdef.ErrConfigAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	err = db.Setup()
	if err != nil {
		if !errors.Is(err, db.ErrDBAlreadyExists) {
			return "", err
		}
		log.Error(err.Error())
	}

	return "Setup successful...", nil
}

func (service *Service) RemoveSetup() (string, error) {
	log.Info("Removing setup for framegrab service...")
	if err := db.Destroy(); err != nil {
		log.Error("unable to delete database file: %s", err.Error())
	}

	if err := config.DefaultDestroyer().Destroy(); err != nil {
		log.Error("unable to delete config file: %s", err.Error())
	}

	return "Removing setup successful...", nil
}

func (service *Service) Manage() (string, error) {
	usage := "Usage: framegrabd setup | remove-setup | install | remove | start | stop | status"

	if len(os.Args) > 1 {
		command := os.Args[1]
		switch command {
		case "setup":
			return service.Setup()
		case "remove-setup":
			return service.RemoveSetup()
		case "install":
			return service.Install()
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	log.Info("Starting framegrab daemon...")

	cfg, err := config.DefaultResolver().Resolve()
	if err != nil {
		return "", err
	}
	if cfg.Debug {
		log.SetLevel("debug")
	}

	sys := device.Resolve(cfg.Backend)
	defer sys.Close()

	server, err := grab.NewServer(staticResolver{cfg}, sys)
	if err != nil {
		return "", err
	}

	if conn, err := db.Connect(); err != nil {
		log.Warn("Measurements will not be recorded: %v", err)
	} else {
		server.RecordTo(&repos.MeasurementRepository{DB: conn})
	}

	ctx, cancelStartup := context.WithCancel(context.Background())
	go startupServer(ctx, server)

	select {
	case killSignal := <-interrupt:
		fmt.Print("\r")
		log.Error("Received signal: %s", killSignal)
	case <-server.ProcessesDone():
		log.Error("No camera is acquiring anymore")
	}

	cancelStartup()
	log.Info("Shutting down server...")
	<-server.Shutdown()

	return "Shutdown successful... BYE! 👋", nil
}

type staticResolver struct {
	values configdef.Values
}

func (r staticResolver) Resolve() (configdef.Values, error) {
	return r.values, nil
}

func startupServer(ctx context.Context, server *grab.Server) {
	connectToCameras(ctx, server)
	server.SetupProcesses()
	server.RunProcesses()
}

func connectToCameras(ctx context.Context, server *grab.Server) {
	errs := server.ConnectWithCancel(ctx)
	for _, err := range errs {
		log.Error(err.Error())
	}
}

func init() {
	log.SetLevel(os.Getenv("FRAMEGRAB_LOGGING_LEVEL"))
}

func main() {
	daemonType := daemon.SystemDaemon
	if runtime.GOOS == "darwin" {
		daemonType = daemon.UserAgent
	}

	srv, err := daemon.New(name, description, daemonType)
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	logging.Info(status) //nolint
}
