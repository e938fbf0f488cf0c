package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tauraamui/framegrab/internal/cli"
	"github.com/tauraamui/framegrab/pkg/camera"
	"github.com/tauraamui/framegrab/pkg/capture"
	"github.com/tauraamui/framegrab/pkg/device"
	"github.com/tauraamui/framegrab/pkg/log"
)

const frameTimeout = time.Second

func main() {
	log.SetLevel(os.Getenv("FRAMEGRAB_LOGGING_LEVEL"))

	fmt.Println("///////////////////////////////////")
	fmt.Println("/// framegrab Synchronous Grab ///")
	fmt.Println("///////////////////////////////////")
	fmt.Println()

	args, err := cli.ParseSyncArgs(os.Args[1:])
	if err != nil {
		fmt.Print(cli.SyncUsage)
		return
	}

	if err := run(args); err != nil {
		if errors.Is(err, camera.ErrNoCameras) {
			fmt.Println("No cameras found.")
			return
		}
		log.Fatal("%v", err)
	}
}

func run(args cli.Args) error {
	sys := device.Resolve(os.Getenv("FRAMEGRAB_BACKEND"))
	defer sys.Close()

	conn, err := camera.Connect(sys, "syncgrab", args.CameraID, camera.Settings{})
	if err != nil {
		return err
	}
	defer conn.Close()

	session := capture.NewSession(conn.Camera(), capture.Options{QueueCapacity: capture.DefaultQueueCapacity})
	defer session.Close()

	if err := session.Prepare(args.AllocationMode, capture.DefaultBufferCount); err != nil {
		return err
	}
	if err := session.Start(); err != nil {
		return err
	}

	for i := 0; i < args.FrameCount; i++ {
		f, err := session.WaitForFrame(frameTimeout)
		if err != nil {
			if errors.Is(err, capture.ErrTimeout) {
				fmt.Printf("No frame received within %s.\n", frameTimeout)
				continue
			}
			return err
		}
		fmt.Printf("Received frame with ID: %d, status: %s.\n", f.ID(), f.Status())
		f.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), capture.DefaultStopTimeout)
	defer cancel()
	return session.Stop(ctx)
}
