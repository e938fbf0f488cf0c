package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/tauraamui/framegrab/internal/cli"
	"github.com/tauraamui/framegrab/pkg/analysis"
	"github.com/tauraamui/framegrab/pkg/camera"
	"github.com/tauraamui/framegrab/pkg/capture"
	"github.com/tauraamui/framegrab/pkg/device"
	"github.com/tauraamui/framegrab/pkg/log"
)

const (
	exposureTime = 5000
	gain         = 0
)

func main() {
	log.SetLevel(os.Getenv("FRAMEGRAB_LOGGING_LEVEL"))

	fmt.Println("/////////////////////////////////////")
	fmt.Println("/// framegrab Asynchronous Grab ///")
	fmt.Println("/////////////////////////////////////")
	fmt.Println()

	args, err := cli.ParseAsyncArgs(os.Args[1:])
	if err != nil {
		fmt.Print(cli.AsyncUsage)
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

type consumeResult struct {
	report capture.Report
	err    error
}

func run(args cli.Args) error {
	sys := device.Resolve(os.Getenv("FRAMEGRAB_BACKEND"))
	defer sys.Close()

	conn, err := camera.Connect(sys, "asyncgrab", args.CameraID, camera.Settings{
		ExposureTime: exposureTime,
		Gain:         gain,
	})
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

	stop := cli.StopRequested(os.Stdin)
	done := make(chan consumeResult, 1)
	go func() {
		report, err := capture.Consume(session, analysis.NewProcessor(conn.Exposure(), printStats))
		done <- consumeResult{report: report, err: err}
	}()

	var result *consumeResult
	select {
	case <-stop:
	case r := <-done:
		result = &r
	}

	ctx, cancel := context.WithTimeout(context.Background(), capture.DefaultStopTimeout)
	defer cancel()
	stopErr := session.Stop(ctx)
	if result == nil {
		r := <-done
		result = &r
	}

	fmt.Printf(
		"Frames received: %d, processed: %d, skipped: %d, failed: %d\n",
		result.report.Total(), result.report.Processed, result.report.Skipped, result.report.Failed,
	)
	if result.err != nil {
		return result.err
	}
	return stopErr
}

func printStats(stats analysis.Stats) {
	fmt.Printf("Frame [%d] status: %s\n", stats.FrameID, stats.Status)
	fmt.Printf(" %d X %d Sum of all pixels: %.0f\n", stats.Dimensions.W, stats.Dimensions.H, stats.Sum)
	fmt.Printf("Average pixel value: %f\n", stats.Average)
	fmt.Printf("Optical power (readout units/us): %f\n", stats.OpticalPower)
}
