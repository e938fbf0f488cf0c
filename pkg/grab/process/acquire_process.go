package process

import (
	"context"
	"fmt"
	"time"

	"github.com/tauraamui/framegrab/pkg/camera"
	"github.com/tauraamui/framegrab/pkg/capture"
	"github.com/tauraamui/framegrab/pkg/log"
	"github.com/tauraamui/framegrab/pkg/snapshot"
)

var scheduleCheckInterval = time.Second
var timeNow = time.Now

func NewAcquisitionProcess(conn camera.Connection, rec Recorder) Process {
	return New(Settings{
		Name:               conn.Title(),
		WaitForShutdownMsg: fmt.Sprintf("Stopping acquisition from camera [%s]...", conn.Title()),
		Run:                AcquireProcess(conn, rec),
	})
}

// AcquireProcess runs acquisition sessions on conn for as long as its
// schedule is on. A session ending with a device error ends the process
// with that error.
func AcquireProcess(conn camera.Connection, rec Recorder) func(context.Context) error {
	return func(ctx context.Context) error {
		return acquire(ctx, conn, rec)
	}
}

func acquire(ctx context.Context, conn camera.Connection, rec Recorder) error {
	ticker := time.NewTicker(scheduleCheckInterval)
	defer ticker.Stop()

	wasOff := false
	for {
		if conn.Settings().Schedule.IsOn(timeNow()) {
			wasOff = false
			if err := runSession(ctx, conn, rec, ticker.C); err != nil {
				log.Error("Acquisition from camera [%s] ended: %v", conn.Title(), err)
				return err
			}
		} else if !wasOff {
			wasOff = true
			log.Info("Camera [%s] is scheduled off", conn.Title())
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

type consumeResult struct {
	report capture.Report
	err    error
}

func runSession(ctx context.Context, conn camera.Connection, rec Recorder, tick <-chan time.Time) error {
	sett := conn.Settings()
	s := capture.NewSession(conn.Camera(), capture.Options{QueueCapacity: sett.QueueCapacity})
	defer s.Close()

	if err := s.Prepare(sett.AllocationMode, sett.BufferCount); err != nil {
		return err
	}
	if err := s.Start(); err != nil {
		return err
	}

	proc := processors(conn, s.UUID(), rec)
	done := make(chan consumeResult, 1)
	go func() {
		report, err := capture.Consume(s, proc)
		done <- consumeResult{report: report, err: err}
	}()

	var result *consumeResult
	running := true
	for running {
		select {
		case <-ctx.Done():
			running = false
		case <-tick:
			if !sett.Schedule.IsOn(timeNow()) {
				log.Info("Camera [%s] schedule switched off", conn.Title())
				running = false
			}
		case r := <-done:
			result = &r
			running = false
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), capture.DefaultStopTimeout)
	defer cancel()
	stopErr := s.Stop(stopCtx)
	if result == nil {
		r := <-done
		result = &r
	}

	log.Info(
		"Camera [%s] session finished, frames: %d, processed: %d, skipped: %d, failed: %d",
		conn.Title(), result.report.Total(), result.report.Processed, result.report.Skipped, result.report.Failed,
	)
	if result.err != nil {
		return result.err
	}
	return stopErr
}

func processors(conn camera.Connection, sessionUUID string, rec Recorder) capture.Processor {
	sett := conn.Settings()
	if !sett.RecordMeasurements {
		rec = nil
	}

	procs := []capture.Processor{
		&measureFrames{
			title:       conn.Title(),
			cameraID:    conn.Camera().ID(),
			sessionUUID: sessionUUID,
			exposure:    conn.Exposure(),
			recorder:    rec,
		},
	}
	if len(sett.SnapshotDir) > 0 {
		procs = append(procs, snapshot.NewWriter(sett.SnapshotDir, conn.Title(), sett.SnapshotInterval))
	}
	return capture.Chain(procs...)
}
