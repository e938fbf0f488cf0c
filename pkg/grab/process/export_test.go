package process

import "time"

func OverloadScheduleCheckInterval(overload time.Duration) func() {
	scheduleCheckIntervalRef := scheduleCheckInterval
	scheduleCheckInterval = overload
	return func() { scheduleCheckInterval = scheduleCheckIntervalRef }
}

func OverloadTimeNow(overload func() time.Time) func() {
	timeNowRef := timeNow
	timeNow = overload
	return func() { timeNow = timeNowRef }
}
