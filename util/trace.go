package util

import (
	"time"

	"go.uber.org/zap"
)

// Trace 记录耗时，用法：defer util.Trace("remove bg")()
func Trace(msg string) func() {
	start := time.Now()
	Logger.Debug("enter " + msg)
	return func() {
		Logger.Debug("exit "+msg, zap.Duration("cost", time.Since(start)))
	}
}
