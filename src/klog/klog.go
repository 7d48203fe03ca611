// Package klog is the kernel's structured log sink, standing in for
// the printk/DEBUG-level console output original_source gates behind
// #ifdef DEBUG / #if (DEBUG >= 1) blocks throughout env.c (env_free's
// "free env %08x", env_destroy's "i am killed"). Built on logrus
// rather than stdlib log so every call site can attach structured
// fields (env id, asid, pc) instead of formatting them into the
// message string by hand. Named klog, not log, so importing it never
// shadows the standard library package of the same name.
package klog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var std = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return l
}

// SetLevel adjusts the minimum level emitted, the software analogue of
// recompiling with a higher DEBUG value.
func SetLevel(level logrus.Level) {
	std.SetLevel(level)
}

// Env returns an entry pre-populated with the fields almost every
// kernel log line in this subsystem needs: an env id and the asid
// bound to it.
func Env(id uint32, asid uint32) *logrus.Entry {
	return std.WithFields(logrus.Fields{
		"env_id": id,
		"asid":   asid,
	})
}

// Debugf logs at debug level, gated the way DEBUG >= 1 gates printk.
func Debugf(format string, args ...interface{}) { std.Debugf(format, args...) }

// Infof logs at info level.
func Infof(format string, args ...interface{}) { std.Infof(format, args...) }

// Warnf logs at warn level.
func Warnf(format string, args ...interface{}) { std.Warnf(format, args...) }

// Errorf logs at error level.
func Errorf(format string, args ...interface{}) { std.Errorf(format, args...) }
