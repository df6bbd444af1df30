package main

import (
	"net"
	"time"

	"github.com/9seconds/whereabouts/wherelib"
	log "github.com/sirupsen/logrus"
)

type logger struct {
	lookupLog *log.Entry
	cacheLog  *log.Entry
	storeLog  *log.Entry
}

func (l *logger) ProviderError(ip net.IP, name string, err error) {
	entry := l.lookupLog.WithField("provider", name)

	if ip != nil {
		entry = entry.WithField("ip", ip.String())
	}

	entry.WithError(err).Warn("Provider has failed")
}

func (l *logger) CircuitOpened(name string, until time.Time) {
	l.lookupLog.WithFields(log.Fields{
		"provider": name,
		"until":    until.Format(time.RFC3339),
	}).Error("Circuit is open")
}

func (l *logger) CacheError(key string, err error) {
	l.cacheLog.WithField("key", key).WithError(err).Warn("Cache has failed")
}

func (l *logger) StoreError(op string, err error) {
	l.storeLog.WithField("operation", op).WithError(err).Error("Range store has failed")
}

func (l *logger) Debug(name, msg string) {
	l.lookupLog.WithField("provider", name).Debug(msg)
}

func newLogger() wherelib.Logger {
	return &logger{
		lookupLog: log.WithField("event_name", "lookup"),
		cacheLog:  log.WithField("event_name", "cache"),
		storeLog:  log.WithField("event_name", "store"),
	}
}
