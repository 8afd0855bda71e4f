package services

import (
	"time"

	log "github.com/sirupsen/logrus"
)

func TrackTime(funcName string, start time.Time) {
	log.WithField("ms", time.Since(start).Milliseconds()).Debugf("%s finished", funcName)
}
