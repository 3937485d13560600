package main

import (
	"io"
	"log/syslog"

	"github.com/sirupsen/logrus"
	logrussyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// setupLogging routes all events through logrus. In foreground mode
// they go to stderr; as a daemon there is no terminal, so everything
// goes to syslog under the daemon facility instead.
func setupLogging(progname string, foreground bool) {
	logrus.SetLevel(logrus.InfoLevel)
	if foreground {
		return
	}

	hook, err := logrussyslog.NewSyslogHook("", "", syslog.LOG_INFO|syslog.LOG_DAEMON, progname)
	if err != nil {
		logrus.WithError(err).Warn("cannot connect to syslog, keeping stderr logging")
		return
	}
	logrus.AddHook(hook)
	logrus.SetOutput(io.Discard)
}
