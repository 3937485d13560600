package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/kunfoo/tcp-print2file/printer"
)

// tcp-print2file receives print jobs over a TCP socket and writes each
// one to a file in the spool directory. It is intended as a dummy
// printer to point CUPS at: the "printer" is a port, the "printout" is
// a file.

func main() {
	progname := filepath.Base(os.Args[0])
	if len(os.Args) > 1 {
		fmt.Printf("%s does not take any arguments\n", progname)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		logrus.WithError(err).Fatal("cannot load configuration")
	}

	if !cfg.Daemon.Foreground {
		daemonize()
	}
	setupLogging(progname, cfg.Daemon.Foreground)

	// Job-control signals from a terminal must not stop the daemon.
	signal.Ignore(syscall.SIGTSTP, syscall.SIGTTIN, syscall.SIGTTOU)

	srv := printer.New(printer.Config{
		Addr: cfg.listenAddr(),
		Dir:  cfg.Spool.Directory,
	})

	// Termination handling is installed before the listener exists so
	// no window is left where a signal could strand an open socket.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGHUP, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigc
		// One shot: a second signal during teardown gets the default
		// disposition and kills the process outright.
		signal.Stop(sigc)
		logrus.WithField("signal", sig).Info("received termination signal, exiting")
		srv.Shutdown()
	}()

	if err := srv.Listen(); err != nil {
		logrus.WithError(err).Fatal("cannot listen")
	}
	logrus.Infof("successfully started %s", progname)

	if err := srv.Run(context.Background()); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}
