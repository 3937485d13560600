package main

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// daemonEnv marks the re-executed child so it knows not to detach
// again.
const daemonEnv = "TCP_PRINT2FILE_DAEMON"

// daemonize detaches the process from the controlling terminal by
// re-executing itself in a new session with stdio pointed at /dev/null,
// then exiting the parent. The child finishes the job: working
// directory to /, file-creation mask cleared.
func daemonize() {
	if os.Getenv(daemonEnv) != "" {
		os.Unsetenv(daemonEnv)
		unix.Umask(0)
		if err := os.Chdir("/"); err != nil {
			logrus.WithError(err).Warn("cannot chdir to /")
		}
		return
	}

	exe, err := os.Executable()
	if err != nil {
		logrus.WithError(err).Fatal("cannot determine own executable path")
	}
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		logrus.WithError(err).Fatal("cannot open /dev/null")
	}

	cmd := exec.Command(exe)
	cmd.Env = append(os.Environ(), daemonEnv+"=1")
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		logrus.WithError(err).Fatal("cannot start detached process")
	}

	os.Exit(0)
}
