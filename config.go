package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"

	"gopkg.in/gcfg.v1"
)

// configPath is where the daemon looks for its optional configuration
// file. A missing file means the compiled-in defaults apply.
const configPath = "/etc/tcp-print2file.conf"

// config mirrors the INI sections of the configuration file:
//
//	[listen]
//	address = 127.0.0.1
//	port = 12345
//
//	[spool]
//	directory = /var/spool/tcp-print2file
//
//	[daemon]
//	foreground = false
type config struct {
	Listen struct {
		Address string
		Port    int
	}
	Spool struct {
		Directory string
	}
	Daemon struct {
		Foreground bool
	}
}

func defaultConfig() config {
	var cfg config
	cfg.Listen.Address = "127.0.0.1"
	cfg.Listen.Port = 12345
	cfg.Spool.Directory = "/var/spool/tcp-print2file"
	return cfg
}

// loadConfig reads the configuration file at path over the defaults.
// A missing file is not an error; a malformed one is.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if err := gcfg.ReadFileInto(&cfg, path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if cfg.Listen.Port <= 0 || cfg.Listen.Port > 65535 {
		return cfg, fmt.Errorf("invalid listen port %d", cfg.Listen.Port)
	}
	return cfg, nil
}

func (c config) listenAddr() string {
	return net.JoinHostPort(c.Listen.Address, strconv.Itoa(c.Listen.Port))
}
