package logging

import (
	"io"
	"log/syslog"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const syslogTag = "nosreboot"

// Setup configures the global zerolog logger. Output always goes to a console
// writer on stderr; when tee is true it is also copied to the system log,
// which is where the boot records of the device end up. Debug level is only
// enabled when verbose is set.
//
// Colour is disabled unconditionally: the reboot path is usually driven from
// scripts and serial consoles.
func Setup(verbose bool, tee bool) {
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}

	writers := []io.Writer{console}
	if tee {
		if sl, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, syslogTag); err == nil {
			writers = append(writers, zerolog.SyslogLevelWriter(sl))
		}
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Logger()
}
