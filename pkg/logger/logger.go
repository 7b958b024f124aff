package logger

import (
	"os"
	"strings"
	"time"

	"github.com/Borislavv/refptr/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger from cfg.
func Setup(cfg config.Logs) error {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if cfg.Console {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}

	log.Info().Msgf("[logger] level=%s console=%v", level, cfg.Console)
	return nil
}
