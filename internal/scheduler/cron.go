package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultCadence — интервал сканирования по умолчанию.
const DefaultCadence = "@every 1m"

// cadenceParser принимает 5-полевые выражения и дескрипторы (@every, @hourly).
var cadenceParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseCadence разбирает расписание циклов.
func ParseCadence(spec string) (cron.Schedule, error) {
	schedule, err := cadenceParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cadence %q: %w", spec, err)
	}
	return schedule, nil
}

// ValidateCadence проверяет расписание при старте процесса.
func ValidateCadence(spec string) error {
	_, err := ParseCadence(spec)
	return err
}

// cronLogger направляет логи cron в slog.
func cronLogger(logger *slog.Logger) cron.Logger {
	return cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))
}
