// Package scheduler реализует периодическое сканирование отложенных публикаций.
//
// Scheduler раз в cadence находит pending-записи с наступившим временем
// и передаёт каждую в executor. Ошибка одной записи не прерывает цикл.
//
// Структура:
//   - scheduler.go — Scheduler (Tick, Run)
//   - cron.go      — разбор cadence и адаптер логгера robfig/cron
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Store:    store,
//	    Executor: exec,
//	    Leader:   repo.NewAdvisoryLock(pool, repo.SchedulerLockKey), // опционально
//	    Cadence:  "@every 1m",
//	    Logger:   logger,
//	})
//
//	if err := sched.Run(ctx); err != nil {
//	    logger.Error("scheduler stopped", "error", err)
//	}
//
// Циклы не пересекаются: Run использует cron.SkipIfStillRunning,
// а прямой вызов Tick во время цикла вернёт ErrCycleInProgress.
//
// Leader Election:
//
// При нескольких процессах сканирует только владелец
// pg_try_advisory_lock. Без Leader процесс считается единственным.
package scheduler
