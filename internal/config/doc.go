// Package config загружает настройки SmartTweet из окружения.
//
// Порядок: файл .env (godotenv, необязателен, не перезаписывает уже
// заданные переменные), затем переменные окружения через viper.
// У каждого ключа есть значение по умолчанию, поэтому пустое
// окружение даёт рабочую локальную конфигурацию на SQLite.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store, pool, err := app.OpenStore(ctx, cfg.DB)
package config
