// Package twitter — клиент X API v2 для публикации постов и опросов.
//
// Client реализует executor.Publisher. Токен владельца берётся из TokenSource;
// хранение учётных данных вне пакета.
package twitter
