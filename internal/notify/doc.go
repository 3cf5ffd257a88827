// Package notify пересылает события жизненного цикла записей во внешний webhook.
//
// Notifier.Handle подключается к mq.Consumer на очереди posts.events.
// Без webhook URL события только пишутся в лог.
package notify
