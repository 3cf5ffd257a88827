// Package mq публикует и потребляет события жизненного цикла записей через RabbitMQ.
//
// Структура:
//   - connection.go — соединение с reconnect и graceful shutdown
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — конверт Message и публикация
//   - events.go     — EventPublisher: события post.* для executor и posts
//   - consumer.go   — потребление с ack/nack и DLQ
//
// Типы сообщений:
//   - post.posted     — запись опубликована
//   - post.failed     — попытка публикации не удалась
//   - post.scheduled  — создана отложенная запись
//   - post.cancelled  — запись отменена
//
// Все события идут в smarttweet.posts (direct) и попадают в очередь posts.events.
// Сообщение, дважды отклонённое обработчиком, уходит в dlq.posts.
package mq
