// Package cli реализует инструмент командной строки SmartTweet.
//
// # Обзор
//
// CLI работает с SmartTweet API по HTTP и не импортирует внутренние
// пакеты системы. Владелец передаётся через флаг --owner и уходит
// на сервер в заголовке X-Owner-ID.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Разбирает конверты ответов (data, data+total,
// error) и превращает ошибки сервера в *APIError.
//
//	client := cli.NewClient("http://localhost:8080", 1)
//	list, err := client.ListPosts(cli.ListPostsOpts{View: "pending"})
//
// ## Output
//
// Таблицы через text/tabwriter по умолчанию, JSON с флагом --json.
// Данные идут в stdout, сообщения (Success/Error) в stderr:
//
//	smarttweet post list --json | jq .
//
// ## Commands
//
// Cobra-команды по ресурсам:
//   - owner: create
//   - post: list, schedule, now, preview, show, edit, cancel, delete, stats
//
// Группы создаются фабриками (NewPostCmd, NewOwnerCmd), которые
// принимают clientFn и outputFn: Client и Output создаются лениво,
// уже после разбора PersistentFlags.
package cli
