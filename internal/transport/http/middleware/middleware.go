// middleware — HTTP-мидлвари публичного сервера: recover, request-id,
// структурное логирование, таймаут запроса и аутентификация по cookie
// или заголовку Authorization.
package middleware

import "net/http"

// Middleware — стандартная сигнатура HTTP-мидлвари.
type Middleware func(http.Handler) http.Handler

// Chain применяет мидлвари к обработчику в порядке перечисления:
// первая в списке оказывается внешней.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	return h
}

// statusWriter перехватывает статус и объём ответа для логирования.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.bytes += n

	return n, err
}
