package engine

type handler[T any] struct {
	id int
	fn func(T)
}

// emitter is a synchronous subscriber list. Handlers run in subscription
// order on the goroutine that emits.
type emitter[T any] struct {
	next     int
	handlers []handler[T]
}

func (e *emitter[T]) on(fn func(T)) func() {
	e.next++
	id := e.next
	e.handlers = append(e.handlers, handler[T]{id: id, fn: fn})
	return func() { e.off(id) }
}

func (e *emitter[T]) off(id int) {
	for i, h := range e.handlers {
		if h.id == id {
			e.handlers = append(e.handlers[:i:i], e.handlers[i+1:]...)
			return
		}
	}
}

func (e *emitter[T]) emit(v T) {
	handlers := append([]handler[T](nil), e.handlers...)
	for _, h := range handlers {
		h.fn(v)
	}
}

func (e *emitter[T]) clear() {
	e.handlers = nil
}

func (e *emitter[T]) len() int {
	return len(e.handlers)
}
