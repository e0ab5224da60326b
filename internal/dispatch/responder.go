package dispatch

import (
	"sync"
)

// Response is the wire envelope returned to a surface. The field set varies
// by command: {data, error}, {user, error} or {error}.
type Response map[string]interface{}

func DataResponse(data interface{}) Response {
	return Response{"data": data, "error": nil}
}

func UserResponse(user interface{}) Response {
	return Response{"user": user, "error": nil}
}

func ErrorOnly(err error) Response {
	if err == nil {
		return Response{"error": nil}
	}
	return Response{"error": errorBody(err)}
}

func ErrorResponse(err error) Response {
	return Response{"data": nil, "error": errorBody(err)}
}

func errorBody(err error) map[string]interface{} {
	return map[string]interface{}{"message": err.Error()}
}

// Responder resolves a request's response channel exactly once. A pending
// responder ("no response yet") is distinct from one resolved with a null
// payload, so a caller never times out a handler that intends to reply
// asynchronously.
type Responder struct {
	once sync.Once
	ch   chan Response
}

func NewResponder() *Responder {
	return &Responder{ch: make(chan Response, 1)}
}

// Resolve delivers the response. Later calls are no-ops.
func (r *Responder) Resolve(resp Response) {
	r.once.Do(func() {
		r.ch <- resp
	})
}

// Done yields the response once resolved.
func (r *Responder) Done() <-chan Response {
	return r.ch
}
