package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
)

// Handler processes one control command on behalf of the owning session.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Serve accepts control clients on the session socket until context
// cancellation or listener close. Each client performs a single exchange:
// CLI forwarders and the speech collaborator open a fresh connection per
// command, send one newline-framed Request, and read one JSON Response.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	var wg sync.WaitGroup

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		client, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				wg.Wait()
				return nil
			}
			return fmt.Errorf("accept control client: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			serveClient(ctx, client, handler)
		}()
	}
}

// serveClient runs the one-request exchange. Malformed requests get an
// error Response rather than a dropped connection so callers always see a
// reply.
func serveClient(ctx context.Context, client net.Conn, handler Handler) {
	defer client.Close()

	line, err := bufio.NewReader(client).ReadBytes('\n')
	if err != nil {
		respond(client, Response{OK: false, Error: fmt.Sprintf("read request: %v", err)})
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		respond(client, Response{OK: false, Error: fmt.Sprintf("decode request: %v", err)})
		return
	}

	respond(client, handler.Handle(ctx, req))
}

func respond(client net.Conn, resp Response) {
	_ = json.NewEncoder(client).Encode(resp)
}
