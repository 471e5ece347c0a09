// Package parserpool owns a fixed set of goroutine workers, each holding one
// non-shareable tree-sitter parser instance, and serializes parse requests to
// them over a shared channel. tree-sitter parsers are not safe to use
// concurrently from multiple goroutines, so every request is routed to
// whichever worker is free rather than handed a parser directly.
package parserpool

import (
	"context"
	"errors"
	"runtime"

	sitter "github.com/smacker/go-tree-sitter"
)

// ErrPoolClosed is returned for any request submitted after Close.
var ErrPoolClosed = errors.New("parserpool: pool is closed")

type request struct {
	ctx     context.Context
	lang    *sitter.Language
	content []byte
	reply   chan reply
}

type reply struct {
	tree *sitter.Tree
	err  error
}

// Pool is a fixed set of parser workers.
type Pool struct {
	requests chan request
	done     chan struct{}
}

// New starts a pool with max(2, runtime.GOMAXPROCS(0)) worker goroutines.
func New() *Pool {
	workers := runtime.GOMAXPROCS(0)
	if workers < 2 {
		workers = 2
	}
	p := &Pool{
		requests: make(chan request),
		done:     make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		go p.runWorker()
	}
	return p
}

func (p *Pool) runWorker() {
	parser := sitter.NewParser()
	for {
		select {
		case <-p.done:
			return
		case req, ok := <-p.requests:
			if !ok {
				return
			}
			parser.SetLanguage(req.lang)
			tree, err := parser.ParseCtx(req.ctx, nil, req.content)
			select {
			case req.reply <- reply{tree: tree, err: err}:
			default:
				// Caller abandoned the request (timed out or gave up);
				// drop the result and move on to the next one.
			}
		}
	}
}

// ParseBlocking submits a parse request and waits for the result. Safe to
// call from many goroutines concurrently.
func (p *Pool) ParseBlocking(ctx context.Context, lang *sitter.Language, content []byte) (*sitter.Tree, error) {
	reply, err := p.submit(ctx, lang, content)
	if err != nil {
		return nil, err
	}
	return reply.tree, reply.err
}

// Parse submits a parse request and returns immediately with a channel that
// receives exactly one result. Use this from a caller that must not block
// waiting on a worker to become free.
func (p *Pool) Parse(ctx context.Context, lang *sitter.Language, content []byte) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		tree, err := p.ParseBlocking(ctx, lang, content)
		out <- Result{Tree: tree, Err: err}
	}()
	return out
}

// Result is the outcome of an asynchronous parse request.
type Result struct {
	Tree *sitter.Tree
	Err  error
}

func (p *Pool) submit(ctx context.Context, lang *sitter.Language, content []byte) (reply, error) {
	req := request{ctx: ctx, lang: lang, content: content, reply: make(chan reply, 1)}
	select {
	case <-p.done:
		return reply{}, ErrPoolClosed
	default:
	}
	select {
	case p.requests <- req:
	case <-p.done:
		return reply{}, ErrPoolClosed
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r, nil
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// Close stops all workers. In-flight requests submitted afterward receive
// ErrPoolClosed. Close does not wait for in-flight parses to finish; it only
// stops workers from picking up new requests once their current parse
// returns.
func (p *Pool) Close() {
	close(p.done)
}
