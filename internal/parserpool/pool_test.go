package parserpool

import (
	"context"
	"testing"

	"github.com/smacker/go-tree-sitter/golang"
)

func TestParseBlockingReturnsTree(t *testing.T) {
	p := New()
	defer p.Close()

	tree, err := p.ParseBlocking(context.Background(), golang.GetLanguage(), []byte("package main\n"))
	if err != nil {
		t.Fatalf("ParseBlocking: %v", err)
	}
	if tree == nil || tree.RootNode() == nil {
		t.Fatalf("expected a parse tree")
	}
}

func TestParseAsyncDeliversResult(t *testing.T) {
	p := New()
	defer p.Close()

	ch := p.Parse(context.Background(), golang.GetLanguage(), []byte("package main\n"))
	res := <-ch
	if res.Err != nil {
		t.Fatalf("Parse: %v", res.Err)
	}
	if res.Tree == nil {
		t.Fatalf("expected a parse tree")
	}
}

func TestSubmitAfterCloseFails(t *testing.T) {
	p := New()
	p.Close()

	_, err := p.ParseBlocking(context.Background(), golang.GetLanguage(), []byte("package main\n"))
	if err != ErrPoolClosed {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestConcurrentParsesAllSucceed(t *testing.T) {
	p := New()
	defer p.Close()

	const n = 32
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := p.ParseBlocking(context.Background(), golang.GetLanguage(), []byte("package main\nfunc F() {}\n"))
			errs <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("parse %d failed: %v", i, err)
		}
	}
}
