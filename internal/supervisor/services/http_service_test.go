// Qualisight - Manufacturing Quality Analytics
// Copyright 2026 Qualisight Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/qualisight/qualisight

package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// mockServer scripts ListenAndServe/Shutdown behavior for lifecycle tests.
type mockServer struct {
	listenErr error
	block     chan struct{}

	shutdownCalled bool
	shutdownErr    error
}

func (m *mockServer) ListenAndServe() error {
	if m.block != nil {
		<-m.block
	}
	return m.listenErr
}

func (m *mockServer) Shutdown(ctx context.Context) error {
	m.shutdownCalled = true
	if m.block != nil {
		close(m.block)
	}
	return m.shutdownErr
}

func TestHTTPServerService_ListenFailureSurfaces(t *testing.T) {
	boom := errors.New("address already in use")
	svc := NewHTTPServerService(&mockServer{listenErr: boom}, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, boom) {
		t.Errorf("Expected listen failure surfaced, got %v", err)
	}
}

func TestHTTPServerService_GracefulShutdownOnCancel(t *testing.T) {
	mock := &mockServer{listenErr: http.ErrServerClosed, block: make(chan struct{})}
	svc := NewHTTPServerService(mock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled after graceful shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	if !mock.shutdownCalled {
		t.Error("Expected Shutdown to be invoked on cancellation")
	}
}

func TestHTTPServerService_ServerClosedIsNotFailure(t *testing.T) {
	svc := NewHTTPServerService(&mockServer{listenErr: http.ErrServerClosed}, time.Second)

	if err := svc.Serve(context.Background()); err != nil {
		t.Errorf("Expected clean return for ErrServerClosed, got %v", err)
	}
}

func TestHTTPServerService_ShutdownErrorSurfaces(t *testing.T) {
	mock := &mockServer{
		listenErr:   http.ErrServerClosed,
		block:       make(chan struct{}),
		shutdownErr: errors.New("connections still draining"),
	}
	svc := NewHTTPServerService(mock, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Serve(ctx); err == nil || errors.Is(err, context.Canceled) {
		t.Errorf("Expected shutdown error surfaced, got %v", err)
	}
}
