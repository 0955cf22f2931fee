package jobmgr

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"
)

func waitCtx(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestGoAndStop(t *testing.T) {
	m := New(context.Background())

	if err := m.Go("webhook", waitCtx); err != nil {
		t.Fatal(err)
	}
	if err := m.Go("webhook", waitCtx); !errors.Is(err, ErrRunning) {
		t.Errorf("duplicate Go = %v, want ErrRunning", err)
	}
	if err := m.Go("restore", waitCtx); err != nil {
		t.Fatal(err)
	}

	if got, want := m.Running(), []string{"restore", "webhook"}; !slices.Equal(got, want) {
		t.Errorf("Running() = %v, want %v", got, want)
	}

	if err := m.Stop("webhook"); err != nil {
		t.Fatal(err)
	}
	if err := m.Stop("webhook"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop = %v, want ErrNotRunning", err)
	}
	if err := m.Shutdown(time.Second); err != nil {
		t.Fatal(err)
	}
}

func TestFinishedJobIsForgotten(t *testing.T) {
	m := New(context.Background())
	done := make(chan struct{})
	if err := m.Go("once", func(context.Context) error {
		close(done)
		return errors.New("failed")
	}); err != nil {
		t.Fatal(err)
	}
	<-done

	deadline := time.Now().Add(time.Second)
	for len(m.Running()) > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("job still listed: %v", m.Running())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := m.Go("once", waitCtx); err != nil {
		t.Errorf("restart after finish: %v", err)
	}
	_ = m.Shutdown(time.Second)
}

func TestShutdown(t *testing.T) {
	t.Run("RejectsNewJobs", func(t *testing.T) {
		m := New(context.Background())
		_ = m.Go("a", waitCtx)
		if err := m.Shutdown(time.Second); err != nil {
			t.Fatal(err)
		}
		if err := m.Go("b", waitCtx); !errors.Is(err, ErrClosed) {
			t.Errorf("Go after Shutdown = %v, want ErrClosed", err)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		m := New(context.Background())
		release := make(chan struct{})
		defer close(release)
		_ = m.Go("stubborn", func(context.Context) error {
			<-release
			return nil
		})
		if err := m.Shutdown(20 * time.Millisecond); err == nil {
			t.Error("expected timeout error")
		}
	})

	t.Run("ParentCancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		m := New(ctx)
		stopped := make(chan struct{})
		_ = m.Go("a", func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return nil
		})
		cancel()
		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("job ignored parent cancellation")
		}
	})
}
