package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	// inheritedEnv marks a child started by a SIGUSR2 restart. The listening
	// socket is passed to it as fd 3 (first entry of ExtraFiles).
	inheritedEnv = "PHISHGUARD_INHERIT_LISTENER"
	inheritedFD  = 3

	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultDrainTimeout = 30 * time.Second
)

// GracefulServer serves HTTP until SIGTERM/SIGINT, drains in-flight requests
// and runs its shutdown hooks. SIGUSR2 hands the listener to a fresh copy of
// the binary before draining.
type GracefulServer struct {
	httpServer   *http.Server
	listener     net.Listener
	drainTimeout time.Duration
	hooks        []func()
	done         chan struct{}
}

// NewGracefulServer builds a server for addr with the default timeouts.
func NewGracefulServer(addr string, handler http.Handler) *GracefulServer {
	return &GracefulServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       defaultReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      defaultWriteTimeout,
		},
		drainTimeout: defaultDrainTimeout,
		done:         make(chan struct{}),
	}
}

// OnShutdown registers f to run once the server stopped accepting requests.
func (s *GracefulServer) OnShutdown(f func()) {
	s.hooks = append(s.hooks, f)
}

// Run blocks until the server has drained after a stop signal.
func (s *GracefulServer) Run() error {
	ln, err := listen(s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT, syscall.SIGUSR2)
	go s.watch(sigs)

	if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		signal.Stop(sigs)
		return err
	}
	<-s.done
	return nil
}

func (s *GracefulServer) watch(sigs chan os.Signal) {
	defer signal.Stop(sigs)
	for sig := range sigs {
		if sig == syscall.SIGUSR2 {
			pid, err := s.spawnChild()
			if err != nil {
				Logger.Error("restart failed, keep serving", zap.Error(err))
				continue
			}
			Logger.Info("restart: child started", zap.Int("pid", pid))
		} else {
			Logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		}
		s.drain()
		return
	}
}

func (s *GracefulServer) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), s.drainTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		Logger.Error("http shutdown", zap.Error(err))
	} else {
		Logger.Info("http server drained")
	}
	for _, f := range s.hooks {
		f()
	}
	close(s.done)
}

// spawnChild re-executes the running binary with the listener inherited.
func (s *GracefulServer) spawnChild() (int, error) {
	tcp, ok := s.listener.(*net.TCPListener)
	if !ok {
		return 0, fmt.Errorf("listener %T cannot be inherited", s.listener)
	}
	f, err := tcp.File()
	if err != nil {
		return 0, fmt.Errorf("listener file: %w", err)
	}
	defer f.Close()

	cmd := exec.Command(os.Args[0], os.Args[1:]...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	cmd.Env = append(os.Environ(), inheritedEnv+"=1")
	cmd.ExtraFiles = []*os.File{f}
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start child: %w", err)
	}
	return cmd.Process.Pid, nil
}

func listen(addr string) (net.Listener, error) {
	if os.Getenv(inheritedEnv) != "" {
		ln, err := net.FileListener(os.NewFile(inheritedFD, "listener"))
		if err != nil {
			return nil, fmt.Errorf("inherit listener: %w", err)
		}
		return ln, nil
	}
	if addr == "" {
		addr = ":http"
	}
	return net.Listen("tcp", addr)
}

// GraceServer serves handler on addr with signal handling. Hooks run after
// the server has drained.
func GraceServer(addr string, handler http.Handler, hooks ...func()) error {
	srv := NewGracefulServer(addr, handler)
	for _, h := range hooks {
		srv.OnShutdown(h)
	}
	return srv.Run()
}
