package federation

import (
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/sufield/federationd/internal/ferrors"
	"github.com/sufield/federationd/internal/metrics"
)

// maxPort is the highest valid TCP port.
const maxPort = 65535

// pollTimeout bounds how long StopEndpointThread/StopEndpoint/Stop should
// ever have to wait for a worker to notice cancellation. Closing the
// net.Listener interrupts a blocked Accept immediately, so this constant is
// a ceiling the implementation comfortably beats rather than a value it
// needs to sleep for. See DESIGN.md for the full rationale.
const pollTimeout = 5

// worker is one goroutine running the accept loop for a single
// (endpoint, port) pair.
type worker struct {
	endpointBaseURL string
	port            uint16

	active atomic.Bool

	listener net.Listener
	ready    chan struct{} // closed once the accept loop is about to run
	done     chan struct{} // closed once the accept loop has returned

	logger *slog.Logger
}

// serveEndpoint starts a worker accepting TLS connections for baseURL on
// port. Callers must hold s.mu.
func (s *Server) serveEndpoint(baseURL string, port uint16) error {
	if baseURL == "" {
		return ferrors.New("ServeEndpoint", baseURL, ferrors.ErrBadArgument)
	}
	if port == 0 || port > maxPort {
		return ferrors.New("ServeEndpoint", baseURL, ferrors.ErrBadPort)
	}
	ep, exists := s.endpoints[baseURL]
	if !exists {
		return ferrors.New("ServeEndpoint", baseURL, ferrors.ErrNotFound)
	}

	ep.mu.Lock()
	if _, busy := ep.workers[port]; busy {
		ep.mu.Unlock()
		return ferrors.New("ServeEndpoint", baseURL, ferrors.ErrBadPort)
	}

	tcpListener, err := net.Listen("tcp", portAddr(port))
	if err != nil {
		ep.mu.Unlock()
		return ferrors.New("ServeEndpoint", baseURL, ferrors.ErrBadPort)
	}
	tlsListener := tls.NewListener(tcpListener, ep.credential.tlsConfig())

	w := &worker{
		endpointBaseURL: baseURL,
		port:            port,
		listener:        tlsListener,
		ready:           make(chan struct{}),
		done:            make(chan struct{}),
		logger:          s.logger.With("base_url", baseURL, "port", port),
	}
	w.active.Store(true)
	ep.workers[port] = w
	ep.mu.Unlock()

	go w.loop(s)

	// Block until the worker signals that its accept loop is live.
	<-w.ready

	return nil
}

func (w *worker) loop(s *Server) {
	metrics.WorkerStarted(w.endpointBaseURL)
	defer metrics.WorkerStopped(w.endpointBaseURL)

	close(w.ready)
	defer close(w.done)

	for w.active.Load() {
		conn, err := w.listener.Accept()
		if err != nil {
			if !w.active.Load() {
				return
			}
			metrics.RecordAcceptError(w.endpointBaseURL, w.port)
			w.logger.Warn("accept failed, continuing", "error", err)
			continue
		}
		metrics.RecordConnectionAccepted(w.endpointBaseURL, w.port)
		serveConnection(conn, s, w.logger)
	}
}

// stopEndpointThread signals the single worker serving baseURL on port and
// returns it so the caller can join it after releasing s.mu. Callers must
// hold s.mu, and must not join the returned worker until they release it:
// joining while s.mu is held can deadlock against a worker blocked taking
// s.mu to serve a request.
func (s *Server) stopEndpointThread(baseURL string, port uint16) (*worker, error) {
	if baseURL == "" {
		return nil, ferrors.New("StopEndpointThread", baseURL, ferrors.ErrBadArgument)
	}
	if port == 0 || port > maxPort {
		return nil, ferrors.New("StopEndpointThread", baseURL, ferrors.ErrBadPort)
	}
	ep, exists := s.endpoints[baseURL]
	if !exists {
		return nil, ferrors.New("StopEndpointThread", baseURL, ferrors.ErrNotFound)
	}

	ep.mu.Lock()
	w, busy := ep.workers[port]
	if !busy {
		ep.mu.Unlock()
		return nil, ferrors.New("StopEndpointThread", baseURL, ferrors.ErrBadPort)
	}
	delete(ep.workers, port)
	ep.mu.Unlock()

	w.signalStop()
	return w, nil
}

// signalStop requests that w's accept loop exit, without waiting for it to
// do so. Safe to call on an already-stopped worker; only the first caller
// actually closes the listener.
func (w *worker) signalStop() {
	if !w.active.CompareAndSwap(true, false) {
		return
	}
	// Closing the listener is the Go-idiomatic wake-up: it interrupts a
	// blocked Accept() immediately, well inside the pollTimeout ceiling.
	if err := w.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		w.logger.Warn("error closing listener during stop", "error", err)
	}
}

// join blocks until w's accept loop has returned. Must be called without
// any server/endpoint lock held.
func (w *worker) join() {
	<-w.done
}

// stop signals and joins a single worker. It must not be called while any
// lock the worker's own goroutine might need (s.mu) is held by the caller.
func (w *worker) stop() {
	w.signalStop()
	w.join()
}

// collectActiveWorkersLocked signals every worker currently registered on
// ep and returns them for the caller to join outside of any lock: every
// entry still in ep.workers is guaranteed active, since a worker is removed
// from the map at the same time it is signalled. ep.mu is acquired and
// released internally; s.mu may still be held by the caller, but the
// returned workers must only be joined after s.mu is released.
func (ep *Endpoint) collectActiveWorkersLocked() []*worker {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	toJoin := make([]*worker, 0, len(ep.workers))
	for port, w := range ep.workers {
		w.signalStop()
		toJoin = append(toJoin, w)
		delete(ep.workers, port)
	}
	return toJoin
}

// joinWorkers waits for every worker's accept loop to return. Must be
// called without any server/endpoint lock held.
func joinWorkers(workers []*worker) {
	for _, w := range workers {
		w.join()
	}
}

// stopEndpoint signals every worker serving baseURL and returns them so the
// caller can join them after releasing s.mu. Callers must hold s.mu.
func (s *Server) stopEndpoint(baseURL string) ([]*worker, error) {
	if baseURL == "" {
		return nil, ferrors.New("StopEndpoint", baseURL, ferrors.ErrBadArgument)
	}
	ep, exists := s.endpoints[baseURL]
	if !exists {
		return nil, ferrors.New("StopEndpoint", baseURL, ferrors.ErrNotFound)
	}
	return ep.collectActiveWorkersLocked(), nil
}

// stopAll signals every worker across every endpoint and returns them so the
// caller can join them after releasing s.mu. Callers must hold s.mu.
// Stopping an already-stopped server is a no-op: every endpoint's worker map
// is already empty, so there is nothing to join.
func (s *Server) stopAll() []*worker {
	var all []*worker
	for _, ep := range s.endpoints {
		all = append(all, ep.collectActiveWorkersLocked()...)
	}
	return all
}

func portAddr(port uint16) string {
	return ":" + strconv.Itoa(int(port))
}
