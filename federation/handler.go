package federation

import (
	"errors"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/sufield/federationd/internal/httpwire"
	"github.com/sufield/federationd/internal/metrics"
)

// emptyJSONBody is the fixed "{}" body every non-200 response carries.
var emptyJSONBody = []byte("{}")

// serveConnection handles one accepted TLS connection end to end: read
// exactly one request, dispatch, write exactly one response, then shut the
// connection down regardless of outcome. It always runs synchronously on
// the listener worker's goroutine, one request, one response, close.
func serveConnection(conn net.Conn, s *Server, logger *slog.Logger) {
	defer conn.Close()

	logger = logger.With("connection_id", uuid.NewString())

	req, err := httpwire.ReadRequest(conn, 4096)
	if err != nil {
		logConnectionError(logger, err)
		return
	}

	status, body := s.dispatch(req.Method, req.Path, logger)
	metrics.RecordRequestServed(status)
	if err := httpwire.WriteResponse(conn, status, body); err != nil {
		logger.Warn("failed writing response", "path", req.Path, "error", err)
	}
}

func logConnectionError(logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, httpwire.ErrParsing):
		logger.Warn("malformed request, closing connection")
	case errors.Is(err, httpwire.ErrTooLongC):
		logger.Warn("request too long, closing connection")
	default:
		logger.Debug("reading request failed, closing connection", "error", err)
	}
}

// dispatch runs the method check, path lookup against a lock-released
// snapshot, a 404 on a missing binding, and bundle retrieval plus
// marshalling on a hit.
func (s *Server) dispatch(method, path string, logger *slog.Logger) (status string, body []byte) {
	if method != "GET" {
		return httpwire.StatusMethodNotAllowed, emptyJSONBody
	}

	b, ok := s.lookupBundle(path)
	if !ok {
		return httpwire.StatusNotFound, emptyJSONBody
	}

	bundle, err := b.source.GetBundleForTrustDomain(b.trustDomain)
	if err != nil {
		logger.Debug("bundle source returned no bundle", "path", path, "error", err)
		return httpwire.StatusNotFound, emptyJSONBody
	}

	marshalled, err := bundle.Marshal()
	if err != nil {
		logger.Warn("bundle marshal failed", "path", path, "error", err)
		return httpwire.StatusNotFound, emptyJSONBody
	}

	return httpwire.StatusOK, marshalled
}
