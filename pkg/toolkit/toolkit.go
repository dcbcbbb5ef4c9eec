package toolkit

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler is the contract every tool satisfies: it receives the caller's
// argument bag and the server's shared context, and returns a
// human-readable string. A non-nil error reports a domain failure; the
// dispatcher converts it into a failure envelope instead of propagating it.
type Handler func(args map[string]interface{}, ctx *Context) (string, error)

// RegistrationError reports an attempt to register a nil handler. It is
// the only error the core lets escape; every call-time failure is
// returned as data in an Envelope.
type RegistrationError struct {
	Tool string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("tool '%s' must be a callable function", e.Tool)
}

// Server owns the name-to-handler registry and the context shared by
// every handler invocation over the server's lifetime.
type Server struct {
	mu      sync.RWMutex
	tools   map[string]Handler
	context *Context
	log     *logrus.Entry
}

// Option configures a Server at construction time.
type Option func(*Server)

// WithLogger sets the entry the server logs registrations and
// dispatches to.
func WithLogger(log *logrus.Entry) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// NewServer creates a server with an empty registry and an empty context.
func NewServer(opts ...Option) *Server {
	s := &Server{
		tools:   make(map[string]Handler),
		context: NewContext(),
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register binds name to handler. Registering an existing name replaces
// the previous binding; registering a nil handler fails with a
// *RegistrationError and leaves the registry untouched.
func (s *Server) Register(name string, handler Handler) error {
	if handler == nil {
		return &RegistrationError{Tool: name}
	}
	s.mu.Lock()
	s.tools[name] = handler
	s.mu.Unlock()
	s.log.WithField("tool", name).Info("registered tool")
	return nil
}

// ListTools returns all registered tool names in lexicographic order.
func (s *Server) ListTools() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call dispatches a tool by name. It always returns a well-formed
// envelope: an unknown name, a handler error, and a handler panic all
// become failure envelopes, never a propagated fault. A nil argument bag
// is passed to the handler as an empty map.
func (s *Server) Call(name string, args map[string]interface{}) Envelope {
	start := time.Now()
	log := s.log.WithFields(logrus.Fields{
		"tool":       name,
		"invocation": uuid.NewString(),
	})

	s.mu.RLock()
	handler, ok := s.tools[name]
	s.mu.RUnlock()

	if !ok {
		env := NotFound(name, s.ListTools())
		log.WithField("duration", time.Since(start)).Warn("tool not found")
		return env
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	env := safeInvoke(handler, args, s.context)

	log = log.WithField("duration", time.Since(start))
	switch env.Kind {
	case KindNone:
		log.Info("tool call succeeded")
	case KindHandlerPanic:
		log.WithField("error", env.Err).Error("tool call panicked")
	default:
		log.WithField("error", env.Err).Warn("tool call failed")
	}
	return env
}

// safeInvoke runs the handler and converts its outcome, including a
// panic, into an envelope.
func safeInvoke(handler Handler, args map[string]interface{}, ctx *Context) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			env = Failure(KindHandlerPanic, fmt.Sprintf("%v", r))
		}
	}()
	result, err := handler(args, ctx)
	if err != nil {
		return Failure(KindHandlerError, err.Error())
	}
	return Success(result)
}

// Context returns the store shared across this server's handler calls.
func (s *Server) Context() *Context {
	return s.context
}

// SetContext stores a value in the shared context.
func (s *Server) SetContext(key string, value interface{}) {
	s.context.Set(key, value)
}

// GetContext retrieves a value from the shared context, or def if the
// key is absent.
func (s *Server) GetContext(key string, def interface{}) interface{} {
	return s.context.GetDefault(key, def)
}

// ClearContext removes every key from the shared context.
func (s *Server) ClearContext() {
	s.context.Clear()
}
