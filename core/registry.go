package core

import (
	"fmt"
	"io"
	"time"

	"github.com/HiddyTiddy/bottom/types"
	"github.com/HiddyTiddy/bottom/vm"
	"go.uber.org/zap"
)

// Entry is a stored program.
type Entry struct {
	Hash    types.Hash
	Program *vm.Program
	AddedAt time.Time
}

// Registry keeps decoded programs addressed by their hash.
type Registry struct {
	store     Storager[types.Hash, *Entry]
	hasher    Hasher[*vm.Program]
	validator Validator
	logger    *zap.Logger
}

type RegistryOpt func(*Registry) *Registry

func WithLogger(l *zap.Logger) RegistryOpt {
	return func(r *Registry) *Registry {
		if l != nil {
			r.logger = l.Named("registry")
		}
		return r
	}
}

func WithValidator(v Validator) RegistryOpt {
	return func(r *Registry) *Registry {
		r.validator = v
		return r
	}
}

func WithStore(s Storager[types.Hash, *Entry]) RegistryOpt {
	return func(r *Registry) *Registry {
		r.store = s
		return r
	}
}

func NewRegistry(opts ...RegistryOpt) *Registry {
	r := &Registry{
		store:     NewGenericMemStore[types.Hash, *Entry](),
		hasher:    DefaultProgramHasher{},
		validator: LimitValidator{},
		logger:    zap.L().Named("registry"),
	}
	for _, opt := range opts {
		r = opt(r)
	}
	return r
}

// AddSource decodes src and stores the program. Syntax errors are
// returned unwrapped so callers can report their position.
func (r *Registry) AddSource(src string) (*Entry, error) {
	p, err := vm.Decode(src)
	if err != nil {
		return nil, err
	}
	return r.Add(p)
}

// Add stores p. Adding a program that is already stored returns the
// existing entry.
func (r *Registry) Add(p *vm.Program) (*Entry, error) {
	if err := r.validator.ValidateProgram(p); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	h := r.hasher.Hash(p)
	if e, err := r.store.Get(h); err == nil {
		return e, nil
	}

	e := &Entry{
		Hash:    h,
		Program: p,
		AddedAt: time.Now().UTC(),
	}
	if err := r.store.Put(h, e); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	r.logger.Info("added program",
		zap.String("hash", h.Prefix()),
		zap.Int("instructions", p.Len()))
	return e, nil
}

func (r *Registry) Get(h types.Hash) (*Entry, error) {
	e, err := r.store.Get(h)
	if err != nil {
		return nil, fmt.Errorf("registry: program %s: %w", h.Prefix(), err)
	}
	return e, nil
}

// Validate applies the registry's validator without storing p.
func (r *Registry) Validate(p *vm.Program) error {
	return r.validator.ValidateProgram(p)
}

func (r *Registry) Hash(p *vm.Program) types.Hash {
	return r.hasher.Hash(p)
}

func (r *Registry) Len() int {
	return r.store.Len()
}

// Close releases the store when it holds resources of its own.
func (r *Registry) Close() error {
	if c, ok := r.store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
