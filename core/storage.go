package core

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrStoreClosed = errors.New("store closed")
)

type Storager[K comparable, V any] interface {
	Put(k K, v V) error
	Get(k K) (V, error)
	Len() int
}

// MemStore serialises all access through a single goroutine.
type MemStore[K comparable, V any] struct {
	putChan  chan *putRequest[K, V]
	readChan chan *getRequest[K, V]
	lenChan  chan chan int
	quitChan chan struct{}
	once     sync.Once
	data     map[K]V
}

type putRequest[K comparable, V any] struct {
	key  K
	val  V
	done chan struct{}
}

type getRequest[K comparable, V any] struct {
	key      K
	response chan<- *lookupResult[V]
}

type lookupResult[V any] struct {
	v      V
	exists bool
}

func NewGenericMemStore[K comparable, V any]() *MemStore[K, V] {
	s := &MemStore[K, V]{
		putChan:  make(chan *putRequest[K, V]),
		readChan: make(chan *getRequest[K, V]),
		lenChan:  make(chan chan int),
		quitChan: make(chan struct{}),
		data:     make(map[K]V),
	}

	go s.handleAccess()
	return s
}

func (s *MemStore[K, V]) handleAccess() {
	for {
		select {
		case req := <-s.putChan:
			s.data[req.key] = req.val
			close(req.done)
		case req := <-s.readChan:
			v, ok := s.data[req.key]
			req.response <- &lookupResult[V]{
				v:      v,
				exists: ok,
			}
		case resp := <-s.lenChan:
			resp <- len(s.data)
		case <-s.quitChan:
			return
		}
	}
}

func (s *MemStore[K, V]) Put(k K, v V) error {
	req := &putRequest[K, V]{key: k, val: v, done: make(chan struct{})}
	select {
	case s.putChan <- req:
	case <-s.quitChan:
		return ErrStoreClosed
	}
	<-req.done
	return nil
}

func (s *MemStore[K, V]) Get(k K) (V, error) {
	var empty V
	respCh := make(chan *lookupResult[V], 1)
	req := &getRequest[K, V]{
		key:      k,
		response: respCh,
	}
	select {
	case s.readChan <- req:
	case <-s.quitChan:
		return empty, ErrStoreClosed
	}
	resp := <-respCh
	if !resp.exists {
		return empty, fmt.Errorf("key %v: %w", k, ErrNotFound)
	}
	return resp.v, nil
}

func (s *MemStore[K, V]) Len() int {
	respCh := make(chan int, 1)
	select {
	case s.lenChan <- respCh:
	case <-s.quitChan:
		return 0
	}
	return <-respCh
}

// Close stops the access goroutine. Later calls fail with ErrStoreClosed.
func (s *MemStore[K, V]) Close() error {
	s.once.Do(func() { close(s.quitChan) })
	return nil
}
