package postduck

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
)

// keyRegistry allocates the (process ID, secret key) pairs written inside
// BackendKeyData and keeps them for the lifetime of their sessions. The pair
// of a CancelRequest is checked against it; neither a matching nor an unknown
// pair aborts anything.
type keyRegistry struct {
	mu   sync.Mutex
	next int32
	keys map[int32]int32
}

func newKeyRegistry() *keyRegistry {
	return &keyRegistry{keys: make(map[int32]int32)}
}

// allocate reserves a fresh backend key pair. The process ID is a simple
// counter; the secret is drawn from the system random source.
func (r *keyRegistry) allocate() (pid, secret int32) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err == nil {
		secret = int32(binary.BigEndian.Uint32(buf[:]))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	pid = r.next
	r.keys[pid] = secret
	return pid, secret
}

// validate reports whether the given pair matches a live session.
func (r *keyRegistry) validate(pid, secret int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	known, has := r.keys[pid]
	return has && known == secret
}

// release forgets the key pair of a closed session.
func (r *keyRegistry) release(pid int32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.keys, pid)
}
