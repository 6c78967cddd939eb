package autoid

import (
	"sync"

	"github.com/google/uuid"
)

// FirstNormalObjectID is the first identifier handed out to user objects.
const FirstNormalObjectID = 16384

// ObjectIDAllocator hands out increasing object identifiers. Identifiers are
// never reused.
type ObjectIDAllocator struct {
	sync.Mutex
	next uint32
}

func NewObjectIDAllocator() *ObjectIDAllocator {
	return &ObjectIDAllocator{
		next: FirstNormalObjectID,
	}
}

func (a *ObjectIDAllocator) AllocID() uint32 {
	a.Lock()
	defer a.Unlock()
	id := a.next
	a.next++
	return id
}

type UUIDAllocator struct{}

func NewUUIDAllocator() *UUIDAllocator {
	return new(UUIDAllocator)
}

func (a *UUIDAllocator) AllocID() string {
	return uuid.New().String()
}
