package player

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGateRegistrySerializesSameGuild(t *testing.T) {
	reg := NewGateRegistry()

	reg.Lock("guild-1")

	acquired := make(chan struct{})
	go func() {
		reg.Lock("guild-1")
		close(acquired)
		reg.Unlock("guild-1")
	}()

	select {
	case <-acquired:
		t.Fatal("second locker acquired the gate while it was held")
	case <-time.After(50 * time.Millisecond):
	}

	reg.Unlock("guild-1")

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second locker never acquired the gate after release")
	}
}

func TestGateRegistryIndependentGuilds(t *testing.T) {
	reg := NewGateRegistry()

	reg.Lock("guild-1")
	defer reg.Unlock("guild-1")

	done := make(chan struct{})
	go func() {
		reg.Lock("guild-2")
		reg.Unlock("guild-2")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unrelated guild gate blocked")
	}
}

func TestGateRegistryCleanup(t *testing.T) {
	reg := NewGateRegistry()

	reg.Lock("guild-1")
	reg.Unlock("guild-1")
	assert.Equal(t, 1, reg.Size())

	reg.Cleanup("guild-1")
	assert.Equal(t, 0, reg.Size())

	// A fresh gate after cleanup still works.
	reg.Lock("guild-1")
	reg.Unlock("guild-1")
	assert.Equal(t, 1, reg.Size())
}

func TestGateRegistryConcurrentCreation(t *testing.T) {
	reg := NewGateRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.Lock("guild-1")
			reg.Unlock("guild-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, reg.Size())
}

func TestGateRegistryCleanupSparesHeldGate(t *testing.T) {
	reg := NewGateRegistry()

	reg.Lock("guild-1")

	// Queue a second operation behind the holder, the way a command races
	// a leave in flight.
	acquired := make(chan struct{})
	release := make(chan struct{})
	returned := make(chan struct{})
	go func() {
		reg.Lock("guild-1")
		close(acquired)
		<-release
		reg.Unlock("guild-1")
		close(returned)
	}()
	time.Sleep(20 * time.Millisecond)

	reg.Unlock("guild-1")
	<-acquired

	// The cleanup must not tear out a gate another operation now holds.
	reg.Cleanup("guild-1")
	assert.Equal(t, 1, reg.Size())

	third := make(chan struct{})
	go func() {
		reg.Lock("guild-1")
		reg.Unlock("guild-1")
		close(third)
	}()

	select {
	case <-third:
		t.Fatal("gate acquired by a second operation while another operation still holds it")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-returned

	select {
	case <-third:
	case <-time.After(time.Second):
		t.Fatal("gate never released to the queued operation")
	}

	reg.Cleanup("guild-1")
	assert.Equal(t, 0, reg.Size())
}
