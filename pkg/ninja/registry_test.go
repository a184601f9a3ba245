package ninja

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/obiverse/dojo/pkg/errdefs"
	"github.com/obiverse/dojo/pkg/jutsu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewDefaultRegistry()
	require.NoError(t, err)
	return r
}

func TestNewDefaultRegistry(t *testing.T) {
	r := newTestRegistry(t)

	assert.Equal(t, 5, r.Count())
	assert.Equal(t, []string{"analyst", "calculator", "parser", "translator", "writer"}, r.WorkerNames())
	assert.Equal(t, []string{"analyst", "calculator", "parser", "translator", "writer"}, r.Contracts())
	assert.Len(t, r.Capabilities(), 10)

	parser, err := r.Worker("parser")
	require.NoError(t, err)
	assert.Equal(t, "Parser", parser.Name)
	assert.Equal(t, DefaultModel, parser.Model)
	assert.Equal(t, "earth", parser.Affinity)
	assert.Equal(t, []string{"parse_invoice", "parse_contact"}, parser.Capabilities)
	assert.Equal(t, "parser", parser.Contract)
}

func TestResolve(t *testing.T) {
	r := newTestRegistry(t)

	t.Run("known pair, case-insensitive worker", func(t *testing.T) {
		b, err := r.Resolve("PARSER", "parse_invoice")
		require.NoError(t, err)
		assert.Equal(t, "Parser", b.Worker.Name)
		assert.Equal(t, "parse_invoice", b.Capability.ID())
	})

	t.Run("unknown worker", func(t *testing.T) {
		_, err := r.Resolve("nonexistent", "anything")
		assert.True(t, errdefs.IsNotFound(err))
	})

	t.Run("unknown capability", func(t *testing.T) {
		_, err := r.Resolve("parser", "fireball")
		assert.True(t, errdefs.IsNotFound(err))
	})

	t.Run("capability not bound to worker", func(t *testing.T) {
		_, err := r.Resolve("parser", "summarize")
		assert.True(t, errdefs.IsCapabilityMismatch(err))
		assert.False(t, errdefs.IsNotFound(err))
	})

	t.Run("raw resolution", func(t *testing.T) {
		b, err := r.ResolveWorker("Writer")
		require.NoError(t, err)
		assert.Nil(t, b.Capability)

		_, err = r.ResolveWorker("ghost")
		assert.True(t, errdefs.IsNotFound(err))
	})
}

func TestSummon(t *testing.T) {
	t.Run("unknown contract", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Summon("unknown-contract")
		assert.True(t, errdefs.IsNotFound(err))
		assert.Equal(t, 5, r.Count())
	})

	t.Run("collision gets a numeric suffix", func(t *testing.T) {
		r := newTestRegistry(t)

		w, err := r.Summon("parser")
		require.NoError(t, err)
		assert.Equal(t, "Parser-2", w.Name)

		w, err = r.Summon("parser")
		require.NoError(t, err)
		assert.Equal(t, "Parser-3", w.Name)

		workers := r.Workers()
		assert.Contains(t, workers, "parser-2")
		assert.Contains(t, workers, "parser-3")

		_, err = r.Resolve("parser-2", "parse_contact")
		assert.NoError(t, err)
	})

	t.Run("concurrent summons produce unique names", func(t *testing.T) {
		r := newTestRegistry(t)

		var wg sync.WaitGroup
		names := make([]string, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				w, err := r.Summon("writer")
				if err == nil {
					names[i] = w.Name
				}
			}(i)
		}
		wg.Wait()

		seen := make(map[string]bool)
		for _, n := range names {
			require.NotEmpty(t, n)
			assert.False(t, seen[n], "duplicate worker name %s", n)
			seen[n] = true
		}
		assert.Equal(t, 25, r.Count())
	})
}

func TestRegister(t *testing.T) {
	t.Run("capability table is checked at registration", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Register(Worker{Name: "Mage", Model: "m", Capabilities: []string{"fireball"}})
		assert.True(t, errdefs.IsNotFound(err))
		assert.Equal(t, 5, r.Count())
	})

	t.Run("duplicate names are rejected", func(t *testing.T) {
		r := newTestRegistry(t)
		_, err := r.Register(Worker{Name: "parser", Model: "m"})
		assert.True(t, errors.Is(err, ErrWorkerExists))
	})

	t.Run("invalid worker", func(t *testing.T) {
		r := NewRegistry()
		_, err := r.Register(Worker{Name: "x"})
		assert.True(t, errors.Is(err, ErrInvalidWorker))

		_, err = r.Register(Worker{Name: "x", Model: "m", Capabilities: []string{"a", "a"}})
		assert.True(t, errors.Is(err, ErrInvalidWorker))
	})

	t.Run("invocation counter", func(t *testing.T) {
		r := newTestRegistry(t)
		b, err := r.Resolve("calculator", "calculate")
		require.NoError(t, err)

		b.RecordInvocation()
		b.RecordInvocation()

		w, err := r.Worker("calculator")
		require.NoError(t, err)
		assert.Equal(t, int64(2), w.Invocations)
	})

	t.Run("snapshots do not alias registry state", func(t *testing.T) {
		r := newTestRegistry(t)
		w, err := r.Worker("parser")
		require.NoError(t, err)
		w.Capabilities[0] = "tampered"

		again, err := r.Worker("parser")
		require.NoError(t, err)
		assert.Equal(t, "parse_invoice", again.Capabilities[0])
	})
}

func TestContracts(t *testing.T) {
	t.Run("contract with unknown capability", func(t *testing.T) {
		r := newTestRegistry(t)
		err := r.AddContract(Contract{ID: "mage", Name: "Mage", Model: "m", Capabilities: []string{"fireball"}})
		assert.True(t, errdefs.IsNotFound(err))
	})

	t.Run("invalid contract", func(t *testing.T) {
		r := newTestRegistry(t)
		err := r.AddContract(Contract{ID: "mage", Name: "Mage", Model: "m"})
		assert.True(t, errors.Is(err, ErrInvalidContract))
	})

	t.Run("replace catalog", func(t *testing.T) {
		r := newTestRegistry(t)
		echo := jutsu.MustCompile(jutsu.Definition{ID: "echo", Template: "{text}"})

		caps := append(jutsu.DefaultLibrary(), echo)
		contracts := append(DefaultContracts(), Contract{ID: "echoer", Name: "Echoer", Model: "m", Capabilities: []string{"echo"}})
		require.NoError(t, r.ReplaceCatalog(caps, contracts))

		assert.Contains(t, r.Contracts(), "echoer")
		w, err := r.Summon("echoer")
		require.NoError(t, err)
		assert.Equal(t, "Echoer", w.Name)
		assert.Equal(t, "neutral", w.Affinity)

		_, err = r.Capability("echo")
		assert.NoError(t, err)
	})

	t.Run("replace catalog is all or nothing", func(t *testing.T) {
		r := newTestRegistry(t)
		bad := []Contract{{ID: "mage", Name: "Mage", Model: "m", Capabilities: []string{"fireball"}}}

		err := r.ReplaceCatalog(jutsu.DefaultLibrary(), bad)
		assert.Error(t, err)
		assert.Len(t, r.Contracts(), 5)
	})

	t.Run("contract lookup", func(t *testing.T) {
		r := newTestRegistry(t)
		c, ok := r.Contract("translator")
		require.True(t, ok)
		assert.Equal(t, "water", c.Affinity)

		_, err := r.Capability("nope")
		assert.True(t, errdefs.IsNotFound(err))
		assert.Equal(t, "registry.capability: unknown jutsu: nope", fmt.Sprint(err))
	})
}
