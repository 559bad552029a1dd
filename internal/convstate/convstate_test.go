package convstate

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsNone(t *testing.T) {
	s := NewStore()
	assert.Equal(t, StepNone, s.Get(12345))
	assert.False(t, s.IsActive(12345))
}

func TestSetThenGet(t *testing.T) {
	s := NewStore()
	s.Set(1, StepFAQInput)
	assert.Equal(t, StepFAQInput, s.Get(1))
	assert.True(t, s.IsActive(1))

	s.Set(1, StepOrderInput)
	assert.Equal(t, StepOrderInput, s.Get(1))

	s.Set(1, StepNone)
	assert.Equal(t, StepNone, s.Get(1))
	assert.False(t, s.IsActive(1))
}

func TestKeysAreIndependent(t *testing.T) {
	s := NewStore()
	s.Set(1, StepFAQInput)
	s.Set(2, StepOrderInput)
	assert.Equal(t, StepFAQInput, s.Get(1))
	assert.Equal(t, StepOrderInput, s.Get(2))
	assert.Equal(t, StepNone, s.Get(3))
}

func TestConcurrentAccess(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Set(id, StepFAQInput)
			_ = s.Get(id)
			s.Set(id, StepNone)
		}(int64(i % 10))
	}
	wg.Wait()
	for id := int64(0); id < 10; id++ {
		assert.Equal(t, StepNone, s.Get(id))
	}
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "none", StepNone.String())
	assert.Equal(t, "faq_input", StepFAQInput.String())
	assert.Equal(t, "order_input", StepOrderInput.String())
}
