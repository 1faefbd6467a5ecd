package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateCounter(t *testing.T) {
	counter := EstimateCounter{}
	assert.Equal(t, 0, counter.CountTokens(""))
	assert.Equal(t, 1, counter.CountTokens("abcd"))
	assert.Equal(t, 25, counter.CountTokens(buildText(100)))
}

func TestTiktokenCounter(t *testing.T) {
	counter, err := NewTiktokenCounter("", nil)
	if err != nil {
		t.Skipf("tiktoken encoding unavailable: %v", err)
	}

	require.NotNil(t, counter)
	assert.Equal(t, 0, counter.CountTokens(""))
	assert.Greater(t, counter.CountTokens("hello world, how are you today?"), 0)
}
