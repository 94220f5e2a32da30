package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetArgs(t *testing.T) {
	tests := []struct {
		name string
		opts *SetOptions
		want []string
	}{
		{
			name: "no options",
			opts: nil,
			want: []string{"SET", "k", "v"},
		},
		{
			name: "ex only",
			opts: &SetOptions{EX: 10},
			want: []string{"SET", "k", "v", "EX", "10"},
		},
		{
			name: "px and nx",
			opts: &SetOptions{PX: 500, NX: true},
			want: []string{"SET", "k", "v", "PX", "500", "NX"},
		},
		{
			name: "token order is EX PX NX XX",
			opts: &SetOptions{EX: 1, PX: 2, NX: true, XX: true},
			want: []string{"SET", "k", "v", "EX", "1", "PX", "2", "NX", "XX"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, setArgs("k", "v", tt.opts))
		})
	}
}

func TestIncrArgsRouting(t *testing.T) {
	assert.Equal(t, []string{"INCR", "k"}, incrArgs("k", 1))
	assert.Equal(t, []string{"INCRBY", "k", "2"}, incrArgs("k", 2))
	assert.Equal(t, []string{"INCRBY", "k", "-3"}, incrArgs("k", -3))
	assert.Equal(t, []string{"INCRBYFLOAT", "k", "0.5"}, incrArgs("k", 0.5))
}

func TestDecrArgsRouting(t *testing.T) {
	assert.Equal(t, []string{"DECR", "k"}, decrArgs("k", 1))
	// Integer deltas go out positively on DECRBY.
	assert.Equal(t, []string{"DECRBY", "k", "2"}, decrArgs("k", 2))
	// Fractional deltas negate onto INCRBYFLOAT.
	assert.Equal(t, []string{"INCRBYFLOAT", "k", "-0.5"}, decrArgs("k", 0.5))
}

func TestHIncrArgsRouting(t *testing.T) {
	assert.Equal(t, []string{"HINCRBY", "h", "f", "2"}, hincrArgs("h", "f", 2))
	assert.Equal(t, []string{"HINCRBYFLOAT", "h", "f", "0.5"}, hincrArgs("h", "f", 0.5))
}

func TestSPopArgsOmitsAbsentCount(t *testing.T) {
	assert.Equal(t, []string{"SPOP", "k"}, spopArgs("k", nil))
	assert.Equal(t, []string{"SPOP", "k", "3"}, spopArgs("k", []int64{3}))
}

func TestMSetArgsFlattensPairs(t *testing.T) {
	args := msetArgs(map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, "MSET", args[0])
	assert.Len(t, args, 5)
	pairs := map[string]string{args[1]: args[2], args[3]: args[4]}
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, pairs)
}

func TestHMSetMapArgs(t *testing.T) {
	args := hmsetMapArgs("h", map[string]string{"f": "v"})
	assert.Equal(t, []string{"HMSET", "h", "f", "v"}, args)
}
