package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/normativ/internal/model"
)

func TestError_Message(t *testing.T) {
	err := newValidationError("ldp_ids[2]", "discipline parameter %d does not exist", 9)
	assert.Equal(t, "VALIDATION: discipline parameter 9 does not exist (field=ldp_ids[2])", err.Error())

	dup := newDuplicateConditionError(2, 7, 1, "58.5", model.NewParameterSet([]int64{3, 1}))
	assert.Equal(t, `CONFLICT: condition "58.5" for requirement 1 already exists on normative 7`, dup.Error())
	assert.Equal(t, model.ParameterSet{1, 3}, dup.ParameterSet)

	db := newDatabaseError("compose", errors.New("disk I/O error"))
	assert.Equal(t, "DATABASE: compose failed: disk I/O error", db.Error())
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", newNotFoundError(5))

	assert.Equal(t, ErrCodeNotFound, CodeOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestClassify(t *testing.T) {
	cause := errors.New("connection reset")
	ee := classify("compose", "req-9", fmt.Errorf("insert: %w", cause))
	assert.Equal(t, ErrCodeDatabase, ee.Code)
	assert.Equal(t, "req-9", ee.RequestID)
	assert.ErrorIs(t, ee, cause)

	v := newValidationError("entries", "too many")
	ee = classify("compose", "req-10", v)
	assert.Same(t, v, ee)
	assert.Equal(t, "req-10", ee.RequestID)
}

func TestParseConflictPolicy(t *testing.T) {
	for in, want := range map[string]ConflictPolicy{"": PolicyReject, "reject": PolicyReject, "skip": PolicySkip} {
		got, err := ParseConflictPolicy(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseConflictPolicy("merge")
	assert.Error(t, err)
}
