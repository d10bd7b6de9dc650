package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationErrorsIs(t *testing.T) {
	validation := &ValidationErrors{}
	validation.Add("name", ErrLoopNameRequired)

	err := validation.Err()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrLoopNameRequired))
	require.False(t, errors.Is(err, ErrLoopIDRequired))
}

func TestValidationErrorsNestedFields(t *testing.T) {
	nested := &ValidationErrors{}
	nested.AddCode("start_time", ErrorCodeNegativeTime, errors.New("start is negative"))

	validation := &ValidationErrors{}
	validation.Add("loops[2]", nested)

	err := validation.Err()
	require.Error(t, err)

	var list *ValidationErrors
	require.True(t, errors.As(err, &list))
	require.Len(t, list.Errors, 1)
	require.Equal(t, "loops[2].start_time", list.Errors[0].Field)
	require.Equal(t, ErrorCodeNegativeTime, list.Errors[0].Code)
}

func TestValidationErrorsCodesAreDistinct(t *testing.T) {
	validation := &ValidationErrors{}
	validation.AddCode("start_time", ErrorCodeNegativeTime, errors.New("a"))
	validation.AddCode("end_time", ErrorCodeNegativeTime, errors.New("b"))
	validation.AddCode("end_time", ErrorCodeZeroDuration, errors.New("c"))
	validation.AddMessage("color", "ignored for codes")

	require.Equal(t, []ErrorCode{ErrorCodeNegativeTime, ErrorCodeZeroDuration}, validation.Codes())
	require.True(t, validation.HasCode(ErrorCodeZeroDuration))
	require.False(t, validation.HasCode(ErrorCodeInvalidName))
	require.Equal(t, "start_time: a; end_time: b; end_time: c; color: ignored for codes", validation.Error())
}

func TestValidationErrorsEmpty(t *testing.T) {
	var validation *ValidationErrors
	require.NoError(t, validation.Err())
	require.Nil(t, validation.Codes())
	require.NoError(t, (&ValidationErrors{}).Err())
}
