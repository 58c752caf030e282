package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperation(t *testing.T) {
	tests := []struct {
		input   string
		want    OperationKind
		wantErr bool
	}{
		{input: "create", want: OperationCreate},
		{input: "CREATE_OBJECT", want: OperationCreate},
		{input: " update ", want: OperationUpdate},
		{input: "delete", want: OperationDelete},
		{input: "change_id", want: OperationChangeID},
		{input: "", want: OperationNoop},
		{input: "rename", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOperation(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnknownOperation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChangeDescriptor_HasMainIdentifier(t *testing.T) {
	assert.True(t, ChangeDescriptor{MainIdentifier: "user@example.org"}.HasMainIdentifier())
	assert.False(t, ChangeDescriptor{}.HasMainIdentifier())
	assert.False(t, ChangeDescriptor{MainIdentifier: "   "}.HasMainIdentifier())
}

func TestChangeDescriptor_Values(t *testing.T) {
	change := ChangeDescriptor{
		Operation:      OperationCreate,
		MainIdentifier: "user@example.org",
		Attributes:     Datasets{AttrGivenName: {"Ada"}},
	}

	given, ok := change.FirstValue(AttrGivenName)
	assert.True(t, ok)
	assert.Equal(t, "Ada", given)
	assert.Empty(t, change.Values(AttrSurname))
}
