package mocks

import (
	"testing"

	"go.uber.org/mock/gomock"
)

// NewMockBalanceReaderForTest creates a MockBalanceReader bound to t.
func NewMockBalanceReaderForTest(t *testing.T) *MockBalanceReader {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	return NewMockBalanceReader(ctrl)
}
