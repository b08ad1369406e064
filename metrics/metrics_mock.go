package metrics

import (
	"github.com/stretchr/testify/mock"
)

// MetricsEngineMock is mock for the MetricsEngine interface
type MetricsEngineMock struct {
	mock.Mock
}

// RecordOperation mock
func (me *MetricsEngineMock) RecordOperation(labels Labels) {
	me.Called(labels)
}

// RecordTokenBits mock
func (me *MetricsEngineMock) RecordTokenBits(labels Labels, bits int) {
	me.Called(labels, bits)
}
