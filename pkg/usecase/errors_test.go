package usecase_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/starlog-lab/starlog/pkg/usecase"
)

func TestErrors_SentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrSummarizer", usecase.ErrSummarizer},
		{"ErrNoSummarizer", usecase.ErrNoSummarizer},
		{"ErrNoRegistry", usecase.ErrNoRegistry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.err).NotNil()
		})
	}
}

func TestErrors_ErrorsAreDistinct(t *testing.T) {
	gt.Bool(t, errors.Is(usecase.ErrSummarizer, usecase.ErrNoSummarizer)).False()
	gt.Bool(t, errors.Is(usecase.ErrNoSummarizer, usecase.ErrNoRegistry)).False()
}
