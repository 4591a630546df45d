package types_test

import (
	"errors"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/starlog-lab/starlog/pkg/domain/types"
)

func TestMainCategory_IsValid(t *testing.T) {
	for _, c := range types.AllMainCategories() {
		gt.B(t, c.IsValid()).True()
		gt.String(t, c.Key()).NotEqual("")
	}
	gt.B(t, types.MainCategory("Gossip").IsValid()).False()
	gt.B(t, types.MainCategory("").IsValid()).False()
	gt.String(t, types.MainCategory("Gossip").Key()).Equal("")
}

func TestAllMainCategories(t *testing.T) {
	gt.A(t, types.AllMainCategories()).Length(5)
}

func TestParseMainCategory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    types.MainCategory
		wantErr bool
	}{
		{name: "canonical value", input: "Live & Broadcast", want: types.MainCategoryLiveBroadcast},
		{name: "storage key", input: "incidents-controversies", want: types.MainCategoryIncidents},
		{name: "different case is not coerced", input: "creative works", wantErr: true},
		{name: "unknown", input: "Fashion", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := types.ParseMainCategory(tt.input)
			if tt.wantErr {
				gt.Error(t, err)
				gt.B(t, errors.Is(err, types.ErrInvalidCategory)).True()
				return
			}
			gt.NoError(t, err)
			gt.V(t, got).Equal(tt.want)
		})
	}
}
