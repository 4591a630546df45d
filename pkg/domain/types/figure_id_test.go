package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/starlog-lab/starlog/pkg/domain/types"
)

func TestNormalizeFigureID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.FigureID
	}{
		{name: "comma and period", input: "Song, Kang.", want: "songkang"},
		{name: "space", input: "Song Kang", want: "songkang"},
		{name: "hyphen", input: "Jung-Kook", want: "jungkook"},
		{name: "mixed case", input: "NewJeans", want: "newjeans"},
		{name: "tabs and newlines", input: "IU\t \n", want: "iu"},
		{name: "non latin", input: "아이유", want: "아이유"},
		{name: "only separators", input: " -., ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, types.NormalizeFigureID(tt.input)).Equal(tt.want)
		})
	}
}

func TestNormalizeFigureID_Deterministic(t *testing.T) {
	a := types.NormalizeFigureID("Song, Kang.")
	b := types.NormalizeFigureID("Song Kang")
	gt.Value(t, a).Equal(b)
	gt.Value(t, a).Equal(types.FigureID("songkang"))
}

func TestFigureID_Validate(t *testing.T) {
	gt.NoError(t, types.FigureID("songkang").Validate())
	gt.Error(t, types.FigureID("").Validate())
	gt.Error(t, types.FigureID("Song Kang").Validate())
	gt.Error(t, types.FigureID("a/b").Validate())
}
