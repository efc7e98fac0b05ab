package gallery

import (
	"testing"

	"github.com/matzehuels/tiledgallery/pkg/errors"
)

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		name string
		img  Image
		want float64
	}{
		{"landscape", Image{Width: 800, Height: 600}, 800.0 / 600.0},
		{"portrait", Image{Width: 600, Height: 800}, 0.75},
		{"missing height", Image{Width: 800}, 1},
		{"missing both", Image{}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.img.AspectRatio(); got != tt.want {
				t.Errorf("AspectRatio() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImageValidate(t *testing.T) {
	tests := []struct {
		name    string
		img     Image
		wantErr bool
	}{
		{"plain photo", Image{ID: "a", Width: 10, Height: 10}, false},
		{"explicit photo", Image{ID: "a", Kind: KindPhoto, Photo: &PhotoMeta{Caption: "x"}}, false},
		{"video", Image{ID: "v", Kind: KindVideo, Video: &VideoMeta{Poster: "p.jpg", Duration: 3}}, false},

		{"empty id", Image{}, true},
		{"negative width", Image{ID: "a", Width: -1}, true},
		{"photo with video payload", Image{ID: "a", Video: &VideoMeta{}}, true},
		{"video with photo payload", Image{ID: "v", Kind: KindVideo, Photo: &PhotoMeta{}}, true},
		{"negative duration", Image{ID: "v", Kind: KindVideo, Video: &VideoMeta{Duration: -1}}, true},
		{"unknown kind", Image{ID: "a", Kind: "audio"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.img.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidImage) {
				t.Errorf("Validate() code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidImage)
			}
		})
	}
}

func TestValidateRejectsDuplicates(t *testing.T) {
	err := Validate([]Image{{ID: "a"}, {ID: "b"}, {ID: "a"}})
	if !errors.Is(err, errors.ErrCodeInvalidImage) {
		t.Errorf("Validate() = %v, want %v", err, errors.ErrCodeInvalidImage)
	}
}

func TestNormalizeSetsKind(t *testing.T) {
	in := []Image{{ID: "a"}, {ID: "v", Kind: KindVideo}}
	out, err := Normalize(in)
	if err != nil {
		t.Fatalf("Normalize() error: %v", err)
	}
	if out[0].Kind != KindPhoto {
		t.Errorf("out[0].Kind = %q, want %q", out[0].Kind, KindPhoto)
	}
	if out[1].Kind != KindVideo {
		t.Errorf("out[1].Kind = %q, want %q", out[1].Kind, KindVideo)
	}
	if in[0].Kind != "" {
		t.Error("Normalize() should not modify its input")
	}
}
