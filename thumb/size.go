package thumb

import "fmt"

// ThumbSize is a bounding box a thumbnail has to fit in.
type ThumbSize struct {
	Name          string
	Width, Height int
}

func SizeMedium() ThumbSize {
	return ThumbSize{Name: "240p", Width: 240, Height: 240}
}

func SizeLarge() ThumbSize {
	return ThumbSize{Name: "480p", Width: 480, Height: 480}
}

// Sizes lists every preset, smallest first.
func Sizes() []ThumbSize {
	return []ThumbSize{SizeMedium(), SizeLarge()}
}

// SizeByName returns the preset called name.
func SizeByName(name string) (ThumbSize, error) {
	for _, s := range Sizes() {
		if s.Name == name {
			return s, nil
		}
	}
	return ThumbSize{}, fmt.Errorf("%w: %q", ErrUnknownSize, name)
}

func (s ThumbSize) IsZero() bool {
	return s == ThumbSize{}
}

func (s ThumbSize) String() string {
	return fmt.Sprintf("%v (%vx%v)", s.Name, s.Width, s.Height)
}
