// Package staging holds the images a user has picked before analysis.
//
// Every staged image owns a preview handle from a Previews registry. The
// handle is released when the image leaves the store, whether by Remove
// or Clear. A Store is not safe for concurrent use; the coordinator
// serialises access to it.
package staging

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	// ErrIndexOutOfRange is returned by Remove for an index with no image
	ErrIndexOutOfRange = errors.New("image index out of range")
	// ErrNotImage is returned by Add when a blob is not a recognised image
	ErrNotImage = errors.New("not an image")
)

// Upload is an image handed to the store
type Upload struct {
	Name string
	Data []byte
}

// StagedImage is an image waiting for analysis
type StagedImage struct {
	Name     string
	MIMEType string
	Data     []byte
	Preview  Handle
}

// Store is the ordered collection of staged images
type Store struct {
	previews *Previews
	images   []StagedImage
}

// NewStore creates an empty store backed by previews
func NewStore(previews *Previews) *Store {
	return &Store{previews: previews}
}

// Add appends uploads in order. Either every upload is staged or, if one
// of them is not an image, none is.
func (s *Store) Add(uploads ...Upload) ([]StagedImage, error) {
	types := make([]string, len(uploads))
	for i, u := range uploads {
		mt, err := DetectImageType(u.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u.Name, err)
		}
		types[i] = mt
	}

	added := make([]StagedImage, 0, len(uploads))
	for i, u := range uploads {
		img := StagedImage{
			Name:     u.Name,
			MIMEType: types[i],
			Data:     u.Data,
			Preview:  s.previews.Acquire(u.Data, types[i]),
		}
		s.images = append(s.images, img)
		added = append(added, img)
	}

	return added, nil
}

// Remove releases the preview at index and drops the image
func (s *Store) Remove(index int) error {
	if index < 0 || index >= len(s.images) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	s.previews.Release(s.images[index].Preview)
	s.images = append(s.images[:index], s.images[index+1:]...)
	return nil
}

// Clear releases every preview and empties the store. It returns the
// number of images dropped.
func (s *Store) Clear() int {
	n := len(s.images)
	for _, img := range s.images {
		s.previews.Release(img.Preview)
	}
	s.images = nil
	return n
}

// Images returns a copy of the staged images in order
func (s *Store) Images() []StagedImage {
	out := make([]StagedImage, len(s.images))
	copy(out, s.images)
	return out
}

// Len returns the number of staged images
func (s *Store) Len() int {
	return len(s.images)
}

// DetectImageType sniffs the MIME type of data and rejects non-images
func DetectImageType(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", ErrNotImage)
	}

	mt := mimetype.Detect(data).String()
	if !strings.HasPrefix(mt, "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrNotImage, mt)
	}
	return mt, nil
}
