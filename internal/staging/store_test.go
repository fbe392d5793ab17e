package staging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lehigh-university-libraries/vibetrack/internal/metrics"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestAddAssignsHandlesInOrder(t *testing.T) {
	previews := NewPreviews()
	store := NewStore(previews)
	data := pngBytes(t)

	added, err := store.Add(Upload{Name: "a.png", Data: data}, Upload{Name: "b.png", Data: data})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(added) != 2 || store.Len() != 2 {
		t.Fatalf("Expected 2 images, got %d added / %d staged", len(added), store.Len())
	}

	images := store.Images()
	if images[0].Name != "a.png" || images[1].Name != "b.png" {
		t.Errorf("Expected insertion order, got %s, %s", images[0].Name, images[1].Name)
	}
	if images[0].MIMEType != "image/png" {
		t.Errorf("Expected image/png, got %s", images[0].MIMEType)
	}
	if images[0].Preview == images[1].Preview {
		t.Errorf("Expected distinct handles")
	}
	if !strings.HasPrefix(string(images[0].Preview), "blob:") {
		t.Errorf("Expected blob: handle, got %s", images[0].Preview)
	}

	got, mt, ok := previews.Open(images[1].Preview)
	if !ok || mt != "image/png" || !bytes.Equal(got, data) {
		t.Errorf("Expected preview to resolve to the image bytes")
	}
	if HandleFromID(images[1].Preview.ID()) != images[1].Preview {
		t.Errorf("Expected ID round trip")
	}
}

func TestAddRejectsNonImagesAtomically(t *testing.T) {
	previews := NewPreviews()
	store := NewStore(previews)

	_, err := store.Add(Upload{Name: "ok.png", Data: pngBytes(t)}, Upload{Name: "notes.txt", Data: []byte("hello world")})
	if !errors.Is(err, ErrNotImage) {
		t.Fatalf("Expected ErrNotImage, got %v", err)
	}
	if store.Len() != 0 || previews.Live() != 0 {
		t.Errorf("Expected nothing staged, got %d images / %d handles", store.Len(), previews.Live())
	}

	if _, err := store.Add(Upload{Name: "empty"}); !errors.Is(err, ErrNotImage) {
		t.Errorf("Expected ErrNotImage for empty data, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	previews := NewPreviews()
	store := NewStore(previews)
	data := pngBytes(t)
	_, _ = store.Add(Upload{Name: "a", Data: data}, Upload{Name: "b", Data: data}, Upload{Name: "c", Data: data})
	removed := store.Images()[1].Preview

	if err := store.Remove(1); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	images := store.Images()
	if len(images) != 2 || images[0].Name != "a" || images[1].Name != "c" {
		t.Errorf("Unexpected images after remove: %+v", images)
	}
	if _, _, ok := previews.Open(removed); ok {
		t.Errorf("Expected removed handle to be released")
	}
	if previews.Release(removed) {
		t.Errorf("Expected second release to be refused")
	}

	for _, idx := range []int{-1, 2, 10} {
		if err := store.Remove(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Remove(%d): expected ErrIndexOutOfRange, got %v", idx, err)
		}
	}
	if store.Len() != 2 {
		t.Errorf("Expected failed removes to change nothing")
	}
}

func TestClearReleasesEverything(t *testing.T) {
	previews := NewPreviews()
	store := NewStore(previews)
	data := pngBytes(t)
	_, _ = store.Add(Upload{Name: "a", Data: data}, Upload{Name: "b", Data: data})
	handles := []Handle{store.Images()[0].Preview, store.Images()[1].Preview}

	if n := store.Clear(); n != 2 {
		t.Errorf("Expected 2 cleared, got %d", n)
	}
	if store.Len() != 0 || previews.Live() != 0 {
		t.Errorf("Expected empty store and registry")
	}
	for _, h := range handles {
		if previews.Release(h) {
			t.Errorf("Expected %s to be released already", h)
		}
	}
}

func TestRandomAddRemoveSequences(t *testing.T) {
	data := pngBytes(t)
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		previews := NewPreviews()
		store := NewStore(previews)
		adds, removes := 0, 0
		released := map[Handle]int{}

		for step := 0; step < 40; step++ {
			if store.Len() == 0 || rng.Intn(3) > 0 {
				n := 1 + rng.Intn(3)
				uploads := make([]Upload, n)
				for i := range uploads {
					uploads[i] = Upload{Name: "img", Data: data}
				}
				if _, err := store.Add(uploads...); err != nil {
					t.Fatalf("Unexpected add error: %v", err)
				}
				adds += n
				continue
			}

			idx := rng.Intn(store.Len())
			h := store.Images()[idx].Preview
			if err := store.Remove(idx); err != nil {
				t.Fatalf("Unexpected remove error: %v", err)
			}
			removes++
			if _, _, ok := previews.Open(h); ok {
				t.Fatalf("Handle %s still live after remove", h)
			}
			released[h]++
		}

		if store.Len() != adds-removes {
			t.Fatalf("Run %d: expected %d images, got %d", run, adds-removes, store.Len())
		}
		if previews.Live() != store.Len() {
			t.Fatalf("Run %d: expected %d live handles, got %d", run, store.Len(), previews.Live())
		}
		for h, n := range released {
			if n != 1 {
				t.Fatalf("Run %d: handle %s released %d times", run, h, n)
			}
		}
	}
}

func TestPreviewGaugeTracksLiveHandles(t *testing.T) {
	before := testutil.ToFloat64(metrics.PreviewHandles)
	previews := NewPreviews()
	store := NewStore(previews)

	_, _ = store.Add(Upload{Name: "a", Data: pngBytes(t)}, Upload{Name: "b", Data: pngBytes(t)})
	if got := testutil.ToFloat64(metrics.PreviewHandles) - before; got != 2 {
		t.Errorf("Expected gauge to rise by 2, got %v", got)
	}

	store.Clear()
	if got := testutil.ToFloat64(metrics.PreviewHandles) - before; got != 0 {
		t.Errorf("Expected gauge back to baseline, got %v", got)
	}
}
