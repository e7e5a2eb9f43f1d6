package storage

import "testing"

func TestBuildObjectPathRenditions(t *testing.T) {
	params := PathParams{Folder: "gallery", UploadID: "01hzx", FileName: "gate.jpg"}
	cases := map[Rendition]string{
		RenditionOriginal:  "media/gallery/01hzx/original/gate.jpg",
		RenditionMedium:    "media/gallery/01hzx/medium/gate.jpg",
		RenditionThumbnail: "media/gallery/01hzx/thumb/gate.jpg",
	}
	for rendition, expected := range cases {
		path, err := BuildObjectPath(rendition, params)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", rendition, err)
		}
		if path != expected {
			t.Fatalf("%s: expected %s, got %s", rendition, expected, path)
		}
	}
}

func TestBuildObjectPathRejectsInvalidSegment(t *testing.T) {
	_, err := BuildObjectPath(RenditionOriginal, PathParams{
		Folder:   "../bad",
		UploadID: "upload",
		FileName: "file.png",
	})
	if err == nil {
		t.Fatalf("expected error for invalid segment")
	}
}

func TestBuildObjectPathUnknownRendition(t *testing.T) {
	if _, err := BuildObjectPath(Rendition("poster"), PathParams{Folder: "a", UploadID: "b", FileName: "c.png"}); err == nil {
		t.Fatal("expected error for unknown rendition")
	}
}
