package ffmpeg

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestAssetForPlatform(t *testing.T) {
	tests := []struct {
		goos    string
		goarch  string
		want    string
		wantErr bool
	}{
		{"linux", "amd64", "ffmpeg-6.1-linux-64.zip", false},
		{"linux", "arm64", "ffmpeg-6.1-linux-arm-64.zip", false},
		{"darwin", "amd64", "ffmpeg-6.1-macos-64.zip", false},
		{"windows", "amd64", "ffmpeg-6.1-win-64.zip", false},
		{"plan9", "386", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := assetForPlatform(tt.goos, tt.goarch)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unsupported platform")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("asset = %q, want %q", got, tt.want)
			}
		})
	}
}

func buildArchive(t *testing.T, names ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range names {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := f.Write([]byte(name)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractArchive(t *testing.T) {
	archive := buildArchive(t, "bundle/ffmpeg", "bundle/ffprobe", "bundle/readme.txt")
	dir := t.TempDir()

	if err := extractArchive(archive, dir); err != nil {
		t.Fatalf("extractArchive returned error: %v", err)
	}

	for _, name := range []string{"ffmpeg", "ffprobe"} {
		path := filepath.Join(dir, name+executableSuffix())
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s not extracted: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "readme.txt")); err == nil {
		t.Error("non-binary archive entry should not be extracted")
	}
}

func TestExtractArchiveMissingBinaries(t *testing.T) {
	archive := buildArchive(t, "bundle/ffmpeg")
	dir := t.TempDir()

	if err := extractArchive(archive, dir); err == nil {
		t.Error("expected error when ffprobe is missing from the archive")
	}
}
