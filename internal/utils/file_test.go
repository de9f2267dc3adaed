package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateInputFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "resume.txt")
	if err := os.WriteFile(file, []byte("resume"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "existing file", path: file},
		{name: "stdin", path: StdioPath},
		{name: "empty", path: "", wantErr: true},
		{name: "missing", path: filepath.Join(dir, "nope.pdf"), wantErr: true},
		{name: "directory", path: dir, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInputFile(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateInputFile(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOutputFileCreatesDirectory(t *testing.T) {
	target := filepath.Join(t.TempDir(), "reports", "out.md")
	if err := ValidateOutputFile(target); err != nil {
		t.Fatalf("ValidateOutputFile() error = %v", err)
	}
	if info, err := os.Stat(filepath.Dir(target)); err != nil || !info.IsDir() {
		t.Errorf("expected directory to be created, stat err = %v", err)
	}
}

func TestIsResumeFile(t *testing.T) {
	tests := map[string]bool{
		"resume.pdf":  true,
		"resume.PDF":  true,
		"resume.docx": true,
		"resume.md":   true,
		"resume.txt":  true,
		"resume.doc":  false,
		"resume":      false,
	}
	for name, want := range tests {
		if got := IsResumeFile(name); got != want {
			t.Errorf("IsResumeFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{size: 512, want: "512 B"},
		{size: 1024, want: "1.0 KB"},
		{size: 10 << 20, want: "10.0 MB"},
		{size: 1536, want: "1.5 KB"},
	}
	for _, tt := range tests {
		if got := FormatFileSize(tt.size); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
