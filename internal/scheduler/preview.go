package scheduler

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var imageSuffixes = []string{".jpg", ".jpeg", ".png"}

// RestoreLatestPreview copies the most recently modified image in saveDir
// to the preview path so the dashboard shows the last capture right after a
// restart. Missing directories or empty galleries are not errors.
func RestoreLatestPreview(saveDir, previewPath string) {
	entries, err := os.ReadDir(saveDir)
	if err != nil {
		log.Infof("no existing captures to restore: %v", err)
		return
	}

	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = e.Name()
			newestMod = info.ModTime()
		}
	}
	if newest == "" {
		log.Info("no existing image found to restore")
		return
	}

	src := filepath.Join(saveDir, newest)
	if err := CopyPreview(src, previewPath); err != nil {
		log.Errorf("failed to restore preview image: %v", err)
		return
	}
	log.Infof("preview restored from %s", newest)
}

// CopyPreview replaces the preview image with the file at src.
func CopyPreview(src, previewPath string) error {
	if err := os.MkdirAll(filepath.Dir(previewPath), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(previewPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func isImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range imageSuffixes {
		if ext == s {
			return true
		}
	}
	return false
}
