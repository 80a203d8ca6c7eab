package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FFmpeg synthesizes a short clip from a single still image by shelling out
// to the ffmpeg binary on the host. It is the last-resort strategy when every
// provider has failed.
type FFmpeg struct {
	Bin      string
	TmpDir   string
	Duration time.Duration
	Timeout  time.Duration
}

func NewFFmpeg(bin, tmpDir string, duration time.Duration) *FFmpeg {
	if strings.TrimSpace(bin) == "" {
		bin = "ffmpeg"
	}
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	if duration <= 0 {
		duration = 4 * time.Second
	}
	return &FFmpeg{Bin: bin, TmpDir: tmpDir, Duration: duration, Timeout: 60 * time.Second}
}

// Available reports whether the configured binary can be found on the host.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.Bin)
	return err == nil
}

// Synthesize loops the still into an H.264 clip and returns the encoded
// bytes. Both temp files are removed before returning.
func (f *FFmpeg) Synthesize(ctx context.Context, image []byte) ([]byte, error) {
	if !f.Available() {
		return nil, fmt.Errorf("ffmpeg binary %q not found on host", f.Bin)
	}

	inPath := filepath.Join(f.TmpDir, "still-"+uuid.NewString()+".jpg")
	outPath := filepath.Join(f.TmpDir, "clip-"+uuid.NewString()+".mp4")
	if err := os.WriteFile(inPath, image, 0o644); err != nil {
		return nil, err
	}
	defer os.Remove(inPath)
	defer os.Remove(outPath)

	seconds := fmt.Sprintf("%.1f", f.Duration.Seconds())
	args := []string{
		"-y",
		"-loop", "1",
		"-t", seconds,
		"-i", inPath,
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2,format=yuv420p",
		"-r", "25",
		"-c:v", "libx264",
		"-preset", "veryfast",
		outPath,
	}

	runCtx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	cmd := exec.CommandContext(runCtx, f.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("ffmpeg timeout after %s", f.Timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, errors.New(msg)
	}

	video, err := os.ReadFile(outPath)
	if err != nil {
		return nil, err
	}
	if len(video) == 0 {
		return nil, errors.New("ffmpeg produced an empty clip")
	}
	return video, nil
}
