package clock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
)

// Grabber captures the pixels of one video frame inside crop, encoded as PNG
// sized to the crop.
type Grabber interface {
	Grab(ctx context.Context, source string, at float64, crop image.Rectangle) ([]byte, error)
}

// Progress is a recognition progress notification.
type Progress struct {
	Status   string
	Progress float64 // 0..1
}

// ProgressFunc receives progress notifications. It may be nil.
type ProgressFunc func(Progress)

// Recognizer turns an image into text.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte, lang string, progress ProgressFunc) (string, error)
}

// FFmpegGrabber grabs frames with the ffmpeg CLI.
type FFmpegGrabber struct {
	Binary string
}

// Grab seeks to at seconds in source and writes one cropped frame as PNG to
// stdout.
func (g FFmpegGrabber) Grab(ctx context.Context, source string, at float64, crop image.Rectangle) ([]byte, error) {
	if crop.Empty() {
		return nil, errors.New("empty crop")
	}
	bin := g.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error",
		"-ss", strconv.FormatFloat(at, 'f', 3, 64),
		"-i", source,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("crop=%d:%d:%d:%d", crop.Dx(), crop.Dy(), crop.Min.X, crop.Min.Y),
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, errors.New("ffmpeg produced no frame")
	}
	return stdout.Bytes(), nil
}

// Tesseract recognizes text with the tesseract CLI.
type Tesseract struct {
	Binary string
	// PageSegMode is tesseract's --psm; 7 treats the image as a single line,
	// which suits a clock overlay.
	PageSegMode int
}

// Recognize pipes img through tesseract and returns its raw output.
func (t Tesseract) Recognize(ctx context.Context, img []byte, lang string, progress ProgressFunc) (string, error) {
	bin := t.Binary
	if bin == "" {
		bin = "tesseract"
	}
	psm := t.PageSegMode
	if psm == 0 {
		psm = 7
	}
	if lang == "" {
		lang = "eng"
	}
	report(progress, "recognizing text", 0)

	cmd := exec.CommandContext(ctx, bin, "stdin", "stdout", "-l", lang, "--psm", strconv.Itoa(psm))
	cmd.Stdin = bytes.NewReader(img)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract error: %w, output: %s", err, strings.TrimSpace(stderr.String()))
	}
	report(progress, "recognizing text", 1)
	return stdout.String(), nil
}

func report(fn ProgressFunc, status string, p float64) {
	if fn != nil {
		fn(Progress{Status: status, Progress: p})
	}
}
